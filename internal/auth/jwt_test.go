package auth

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/splitledger/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(&models.UserProfile{ID: "user-1", PhoneNumber: "+15550000001"})
	assert.NoError(t, err)

	claims, err := m.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "+15550000001", claims.Phone)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestJWTRejects(t *testing.T) {
	profile := &models.UserProfile{ID: "user-1"}
	expired, err := NewJWTManager("test-secret", -time.Minute).Generate(profile)
	assert.NoError(t, err)
	foreign, err := NewJWTManager("other-secret", time.Hour).Generate(profile)
	assert.NoError(t, err)

	sign := func(claims *Claims, method jwt.SigningMethod) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte("test-secret"))
		assert.NoError(t, err)
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	otherIssuer := sign(&Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", Subject: "user-1", ExpiresAt: exp}}, jwt.SigningMethodHS256)
	noExpiry := sign(&Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "user-1"}}, jwt.SigningMethodHS256)
	hs512 := sign(&Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "user-1", ExpiresAt: exp}}, jwt.SigningMethodHS512)
	noUser := sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, ExpiresAt: exp}}, jwt.SigningMethodHS256)

	m := NewJWTManager("test-secret", time.Hour)
	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", foreign},
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"other issuer", otherIssuer},
		{"no expiry", noExpiry},
		{"other algorithm", hs512},
		{"no user", noUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token)
			assert.IsError(t, err, ErrInvalidToken)
		})
	}
}
