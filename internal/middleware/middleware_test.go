package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "", err: auth.ErrMissingToken},
		{header: "Basic abc", err: auth.ErrInvalidToken},
		{header: "Bearer", err: auth.ErrInvalidToken},
		{header: "Bearer ", err: auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if tt.err != nil {
				assert.IsError(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type echo struct{}

func callWith(t *testing.T, interceptor connect.UnaryInterceptorFunc, header string) (string, error) {
	t.Helper()
	var seen string
	handler := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUserID(ctx)
		return connect.NewResponse(&echo{}), nil
	})
	req := connect.NewRequest(&echo{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := handler(context.Background(), req)
	return seen, err
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	token, err := jwt.Generate(&models.UserProfile{ID: "user-1", PhoneNumber: "+15550000001"})
	assert.NoError(t, err)

	user, err := callWith(t, RequireAuth(jwt), "Bearer "+token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", user)

	_, err = callWith(t, RequireAuth(jwt), "")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	_, err = callWith(t, RequireAuth(jwt), "Bearer nope")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	interceptor := LoggingInterceptor(logger)

	ok := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&echo{}), nil
	})
	_, err := ok(WithUser(context.Background(), "user-1", ""), connect.NewRequest(&echo{}))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "RPC ok")
	assert.Contains(t, buf.String(), "user_id=user-1")

	buf.Reset()
	notFound := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("no such contact"))
	})
	_, err = notFound(context.Background(), connect.NewRequest(&echo{}))
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	broken := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("disk gone"))
	})
	_, err = broken(context.Background(), connect.NewRequest(&echo{}))
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
}
