package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
)

// AuthServiceName is the fully-qualified name of the auth service.
const AuthServiceName = "splitledger.v1.AuthService"

// Auth service procedures.
const (
	RegisterProcedure      = "/" + AuthServiceName + "/Register"
	LoginProcedure         = "/" + AuthServiceName + "/Login"
	MeProcedure            = "/" + AuthServiceName + "/Me"
	UpdateProfileProcedure = "/" + AuthServiceName + "/UpdateProfile"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	ledger        *ledger.Ledger
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, l *ledger.Ledger, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		ledger:        l,
		logger:        logger,
	}
}

// NewAuthServiceHandler builds an HTTP handler serving the auth procedures.
// Register and Login are public; the rest require a valid token.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	public := append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	private := append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(middleware.RequireAuth(svc.jwtManager)),
	}, opts...)

	mux := http.NewServeMux()
	unary(mux, RegisterProcedure, svc.Register, public...)
	unary(mux, LoginProcedure, svc.Login, public...)
	unary(mux, MeProcedure, svc.Me, private...)
	unary(mux, UpdateProfileProcedure, svc.UpdateProfile, private...)
	return "/" + AuthServiceName + "/", mux
}

// Register creates a new profile and signs the user in.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	s.logger.Info("Register request", "phone", req.Msg.PhoneNumber)

	if req.Msg.PhoneNumber == "" || req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("phone number and name are required"))
	}

	profile, err := s.authenticator.Register(ctx, req.Msg.PhoneNumber, req.Msg.Name, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "phone", req.Msg.PhoneNumber, "error", err)
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connectError(s.logger, "Register", err)
	}

	token, err := s.jwtManager.Generate(profile)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", profile.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", profile.ID)
	return connect.NewResponse(&AuthResponse{Profile: toProfile(profile), Token: token}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	profile, err := s.authenticator.Authenticate(ctx, req.Msg.PhoneNumber, req.Msg.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("Login failed", "phone", req.Msg.PhoneNumber)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, connectError(s.logger, "Login", err)
	}

	token, err := s.jwtManager.Generate(profile)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", profile.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in", "user_id", profile.ID)
	return connect.NewResponse(&AuthResponse{Profile: toProfile(profile), Token: token}), nil
}

// Me returns the signed-in user's profile.
func (s *AuthService) Me(ctx context.Context, req *connect.Request[MeRequest]) (*connect.Response[Profile], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.ledger.GetProfile(ctx, userID)
	if err != nil {
		return nil, connectError(s.logger, "Me", err)
	}
	resp := toProfile(profile)
	return connect.NewResponse(&resp), nil
}

// UpdateProfile changes the signed-in user's name and base currency.
func (s *AuthService) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[Profile], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.ledger.UpdateProfile(ctx, userID, req.Msg.Name, req.Msg.BaseCurrency)
	if err != nil {
		return nil, connectError(s.logger, "UpdateProfile", err)
	}
	resp := toProfile(profile)
	return connect.NewResponse(&resp), nil
}
