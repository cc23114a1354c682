package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
)

var errUnauthenticated = errors.New("authentication required")

// connectError maps engine errors onto Connect codes. Store failures keep
// their detail out of the response.
func connectError(logger *slog.Logger, op string, err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, ledger.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, ledger.ErrAlreadyExists), errors.Is(err, auth.ErrPhoneExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, ledger.ErrConflict):
		code = connect.CodeAborted
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, ledger.ErrStore):
		logger.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeUnavailable, errors.New("storage unavailable"))
	default:
		logger.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
	return connect.NewError(code, err)
}

func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return userID, nil
}
