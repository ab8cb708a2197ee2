package service

import (
	"context"
	"log/slog"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

// UnitStarter opens one unit of work per logical operation.
type UnitStarter interface {
	Begin(ctx context.Context) (*repository.UnitOfWork, error)
}

// fail logs err with its context and hands it back. Domain errors are
// warnings; anything else is an error.
func fail(ctx context.Context, log *slog.Logger, msg string, err error, attrs ...any) error {
	level := slog.LevelError
	if isDomain(err) {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, msg, append(attrs, slog.Any("error", err))...)
	return err
}

func isDomain(err error) bool {
	return model.IsNotFound(err) ||
		model.IsAlreadyExists(err) ||
		model.IsInvalidOperation(err) ||
		model.IsForbidden(err) ||
		model.IsUnauthorized(err)
}

func checkPage(p repository.Page) error {
	if err := p.Validate(); err != nil {
		return model.InvalidOperationError{Op: model.OpPaging, Msg: err.Error(), Err: err}
	}
	return nil
}
