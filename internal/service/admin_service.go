package service

import (
	"context"
	"log/slog"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type AdminService struct {
	store UnitStarter
	log   *slog.Logger
}

func NewAdminService(store UnitStarter, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, log: logger.With(slog.String("service", "admin"))}
}

func (s *AdminService) ListAll(ctx context.Context) ([]model.AdminWithUser, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list admins", err)
	}
	defer uow.Rollback()

	admins, err := uow.Admins.ListWithUsers(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list admins", err)
	}
	return admins, nil
}
