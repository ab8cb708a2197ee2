package service

import (
	"context"
	"log/slog"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type CitizenService struct {
	store UnitStarter
	log   *slog.Logger
}

func NewCitizenService(store UnitStarter, logger *slog.Logger) *CitizenService {
	return &CitizenService{store: store, log: logger.With(slog.String("service", "citizen"))}
}

func (s *CitizenService) GetByID(ctx context.Context, id int64) (*model.Citizen, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get citizen", err)
	}
	defer uow.Rollback()

	citizen, err := uow.Citizens.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get citizen", err, slog.Int64("citizen_id", id))
	}
	if citizen == nil {
		return nil, fail(ctx, s.log, "citizen not found", model.NotFound(model.ResourceCitizen, id))
	}
	return citizen, nil
}

func (s *CitizenService) GetByUserID(ctx context.Context, userID int64) (*model.Citizen, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get citizen", err)
	}
	defer uow.Rollback()

	citizen, err := uow.Citizens.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fail(ctx, s.log, "get citizen", err, slog.Int64("user_id", userID))
	}
	if citizen == nil {
		return nil, fail(ctx, s.log, "citizen not found", model.NotFound(model.ResourceCitizen, userID))
	}
	return citizen, nil
}

func (s *CitizenService) ListAll(ctx context.Context) ([]model.CitizenWithUser, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list citizens", err)
	}
	defer uow.Rollback()

	citizens, err := uow.Citizens.ListWithUsers(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list citizens", err)
	}
	return citizens, nil
}
