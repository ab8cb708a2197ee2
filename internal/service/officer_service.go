package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type OfficerService struct {
	store UnitStarter
	log   *slog.Logger
}

func NewOfficerService(store UnitStarter, logger *slog.Logger) *OfficerService {
	return &OfficerService{store: store, log: logger.With(slog.String("service", "officer"))}
}

func (s *OfficerService) GetByUserID(ctx context.Context, userID int64) (*model.Officer, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get officer", err)
	}
	defer uow.Rollback()

	officer, err := uow.Officers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fail(ctx, s.log, "get officer", err, slog.Int64("user_id", userID))
	}
	if officer == nil {
		return nil, fail(ctx, s.log, "officer not found", model.NotFound(model.ResourceOfficer, userID))
	}
	return officer, nil
}

func (s *OfficerService) ListAll(ctx context.Context) ([]model.OfficerWithUser, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list officers", err)
	}
	defer uow.Rollback()

	officers, err := uow.Officers.ListWithUsers(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list officers", err)
	}
	return officers, nil
}

// AssignToDepartment moves the officer to a department and reports whether
// the officer exists. The department is not looked up first; a dangling id
// is rejected by the database as DepartmentNotFound.
func (s *OfficerService) AssignToDepartment(ctx context.Context, officerID, departmentID int64) (bool, error) {
	if officerID <= 0 || departmentID <= 0 {
		return false, fail(ctx, s.log, "invalid assignment",
			model.InvalidOperation(model.OpAssign, "officer id and department id must be positive"))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return false, fail(ctx, s.log, "assign officer", err)
	}
	defer uow.Rollback()

	found, err := uow.Officers.Assign(ctx, officerID, departmentID)
	if errors.Is(err, repository.ErrMissingReference) {
		err = model.NotFoundError{Resource: model.ResourceDepartment, Key: departmentID, Err: err}
	}
	if err != nil {
		return false, fail(ctx, s.log, "assign officer", err,
			slog.Int64("officer_id", officerID), slog.Int64("department_id", departmentID))
	}
	if !found {
		s.log.WarnContext(ctx, "officer not found", slog.Int64("officer_id", officerID))
		return false, nil
	}

	if _, err := uow.Save(ctx); err != nil {
		return false, fail(ctx, s.log, "save officer assignment", err, slog.Int64("officer_id", officerID))
	}

	s.log.InfoContext(ctx, "officer assigned",
		slog.Int64("officer_id", officerID), slog.Int64("department_id", departmentID))
	return true, nil
}
