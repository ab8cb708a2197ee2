package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type DepartmentService struct {
	store UnitStarter
	log   *slog.Logger
}

func NewDepartmentService(store UnitStarter, logger *slog.Logger) *DepartmentService {
	return &DepartmentService{
		store: store,
		log:   logger.With(slog.String("service", "department")),
	}
}

// Add creates a department. Titles are unique.
func (s *DepartmentService) Add(ctx context.Context, title string) (*model.Department, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fail(ctx, s.log, "invalid department", model.InvalidOperation(model.OpDepartment, "title is required"))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "add department", err)
	}
	defer uow.Rollback()

	existing, err := uow.Departments.GetByTitle(ctx, title)
	if err != nil {
		return nil, fail(ctx, s.log, "add department", err)
	}
	if existing != nil {
		return nil, fail(ctx, s.log, "department already exists", model.AlreadyExists(model.ResourceDepartment, title))
	}

	dept := &model.Department{Title: title}
	if err := uow.Departments.Add(ctx, dept); err != nil {
		return nil, fail(ctx, s.log, "add department", s.duplicate(err, title))
	}

	saved, err := uow.Save(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "save department", err)
	}
	if !saved {
		return nil, fail(ctx, s.log, "save department", errors.New("failed to save department"))
	}

	s.log.InfoContext(ctx, "department created", slog.Int64("department_id", dept.ID), slog.String("title", title))
	return dept, nil
}

func (s *DepartmentService) GetByID(ctx context.Context, id int64) (*model.Department, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get department", err)
	}
	defer uow.Rollback()

	dept, err := uow.Departments.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get department", err, slog.Int64("department_id", id))
	}
	if dept == nil {
		return nil, fail(ctx, s.log, "department not found", model.NotFound(model.ResourceDepartment, id))
	}
	return dept, nil
}

func (s *DepartmentService) ListAll(ctx context.Context) ([]*model.Department, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list departments", err)
	}
	defer uow.Rollback()

	depts, err := uow.Departments.GetAll(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list departments", err)
	}
	return depts, nil
}

// ListFiltered returns one page of department summaries and the total match count.
// Count bounds are inclusive.
func (s *DepartmentService) ListFiltered(ctx context.Context, filters model.DepartmentFilters, page repository.Page) ([]model.DepartmentSummary, int64, error) {
	if err := checkPage(page); err != nil {
		return nil, 0, fail(ctx, s.log, "list departments", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list departments", err)
	}
	defer uow.Rollback()

	filter := departmentFilter(filters)
	items, err := uow.Departments.FindSummaries(ctx, filter, page)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list departments", err)
	}
	total, err := uow.Departments.Count(ctx, filter)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "count departments", err)
	}
	return items, total, nil
}

func departmentFilter(f model.DepartmentFilters) repository.Filter {
	filter := repository.Filter{}
	if f.Title != "" {
		filter = filter.And(repository.Contains(repository.FieldTitle, f.Title))
	}
	if f.MinOfficers != nil {
		filter = filter.And(repository.AtLeast(repository.FieldOfficerCount, *f.MinOfficers))
	}
	if f.MaxOfficers != nil {
		filter = filter.And(repository.AtMost(repository.FieldOfficerCount, *f.MaxOfficers))
	}
	if f.MinRequests != nil {
		filter = filter.And(repository.AtLeast(repository.FieldRequestCount, *f.MinRequests))
	}
	if f.MaxRequests != nil {
		filter = filter.And(repository.AtMost(repository.FieldRequestCount, *f.MaxRequests))
	}
	return filter
}

func (s *DepartmentService) UpdateTitle(ctx context.Context, id int64, title string) (*model.Department, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fail(ctx, s.log, "invalid department", model.InvalidOperation(model.OpUpdate, "title is required"))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "update department", err)
	}
	defer uow.Rollback()

	other, err := uow.Departments.GetByTitle(ctx, title)
	if err != nil {
		return nil, fail(ctx, s.log, "update department", err)
	}
	if other != nil && other.ID != id {
		return nil, fail(ctx, s.log, "department already exists", model.AlreadyExists(model.ResourceDepartment, title))
	}

	found, err := uow.Departments.UpdateTitle(ctx, id, title)
	if err != nil {
		return nil, fail(ctx, s.log, "update department", s.duplicate(err, title), slog.Int64("department_id", id))
	}
	if !found {
		return nil, fail(ctx, s.log, "department not found", model.NotFound(model.ResourceDepartment, id))
	}
	if _, err := uow.Save(ctx); err != nil {
		return nil, fail(ctx, s.log, "save department", err, slog.Int64("department_id", id))
	}

	s.log.InfoContext(ctx, "department renamed", slog.Int64("department_id", id), slog.String("title", title))
	return &model.Department{ID: id, Title: title}, nil
}

// Delete removes the department. Its officers and requests become unassigned.
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fail(ctx, s.log, "delete department", err)
	}
	defer uow.Rollback()

	found, err := uow.Departments.Delete(ctx, id)
	if err != nil {
		return fail(ctx, s.log, "delete department", err, slog.Int64("department_id", id))
	}
	if !found {
		return fail(ctx, s.log, "department not found", model.NotFound(model.ResourceDepartment, id))
	}

	s.log.InfoContext(ctx, "department deleted", slog.Int64("department_id", id))
	return nil
}

func (s *DepartmentService) duplicate(err error, title string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return model.AlreadyExistsError{Resource: model.ResourceDepartment, Value: title, Err: err}
	}
	return err
}
