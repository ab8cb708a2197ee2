package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/messaging"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type RequestService struct {
	store   UnitStarter
	strict  bool
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewRequestService builds the request service. With strict set, status
// changes may only move forward through the lifecycle.
func NewRequestService(store UnitStarter, strict bool, m *metrics.Metrics, logger *slog.Logger) *RequestService {
	return &RequestService{
		store:   store,
		strict:  strict,
		metrics: m,
		log:     logger.With(slog.String("service", "request")),
		now:     time.Now,
	}
}

// Submit files a new pending request on behalf of the citizen.
func (s *RequestService) Submit(ctx context.Context, data *model.SubmitRequest, citizenID int64) (*model.Request, error) {
	title := strings.TrimSpace(data.Title)
	description := strings.TrimSpace(data.Description)
	switch {
	case citizenID <= 0:
		return nil, fail(ctx, s.log, "invalid submission", model.InvalidOperation(model.OpSubmit, "citizen id must be positive"))
	case title == "" || description == "":
		return nil, fail(ctx, s.log, "invalid submission", model.InvalidOperation(model.OpSubmit, "title and description are required"))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "submit request", err)
	}
	defer uow.Rollback()

	citizen, err := uow.Citizens.GetByID(ctx, citizenID)
	if err != nil {
		return nil, fail(ctx, s.log, "submit request", err, slog.Int64("citizen_id", citizenID))
	}
	if citizen == nil {
		return nil, fail(ctx, s.log, "citizen not found", model.NotFound(model.ResourceCitizen, citizenID))
	}

	now := s.now().UTC()
	req := &model.Request{
		Title:       title,
		Description: description,
		Status:      model.StatusPending,
		CreateDate:  now,
		UpdateDate:  now,
		CitizenID:   citizenID,
	}
	if err := uow.Requests.Add(ctx, req); err != nil {
		return nil, fail(ctx, s.log, "submit request", err, slog.Int64("citizen_id", citizenID))
	}

	if err := uow.Requests.AddDetail(ctx, model.StatusPending, &model.StatusDetail{
		RequestID:   req.ID,
		Title:       title,
		Description: description,
		RecordedAt:  now,
	}); err != nil {
		return nil, fail(ctx, s.log, "record pending detail", err, slog.Int64("request_id", req.ID))
	}

	if _, err := uow.Outbox.Add(ctx, messaging.RoutingKeyRequestSubmitted, messaging.RequestSubmittedEvent{
		RequestID: req.ID,
		Title:     req.Title,
		CitizenID: citizenID,
		Timestamp: now.Unix(),
	}); err != nil {
		return nil, fail(ctx, s.log, "stage submitted event", err, slog.Int64("request_id", req.ID))
	}

	saved, err := uow.Save(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "save request", err, slog.Int64("request_id", req.ID))
	}
	if !saved {
		return nil, fail(ctx, s.log, "save request", errors.New("failed to save request"))
	}

	s.metrics.RequestsSubmitted.Inc()
	s.log.InfoContext(ctx, "request submitted", slog.Int64("request_id", req.ID), slog.Int64("citizen_id", citizenID))
	return req, nil
}

func (s *RequestService) GetByID(ctx context.Context, id int64) (*model.Request, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get request", err)
	}
	defer uow.Rollback()

	req, err := uow.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get request", err, slog.Int64("request_id", id))
	}
	if req == nil {
		return nil, fail(ctx, s.log, "request not found", model.NotFound(model.ResourceRequest, id))
	}
	return req, nil
}

func (s *RequestService) ListAll(ctx context.Context) ([]*model.Request, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list requests", err)
	}
	defer uow.Rollback()

	reqs, err := uow.Requests.GetAll(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list requests", err)
	}
	return reqs, nil
}

// ListFiltered returns one page of matching requests and the total match count.
func (s *RequestService) ListFiltered(ctx context.Context, filters model.RequestFilters, page repository.Page) ([]*model.Request, int64, error) {
	if err := s.validFilters(filters, page); err != nil {
		return nil, 0, fail(ctx, s.log, "list requests", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list requests", err)
	}
	defer uow.Rollback()

	filter := requestFilter(filters)
	items, err := uow.Requests.Find(ctx, filter, page)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list requests", err)
	}
	total, err := uow.Requests.Count(ctx, filter)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "count requests", err)
	}
	return items, total, nil
}

// ListWithDetails is ListFiltered with the reporter and department resolved.
func (s *RequestService) ListWithDetails(ctx context.Context, filters model.RequestFilters, page repository.Page) ([]model.RequestDetails, int64, error) {
	if err := s.validFilters(filters, page); err != nil {
		return nil, 0, fail(ctx, s.log, "list request details", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list request details", err)
	}
	defer uow.Rollback()

	filter := requestFilter(filters)
	items, err := uow.Requests.FindWithDetails(ctx, filter, page)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list request details", err)
	}
	total, err := uow.Requests.Count(ctx, filter)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "count requests", err)
	}
	return items, total, nil
}

// ListForCitizen restricts ListFiltered to the requests the citizen filed.
func (s *RequestService) ListForCitizen(ctx context.Context, citizenID int64, filters model.RequestFilters, page repository.Page) ([]*model.Request, int64, error) {
	if citizenID <= 0 {
		return nil, 0, fail(ctx, s.log, "list citizen requests", model.InvalidOperation(model.OpArgument, "citizen id must be positive"))
	}
	filters.CitizenID = citizenID
	return s.ListFiltered(ctx, filters, page)
}

func (s *RequestService) validFilters(f model.RequestFilters, page repository.Page) error {
	if f.Status != "" && !f.Status.Valid() {
		return model.InvalidOperation(model.OpArgument, fmt.Sprintf("unknown status %q", f.Status))
	}
	return checkPage(page)
}

func requestFilter(f model.RequestFilters) repository.Filter {
	filter := repository.Filter{}
	if f.Title != "" {
		filter = filter.And(repository.Contains(repository.FieldTitle, f.Title))
	}
	if f.Status != "" {
		filter = filter.And(repository.Eq(repository.FieldStatus, f.Status))
	}
	if f.CitizenID > 0 {
		filter = filter.And(repository.Eq(repository.FieldCitizenID, f.CitizenID))
	}
	if f.DepartmentID > 0 {
		filter = filter.And(repository.Eq(repository.FieldDepartmentID, f.DepartmentID))
	}
	return filter
}

// AssignToDepartment points the request at a department, replacing any
// previous assignment. Assigning the current department again changes nothing.
func (s *RequestService) AssignToDepartment(ctx context.Context, requestID, departmentID int64) (*model.Request, error) {
	if requestID <= 0 || departmentID <= 0 {
		return nil, fail(ctx, s.log, "invalid assignment",
			model.InvalidOperation(model.OpAssign, "request id and department id must be positive"),
			slog.Int64("request_id", requestID), slog.Int64("department_id", departmentID))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "assign request", err)
	}
	defer uow.Rollback()

	dept, err := uow.Departments.GetByID(ctx, departmentID)
	if err != nil {
		return nil, fail(ctx, s.log, "assign request", err, slog.Int64("department_id", departmentID))
	}
	if dept == nil {
		return nil, fail(ctx, s.log, "department not found", model.NotFound(model.ResourceDepartment, departmentID))
	}

	current, err := uow.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fail(ctx, s.log, "assign request", err, slog.Int64("request_id", requestID))
	}
	if current == nil {
		return nil, fail(ctx, s.log, "request not found", model.NotFound(model.ResourceRequest, requestID))
	}
	if d := current.AssignedDepartmentID; d != nil && *d == departmentID {
		return current, nil
	}

	found, err := uow.Requests.Assign(ctx, requestID, departmentID)
	if err != nil {
		return nil, fail(ctx, s.log, "assign request", err, slog.Int64("request_id", requestID))
	}
	if !found {
		return nil, fail(ctx, s.log, "request not found", model.NotFound(model.ResourceRequest, requestID))
	}

	if _, err := uow.Outbox.Add(ctx, messaging.RoutingKeyRequestAssigned, messaging.RequestAssignedEvent{
		RequestID:    requestID,
		DepartmentID: departmentID,
		Timestamp:    s.now().Unix(),
	}); err != nil {
		return nil, fail(ctx, s.log, "stage assigned event", err, slog.Int64("request_id", requestID))
	}

	req, err := uow.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fail(ctx, s.log, "reload request", err, slog.Int64("request_id", requestID))
	}
	if _, err := uow.Save(ctx); err != nil {
		return nil, fail(ctx, s.log, "save assignment", err, slog.Int64("request_id", requestID))
	}

	s.metrics.RequestsAssigned.Inc()
	s.log.InfoContext(ctx, "request assigned",
		slog.Int64("request_id", requestID), slog.Int64("department_id", departmentID))
	return req, nil
}

// UpdateStatus moves the request to status and records a detail row for it.
// Setting the current status again changes nothing.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID int64, status model.RequestStatus) (*model.Request, error) {
	if !status.Valid() {
		return nil, fail(ctx, s.log, "invalid status",
			model.InvalidOperation(model.OpUpdate, fmt.Sprintf("unknown status %q", status)),
			slog.Int64("request_id", requestID))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "update status", err)
	}
	defer uow.Rollback()

	req, err := uow.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fail(ctx, s.log, "update status", err, slog.Int64("request_id", requestID))
	}
	if req == nil {
		return nil, fail(ctx, s.log, "request not found", model.NotFound(model.ResourceRequest, requestID))
	}

	previous := req.Status
	if previous == status {
		return req, nil
	}
	if s.strict && !previous.Precedes(status) {
		return nil, fail(ctx, s.log, "status cannot move backwards",
			model.InvalidOperation(model.OpUpdate, fmt.Sprintf("cannot move request from %s to %s", previous, status)),
			slog.Int64("request_id", requestID))
	}

	if _, err := uow.Requests.UpdateStatus(ctx, requestID, status); err != nil {
		return nil, fail(ctx, s.log, "update status", err, slog.Int64("request_id", requestID))
	}

	// A request can re-enter a status only with strict transitions off; keep the first record.
	detail, err := uow.Requests.GetDetail(ctx, status, requestID)
	if err != nil {
		return nil, fail(ctx, s.log, "load status detail", err, slog.Int64("request_id", requestID))
	}
	now := s.now().UTC()
	if detail == nil {
		if err := uow.Requests.AddDetail(ctx, status, &model.StatusDetail{
			RequestID:   requestID,
			Title:       req.Title,
			Description: req.Description,
			RecordedAt:  now,
		}); err != nil {
			return nil, fail(ctx, s.log, "record status detail", err, slog.Int64("request_id", requestID))
		}
	}

	if _, err := uow.Outbox.Add(ctx, messaging.RoutingKeyStatusUpdated, messaging.StatusUpdatedEvent{
		RequestID: requestID,
		Title:     req.Title,
		OldStatus: previous,
		NewStatus: status,
		CitizenID: req.CitizenID,
		Timestamp: now.Unix(),
	}); err != nil {
		return nil, fail(ctx, s.log, "stage status event", err, slog.Int64("request_id", requestID))
	}

	if _, err := uow.Save(ctx); err != nil {
		return nil, fail(ctx, s.log, "save status", err, slog.Int64("request_id", requestID))
	}

	req.Status = status
	req.UpdateDate = now
	s.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	s.log.InfoContext(ctx, "request status updated", slog.Int64("request_id", requestID),
		slog.String("from", string(previous)), slog.String("to", string(status)))
	return req, nil
}
