package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type RequestRepository struct {
	Repository[model.Request]
	details map[model.RequestStatus]Repository[model.StatusDetail]
	now     func() time.Time
}

func (r *RequestRepository) GetByCitizenID(ctx context.Context, citizenID int64) ([]*model.Request, error) {
	return r.FindAll(ctx, Where(Eq(FieldCitizenID, citizenID)))
}

func (r *RequestRepository) GetByDepartment(ctx context.Context, departmentID int64) ([]*model.Request, error) {
	return r.FindAll(ctx, Where(Eq(FieldDepartmentID, departmentID)))
}

func (r *RequestRepository) GetByStatus(ctx context.Context, status model.RequestStatus) ([]*model.Request, error) {
	return r.FindAll(ctx, Where(Eq(FieldStatus, status)))
}

// Assign stages the department overwrite and reports whether the request exists.
// The department id is not checked here.
func (r *RequestRepository) Assign(ctx context.Context, requestID, departmentID int64) (bool, error) {
	n, err := r.exec(ctx, psql.Update(requestTable.Name).
		Set("assigned_department_id", departmentID).
		Set("update_date", r.now()).
		Where(sq.Eq{"id": requestID}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus stages the status overwrite and reports whether the request exists.
func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID int64, status model.RequestStatus) (bool, error) {
	n, err := r.exec(ctx, psql.Update(requestTable.Name).
		Set("status", status).
		Set("update_date", r.now()).
		Where(sq.Eq{"id": requestID}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddDetail stages the status-specific record for a request.
func (r *RequestRepository) AddDetail(ctx context.Context, status model.RequestStatus, detail *model.StatusDetail) error {
	repo, ok := r.details[status]
	if !ok {
		return fmt.Errorf("no detail table for status %q", status)
	}
	return repo.Add(ctx, detail)
}

// GetDetail returns nil when the request never entered status.
func (r *RequestRepository) GetDetail(ctx context.Context, status model.RequestStatus, requestID int64) (*model.StatusDetail, error) {
	repo, ok := r.details[status]
	if !ok {
		return nil, fmt.Errorf("no detail table for status %q", status)
	}
	return repo.FindOne(ctx, Where(Eq(FieldRequestID, requestID)))
}

// FindWithDetails returns one page of requests together with the reporting
// citizen, its user and the assigned department, in a single query.
func (r *RequestRepository) FindWithDetails(ctx context.Context, f Filter, p Page) ([]model.RequestDetails, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	cols := requestTable.selectColumns()
	cols = append(cols, citizenTable.selectColumns()...)
	cols = append(cols, userTable.selectColumns()...)
	cols = append(cols, departmentTable.selectColumns()...)

	b := psql.Select(cols...).
		From(requestTable.Name).
		Join("citizens ON citizens.id = requests.citizen_id").
		Join("users ON users.id = citizens.user_id").
		LeftJoin("departments ON departments.id = requests.assigned_department_id")

	b, err := where(b, f, requestTable.Fields)
	if err != nil {
		return nil, err
	}

	query, args, err := paginate(b.OrderBy("requests.id"), p).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build requests with details: %w", err)
	}

	rows, err := r.scope.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select requests with details: %w", err)
	}
	defer rows.Close()

	items := []model.RequestDetails{}
	for rows.Next() {
		var (
			d         model.RequestDetails
			assigned  sql.NullInt64
			deptID    sql.NullInt64
			deptTitle sql.NullString
		)
		dest := []any{
			&d.ID, &d.Title, &d.Description, &d.Status, &d.CreateDate, &d.UpdateDate, &d.CitizenID, &assigned,
			&d.Citizen.ID, &d.Citizen.UserID,
		}
		dest = append(dest, userDest(&d.Reporter)...)
		dest = append(dest, &deptID, &deptTitle)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan request with details: %w", err)
		}
		d.AssignedDepartmentID = nullableID(assigned)
		if deptID.Valid {
			d.Department = &model.Department{ID: deptID.Int64, Title: deptTitle.String}
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
