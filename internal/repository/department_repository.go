package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type DepartmentRepository struct {
	Repository[model.Department]
}

func (r *DepartmentRepository) GetByTitle(ctx context.Context, title string) (*model.Department, error) {
	return r.FindOne(ctx, Where(Eq(FieldTitle, title)))
}

// UpdateTitle stages the rename and reports whether the department exists.
func (r *DepartmentRepository) UpdateTitle(ctx context.Context, id int64, title string) (bool, error) {
	n, err := r.exec(ctx, psql.Update(departmentTable.Name).Set("title", title).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindSummaries returns one page of departments with their officer and
// request counts. Filters may use the officer_count and request_count fields.
func (r *DepartmentRepository) FindSummaries(ctx context.Context, f Filter, p Page) ([]model.DepartmentSummary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := psql.Select(
		"departments.id",
		"departments.title",
		officerCountExpr+" AS officer_count",
		requestCountExpr+" AS request_count",
	).From(departmentTable.Name)

	b, err := where(b, f, departmentTable.Fields)
	if err != nil {
		return nil, err
	}

	query, args, err := paginate(b.OrderBy("departments.id"), p).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build department summaries: %w", err)
	}

	rows, err := r.scope.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select department summaries: %w", err)
	}
	defer rows.Close()

	summaries := []model.DepartmentSummary{}
	for rows.Next() {
		var s model.DepartmentSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.OfficerCount, &s.RequestCount); err != nil {
			return nil, fmt.Errorf("scan department summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
