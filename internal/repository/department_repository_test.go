package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentRepository_FindSummaries(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT departments.id, departments.title, .* AS officer_count, .* AS request_count FROM departments WHERE \(departments.title ILIKE \$1 AND .* >= \$2\) ORDER BY departments.id LIMIT 10 OFFSET 0`).
		WithArgs("%park%", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "officer_count", "request_count"}).
			AddRow(2, "Parks", 3, 12))
	mock.ExpectRollback()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	items, err := uow.Departments.FindSummaries(ctx,
		Where(Contains(FieldTitle, "park"), AtLeast(FieldOfficerCount, 1)),
		Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Parks", items[0].Title)
	assert.Equal(t, int64(3), items[0].OfficerCount)
	assert.Equal(t, int64(12), items[0].RequestCount)
}

func TestDepartmentRepository_CountWithDerivedFields(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM departments WHERE \(\(SELECT COUNT\(\*\) FROM requests r WHERE r.assigned_department_id = departments.id\) <= \$1\)`).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	n, err := uow.Departments.Count(ctx, Where(AtMost(FieldRequestCount, 0)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDepartmentRepository_GetByTitle(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM departments WHERE \(departments.title = \$1\) ORDER BY departments.id LIMIT 1`).
		WithArgs("Roads").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(4, "Roads"))
	mock.ExpectRollback()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	d, err := uow.Departments.GetByTitle(ctx, "Roads")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, int64(4), d.ID)
}
