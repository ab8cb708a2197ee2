package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

var (
	testNow       = time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

	userColumns    = []string{"id", "username", "password", "firstname", "lastname", "email", "phone_number", "role"}
	requestColumns = []string{"id", "title", "description", "status", "create_date", "update_date", "citizen_id", "assigned_department_id"}
)

func newTestStore(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return repository.NewStore(db), mock
}

func TestCheckPage(t *testing.T) {
	assert.NoError(t, checkPage(repository.Page{Number: 1, Size: 10}))

	err := checkPage(repository.Page{Number: 0, Size: 10})
	assert.ErrorIs(t, err, repository.ErrInvalidPage)
	assert.ErrorContains(t, err, "invalid paging")
}
