package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_AddStagesMessage(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO outbox_messages \(id,routing_key,payload,status,created_at\)`).
		WithArgs(sqlmock.AnyArg(), "request.submitted", []byte(`{"request_id":10}`), OutboxPending, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	id, err := uow.Outbox.Add(ctx, "request.submitted", map[string]int{"request_id": 10})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	saved, err := uow.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestOutboxRepository_GetPendingLocksRows(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM outbox_messages\s+WHERE status = \$1\s+ORDER BY created_at ASC\s+LIMIT \$2\s+FOR UPDATE SKIP LOCKED`).
		WithArgs(OutboxPending, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "routing_key", "payload", "created_at", "retry_count", "last_error", "status"}).
			AddRow(id.String(), "request.assigned", []byte(`{"request_id":1}`), fixedNow, 1, "timeout", OutboxPending))
	mock.ExpectRollback()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	msgs, err := uow.Outbox.GetPending(ctx, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, json.RawMessage(`{"request_id":1}`), msgs[0].Payload)
	require.NotNil(t, msgs[0].LastError)
	assert.Equal(t, "timeout", *msgs[0].LastError)
}

func TestOutboxRepository_MarkOutcome(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outbox_messages SET status = \$1, published_at = \$2 WHERE id = \$3`).
		WithArgs(OutboxPublished, fixedNow, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outbox_messages SET retry_count = retry_count \+ 1, last_error = \$1, status = CASE WHEN retry_count \+ 1 >= \$2 THEN \$3 ELSE \$4 END WHERE id = \$5`).
		WithArgs("broker down", maxOutboxRetries, OutboxFailed, OutboxPending, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	require.NoError(t, uow.Outbox.MarkPublished(ctx, id))
	require.NoError(t, uow.Outbox.MarkFailed(ctx, id, "broker down"))

	_, err := uow.Save(ctx)
	require.NoError(t, err)
}

func TestOutboxRepository_DeletePublished(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM outbox_messages WHERE status = \$1 AND published_at < \$2`).
		WithArgs(OutboxPublished, fixedNow.Add(-24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectCommit()

	uow := beginUnit(t, store)
	defer uow.Rollback()

	n, err := uow.Outbox.DeletePublished(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = uow.Save(ctx)
	require.NoError(t, err)
}
