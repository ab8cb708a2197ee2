package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

var ErrUnitClosed = errors.New("unit of work already saved or rolled back")

// Store hands out units of work over one connection pool.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Begin opens a transaction and binds a fresh set of repositories to it.
// Callers must end the unit with Save or Rollback; deferring Rollback is
// always safe.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return newUnitOfWork(tx, s.db, s.now), nil
}

// Within runs fn in a unit of work and saves it when fn succeeds.
// It reports whether the save affected any row.
func (s *Store) Within(ctx context.Context, fn func(*UnitOfWork) error) (bool, error) {
	uow, err := s.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return false, err
	}
	return uow.Save(ctx)
}

// UnitOfWork binds every repository to one transaction. Writes staged through
// the repositories are committed together by Save.
type UnitOfWork struct {
	Users       *UserRepository
	Citizens    *CitizenRepository
	Officers    *OfficerRepository
	Admins      *AdminRepository
	Departments *DepartmentRepository
	Requests    *RequestRepository
	Outbox      *OutboxRepository

	tx    *sql.Tx
	scope *scope
	done  bool
}

func newUnitOfWork(tx *sql.Tx, db DBTX, now func() time.Time) *UnitOfWork {
	s := &scope{tx: tx, db: db}

	citizens := &CitizenRepository{Repository: newRepository(citizenTable, s)}
	officers := &OfficerRepository{Repository: newRepository(officerTable, s)}
	admins := &AdminRepository{Repository: newRepository(adminTable, s)}

	details := make(map[model.RequestStatus]Repository[model.StatusDetail], len(detailTables))
	for status, table := range detailTables {
		details[status] = newRepository(table, s)
	}

	return &UnitOfWork{
		Users: &UserRepository{
			Repository: newRepository(userTable, s),
			citizens:   citizens,
			officers:   officers,
			admins:     admins,
		},
		Citizens:    citizens,
		Officers:    officers,
		Admins:      admins,
		Departments: &DepartmentRepository{Repository: newRepository(departmentTable, s)},
		Requests: &RequestRepository{
			Repository: newRepository(requestTable, s),
			details:    details,
			now:        now,
		},
		Outbox: &OutboxRepository{scope: s, now: now},
		tx:     tx,
		scope:  s,
	}
}

// Save commits every staged write and reports whether at least one row was
// affected. A unit can be saved once.
func (u *UnitOfWork) Save(ctx context.Context) (bool, error) {
	if u.done {
		return false, ErrUnitClosed
	}
	u.done = true

	if err := ctx.Err(); err != nil {
		_ = u.tx.Rollback()
		return false, err
	}
	if err := u.tx.Commit(); err != nil {
		return false, fmt.Errorf("commit unit of work: %w", err)
	}
	return u.scope.affected > 0, nil
}

// Rollback discards staged writes. It is a no-op once the unit has ended.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}
