package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type CitizenRepository struct {
	Repository[model.Citizen]
}

func (r *CitizenRepository) GetByUserID(ctx context.Context, userID int64) (*model.Citizen, error) {
	return r.FindOne(ctx, Where(Eq(FieldUserID, userID)))
}

// ListWithUsers returns every citizen joined with its user, in citizen id order.
func (r *CitizenRepository) ListWithUsers(ctx context.Context) ([]model.CitizenWithUser, error) {
	out := []model.CitizenWithUser{}
	err := r.joinUsers(ctx, func(row scanner) error {
		var item model.CitizenWithUser
		dest := append([]any{&item.ID, &item.UserID}, userDest(&item.User)...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	return out, err
}

type OfficerRepository struct {
	Repository[model.Officer]
}

func (r *OfficerRepository) GetByUserID(ctx context.Context, userID int64) (*model.Officer, error) {
	return r.FindOne(ctx, Where(Eq(FieldUserID, userID)))
}

func (r *OfficerRepository) GetByDepartment(ctx context.Context, departmentID int64) ([]*model.Officer, error) {
	return r.FindAll(ctx, Where(Eq(FieldDepartmentID, departmentID)))
}

// Assign stages the officer's department change and reports whether the officer exists.
// The department id is not checked here.
func (r *OfficerRepository) Assign(ctx context.Context, officerID, departmentID int64) (bool, error) {
	n, err := r.exec(ctx, psql.Update(officerTable.Name).
		Set("department_id", departmentID).
		Where(sq.Eq{"id": officerID}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveByUserID stages removal of the user's officer profile.
func (r *OfficerRepository) RemoveByUserID(ctx context.Context, userID int64) error {
	_, err := r.exec(ctx, psql.Delete(officerTable.Name).Where(sq.Eq{"user_id": userID}))
	return err
}

func (r *OfficerRepository) ListWithUsers(ctx context.Context) ([]model.OfficerWithUser, error) {
	out := []model.OfficerWithUser{}
	err := r.joinUsers(ctx, func(row scanner) error {
		var (
			item model.OfficerWithUser
			dept sql.NullInt64
		)
		dest := append([]any{&item.ID, &item.UserID, &dept}, userDest(&item.User)...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		item.DepartmentID = nullableID(dept)
		out = append(out, item)
		return nil
	})
	return out, err
}

type AdminRepository struct {
	Repository[model.Admin]
}

func (r *AdminRepository) GetByUserID(ctx context.Context, userID int64) (*model.Admin, error) {
	return r.FindOne(ctx, Where(Eq(FieldUserID, userID)))
}

func (r *AdminRepository) ListWithUsers(ctx context.Context) ([]model.AdminWithUser, error) {
	out := []model.AdminWithUser{}
	err := r.joinUsers(ctx, func(row scanner) error {
		var item model.AdminWithUser
		dest := append([]any{&item.ID, &item.UserID}, userDest(&item.User)...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	return out, err
}

// joinUsers selects the profile columns followed by the owning user's columns.
func (r *Repository[T]) joinUsers(ctx context.Context, scan func(scanner) error) error {
	profile := r.table
	cols := append(profile.selectColumns(), userTable.selectColumns()...)
	query, args, err := psql.Select(cols...).
		From(profile.Name).
		Join("users ON users.id = " + profile.col("user_id")).
		OrderBy(profile.col("id")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s with users: %w", profile.Name, err)
	}

	rows, err := r.scope.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select %s with users: %w", profile.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s with users: %w", profile.Name, err)
		}
	}
	return rows.Err()
}

func userDest(u *model.User) []any {
	return []any{&u.ID, &u.Username, &u.Password, &u.Firstname, &u.Lastname, &u.Email, &u.Phone, &u.Role}
}
