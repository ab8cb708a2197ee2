package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type UserRepository struct {
	Repository[model.User]
	citizens *CitizenRepository
	officers *OfficerRepository
	admins   *AdminRepository
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindOne(ctx, Where(Eq(FieldUsername, username)))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOne(ctx, Where(Eq(FieldEmail, email)))
}

// GetByCredentials finds the user whose username or email equals login.
// The password is checked by the caller.
func (r *UserRepository) GetByCredentials(ctx context.Context, login string) (*model.User, error) {
	b := userTable.selectAll().
		Where(sq.Or{sq.Eq{"users.username": login}, sq.Eq{"users.email": login}}).
		OrderBy("users.id").
		Limit(1)
	return r.one(ctx, b)
}

func (r *UserRepository) GetByLastname(ctx context.Context, lastname string) ([]*model.User, error) {
	return r.FindAll(ctx, Where(Eq(FieldLastname, lastname)))
}

func (r *UserRepository) GetByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	return r.FindAll(ctx, Where(Eq(FieldRole, role)))
}

// UpdateRole stages a role change and reports whether the user exists.
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role model.Role) (bool, error) {
	n, err := r.exec(ctx, psql.Update(userTable.Name).Set("role", role).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.Count(ctx, Where(Eq(FieldUsername, username)))
	return n > 0, err
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.Count(ctx, Where(Eq(FieldEmail, email)))
	return n > 0, err
}

// LoadProfile attaches the profile matching the user's current role.
// The profile stays nil when no row exists for that role.
func (r *UserRepository) LoadProfile(ctx context.Context, u *model.User) error {
	var (
		profile model.Profile
		err     error
	)
	switch u.Role {
	case model.RoleCitizen:
		var c *model.Citizen
		if c, err = r.citizens.GetByUserID(ctx, u.ID); c != nil {
			profile = c
		}
	case model.RoleOfficer:
		var o *model.Officer
		if o, err = r.officers.GetByUserID(ctx, u.ID); o != nil {
			profile = o
		}
	case model.RoleAdmin:
		var a *model.Admin
		if a, err = r.admins.GetByUserID(ctx, u.ID); a != nil {
			profile = a
		}
	}
	if err != nil {
		return fmt.Errorf("load %s profile of user %d: %w", u.Role, u.ID, err)
	}
	u.Profile = profile
	return nil
}

// AddWithProfile stages the user and then its profile, bound to the new id.
func (r *UserRepository) AddWithProfile(ctx context.Context, u *model.User) error {
	if err := r.Add(ctx, u); err != nil {
		return err
	}
	switch p := u.Profile.(type) {
	case *model.Citizen:
		p.UserID = u.ID
		return r.citizens.Add(ctx, p)
	case *model.Officer:
		p.UserID = u.ID
		return r.officers.Add(ctx, p)
	case *model.Admin:
		p.UserID = u.ID
		return r.admins.Add(ctx, p)
	}
	return nil
}
