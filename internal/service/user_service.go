package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/auth"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type UserService struct {
	store   UnitStarter
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewUserService(store UnitStarter, tokens *auth.TokenManager, m *metrics.Metrics, logger *slog.Logger) *UserService {
	return &UserService{
		store:   store,
		tokens:  tokens,
		metrics: m,
		log:     logger.With(slog.String("service", "user")),
	}
}

// SignUp registers a user together with the profile its role calls for.
func (s *UserService) SignUp(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	if err := validateSignup(req); err != nil {
		return nil, fail(ctx, s.log, "invalid signup", err, slog.String("username", req.Username))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "sign up", err)
	}
	defer uow.Rollback()

	if err := s.ensureAvailable(ctx, uow, req.Username, req.Email); err != nil {
		return nil, fail(ctx, s.log, "user already exists", err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fail(ctx, s.log, "hash password", err)
	}

	user := &model.User{
		Username:  req.Username,
		Password:  hashed,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
	}

	switch req.Role {
	case model.RoleCitizen:
		user.Profile = &model.Citizen{}
	case model.RoleAdmin:
		user.Profile = &model.Admin{}
	case model.RoleOfficer:
		officer := &model.Officer{}
		dept, err := uow.Departments.GetByID(ctx, req.DepartmentID)
		if err != nil {
			return nil, fail(ctx, s.log, "resolve officer department", err)
		}
		if dept != nil {
			officer.DepartmentID = &dept.ID
		} else {
			s.log.WarnContext(ctx, "officer department not found, leaving unassigned",
				slog.String("username", req.Username), slog.Int64("department_id", req.DepartmentID))
		}
		user.Profile = officer
	}

	if err := uow.Users.AddWithProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = model.AlreadyExistsError{Resource: model.ResourceUser, Value: req.Username, Err: err}
		}
		return nil, fail(ctx, s.log, "add user", err, slog.String("username", req.Username))
	}

	saved, err := uow.Save(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "save user", err)
	}
	if !saved {
		return nil, fail(ctx, s.log, "save user", errors.New("failed to save user"))
	}

	s.metrics.SignUps.WithLabelValues(string(user.Role)).Inc()
	s.log.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

// ensureAvailable rejects a username or email that is already taken, checking
// the username first.
func (s *UserService) ensureAvailable(ctx context.Context, uow *repository.UnitOfWork, username, email string) error {
	taken, err := uow.Users.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return model.UserAlreadyExists(model.ResourceUsername, username)
	}

	taken, err = uow.Users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return model.UserAlreadyExists(model.ResourceEmail, email)
	}
	return nil
}

// VerifyCredentials looks the user up by username or email. A missing user
// is an error; a wrong password yields a nil user and a nil error.
func (s *UserService) VerifyCredentials(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "verify credentials", err)
	}
	defer uow.Rollback()

	user, err := uow.Users.GetByCredentials(ctx, req.Username)
	if err != nil {
		return nil, fail(ctx, s.log, "verify credentials", err)
	}
	if user == nil {
		return nil, fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, req.Username))
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.log.WarnContext(ctx, "password mismatch", slog.Int64("user_id", user.ID))
		return nil, nil
	}
	return user, nil
}

// Login verifies the credentials and issues a token for the user.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.VerifyCredentials(ctx, req)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.UnauthorizedError{Msg: "invalid username or password"}
	}

	token, err := s.CreateToken(ctx, user.ID, user.Username, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, Role: user.Role, Username: user.Username}, nil
}

func (s *UserService) CreateToken(ctx context.Context, userID int64, username, email string, role model.Role) (string, error) {
	token, err := s.tokens.Generate(userID, username, email, role)
	if err != nil {
		if errors.Is(err, auth.ErrMissingClaim) {
			err = model.InvalidOperationError{Op: model.OpArgument, Msg: err.Error(), Err: err}
		}
		return "", fail(ctx, s.log, "create token", err, slog.Int64("user_id", userID))
	}
	return token, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err)
	}
	defer uow.Rollback()

	user, err := uow.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err, slog.Int64("user_id", id))
	}
	if user == nil {
		return nil, fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, id))
	}
	if err := uow.Users.LoadProfile(ctx, user); err != nil {
		return nil, fail(ctx, s.log, "get user", err, slog.Int64("user_id", id))
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err)
	}
	defer uow.Rollback()

	user, err := uow.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err, slog.String("username", username))
	}
	if user == nil {
		return nil, fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, username))
	}
	return user, nil
}

func (s *UserService) ListAll(ctx context.Context) ([]*model.User, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list users", err)
	}
	defer uow.Rollback()

	users, err := uow.Users.GetAll(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "list users", err)
	}
	return users, nil
}

// ListFiltered returns one page of users matching the filters and the total match count.
func (s *UserService) ListFiltered(ctx context.Context, filters model.UserFilters, page repository.Page) ([]*model.User, int64, error) {
	if err := checkPage(page); err != nil {
		return nil, 0, fail(ctx, s.log, "list users", err)
	}

	filter := repository.Filter{}
	if filters.Username != "" {
		filter = filter.And(repository.Contains(repository.FieldUsername, filters.Username))
	}
	if filters.Role != "" {
		if !filters.Role.Valid() {
			return nil, 0, fail(ctx, s.log, "list users", model.InvalidOperation(model.OpArgument, "unknown role "+string(filters.Role)))
		}
		filter = filter.And(repository.Eq(repository.FieldRole, filters.Role))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list users", err)
	}
	defer uow.Rollback()

	users, err := uow.Users.Find(ctx, filter, page)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "list users", err)
	}
	total, err := uow.Users.Count(ctx, filter)
	if err != nil {
		return nil, 0, fail(ctx, s.log, "count users", err)
	}
	return users, total, nil
}

// UpdateFull overwrites the non-empty fields of the update. A change to the
// officer role creates or updates the officer profile; leaving it removes it.
func (s *UserService) UpdateFull(ctx context.Context, id int64, req *model.UserUpdateRequest) (*model.User, error) {
	if req.Empty() {
		return nil, fail(ctx, s.log, "invalid update", model.InvalidOperation(model.OpUpdate, "nothing to update"), slog.Int64("user_id", id))
	}
	if req.Role != "" && !req.Role.Valid() {
		return nil, fail(ctx, s.log, "invalid update", model.InvalidOperation(model.OpUpdate, "unknown role "+string(req.Role)))
	}
	if req.Password != "" {
		if err := auth.ValidatePassword(req.Password); err != nil {
			return nil, fail(ctx, s.log, "invalid update", model.InvalidOperationError{Op: model.OpUpdate, Msg: err.Error(), Err: err})
		}
	}
	if err := checkUserFields(model.OpUpdate, req.Username, req.Email, req.Firstname, req.Lastname, req.Phone); err != nil {
		return nil, fail(ctx, s.log, "invalid update", err, slog.Int64("user_id", id))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "update user", err)
	}
	defer uow.Rollback()

	user, err := s.loadUser(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkIdentityChange(ctx, uow, user, req.Username, req.Email); err != nil {
		return nil, fail(ctx, s.log, "update user", err, slog.Int64("user_id", id))
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fail(ctx, s.log, "hash password", err)
		}
		user.Password = hashed
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Firstname != "" {
		user.Firstname = req.Firstname
	}
	if req.Lastname != "" {
		user.Lastname = req.Lastname
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}

	if err := s.applyRole(ctx, uow, user, req.Role, req.DepartmentID); err != nil {
		return nil, fail(ctx, s.log, "update user role", err, slog.Int64("user_id", id))
	}

	if err := uow.Users.Update(ctx, user); err != nil {
		return nil, fail(ctx, s.log, "update user", s.duplicate(err, req.Username), slog.Int64("user_id", id))
	}
	if _, err := uow.Save(ctx); err != nil {
		return nil, fail(ctx, s.log, "save user", err, slog.Int64("user_id", id))
	}

	s.log.InfoContext(ctx, "user updated", slog.Int64("user_id", id))
	return user, nil
}

// applyRole moves the user to role, keeping exactly one matching profile
// loaded. An empty role keeps the current one.
func (s *UserService) applyRole(ctx context.Context, uow *repository.UnitOfWork, user *model.User, role model.Role, departmentID *int64) error {
	previous := user.Role
	if role == "" {
		role = previous
	}

	if previous == model.RoleOfficer && role != model.RoleOfficer {
		if err := uow.Officers.RemoveByUserID(ctx, user.ID); err != nil {
			return err
		}
		user.Profile = nil
	}
	user.Role = role

	switch role {
	case model.RoleOfficer:
		officer := user.Officer()
		if officer == nil {
			officer = &model.Officer{UserID: user.ID, DepartmentID: departmentID}
			if err := uow.Officers.Add(ctx, officer); err != nil {
				return missingDepartment(err, departmentID)
			}
			user.Profile = officer
			return nil
		}
		if departmentID != nil {
			officer.DepartmentID = departmentID
			return missingDepartment(uow.Officers.Update(ctx, officer), departmentID)
		}
	case model.RoleCitizen:
		if previous == role && user.Profile != nil {
			return nil
		}
		citizen, err := uow.Citizens.GetByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		if citizen == nil {
			citizen = &model.Citizen{UserID: user.ID}
			if err := uow.Citizens.Add(ctx, citizen); err != nil {
				return err
			}
		}
		user.Profile = citizen
	case model.RoleAdmin:
		if previous == role && user.Profile != nil {
			return nil
		}
		admin, err := uow.Admins.GetByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		if admin == nil {
			admin = &model.Admin{UserID: user.ID}
			if err := uow.Admins.Add(ctx, admin); err != nil {
				return err
			}
		}
		user.Profile = admin
	}
	return nil
}

// UpdatePatch changes username, email and password. A supplied current
// password must match or nothing changes; a new password is applied only
// together with a matching current password.
func (s *UserService) UpdatePatch(ctx context.Context, id int64, req *model.UserPatchRequest) (*model.User, error) {
	if err := checkUserFields(model.OpUpdate, req.Username, req.Email, "", "", ""); err != nil {
		return nil, fail(ctx, s.log, "invalid patch", err, slog.Int64("user_id", id))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "patch user", err)
	}
	defer uow.Rollback()

	user, err := s.loadUser(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	var newHash string
	if req.CurrentPassword != "" {
		if !auth.CheckPassword(user.Password, req.CurrentPassword) {
			return nil, fail(ctx, s.log, "invalid current password",
				model.UnauthorizedError{Msg: "invalid current password"}, slog.Int64("user_id", id))
		}
		if req.NewPassword != "" {
			if err := auth.ValidatePassword(req.NewPassword); err != nil {
				return nil, fail(ctx, s.log, "invalid patch", model.InvalidOperationError{Op: model.OpUpdate, Msg: err.Error(), Err: err})
			}
			if newHash, err = auth.HashPassword(req.NewPassword); err != nil {
				return nil, fail(ctx, s.log, "hash password", err)
			}
		}
	}

	if err := s.checkIdentityChange(ctx, uow, user, req.Username, req.Email); err != nil {
		return nil, fail(ctx, s.log, "patch user", err, slog.Int64("user_id", id))
	}

	if newHash != "" {
		user.Password = newHash
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}

	if err := uow.Users.Update(ctx, user); err != nil {
		return nil, fail(ctx, s.log, "patch user", s.duplicate(err, req.Username), slog.Int64("user_id", id))
	}
	if _, err := uow.Save(ctx); err != nil {
		return nil, fail(ctx, s.log, "save user", err, slog.Int64("user_id", id))
	}

	s.log.InfoContext(ctx, "user patched", slog.Int64("user_id", id))
	return user, nil
}

func (s *UserService) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	if !role.Valid() {
		return fail(ctx, s.log, "invalid role", model.InvalidOperation(model.OpUpdate, "unknown role "+string(role)))
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fail(ctx, s.log, "update role", err)
	}
	defer uow.Rollback()

	found, err := uow.Users.UpdateRole(ctx, id, role)
	if err != nil {
		return fail(ctx, s.log, "update role", err, slog.Int64("user_id", id))
	}
	if !found {
		return fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, id))
	}
	if _, err := uow.Save(ctx); err != nil {
		return fail(ctx, s.log, "save role", err, slog.Int64("user_id", id))
	}

	s.log.InfoContext(ctx, "user role updated", slog.Int64("user_id", id), slog.String("role", string(role)))
	return nil
}

// DeleteUser removes the user and, by cascade, its profile.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fail(ctx, s.log, "delete user", err)
	}
	defer uow.Rollback()

	found, err := uow.Users.Delete(ctx, id)
	if err != nil {
		return fail(ctx, s.log, "delete user", err, slog.Int64("user_id", id))
	}
	if !found {
		return fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, id))
	}

	s.log.InfoContext(ctx, "user deleted", slog.Int64("user_id", id))
	return nil
}

func (s *UserService) UsernameExists(ctx context.Context, username string) (bool, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return false, fail(ctx, s.log, "check username", err)
	}
	defer uow.Rollback()

	return uow.Users.UsernameExists(ctx, username)
}

func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return false, fail(ctx, s.log, "check email", err)
	}
	defer uow.Rollback()

	return uow.Users.EmailExists(ctx, email)
}

// CitizenIDForUser resolves the citizen profile id owned by the user.
func (s *UserService) CitizenIDForUser(ctx context.Context, userID int64) (int64, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fail(ctx, s.log, "resolve citizen", err)
	}
	defer uow.Rollback()

	citizen, err := uow.Citizens.GetByUserID(ctx, userID)
	if err != nil {
		return 0, fail(ctx, s.log, "resolve citizen", err, slog.Int64("user_id", userID))
	}
	if citizen == nil {
		return 0, fail(ctx, s.log, "citizen not found", model.NotFound(model.ResourceCitizen, fmt.Sprintf("for user %d", userID)))
	}
	return citizen.ID, nil
}

func (s *UserService) loadUser(ctx context.Context, uow *repository.UnitOfWork, id int64) (*model.User, error) {
	user, err := uow.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err, slog.Int64("user_id", id))
	}
	if user == nil {
		return nil, fail(ctx, s.log, "user not found", model.NotFound(model.ResourceUser, id))
	}
	if err := uow.Users.LoadProfile(ctx, user); err != nil {
		return nil, fail(ctx, s.log, "get user", err, slog.Int64("user_id", id))
	}
	return user, nil
}

// checkIdentityChange rejects a new username or email already used by another user.
func (s *UserService) checkIdentityChange(ctx context.Context, uow *repository.UnitOfWork, user *model.User, username, email string) error {
	if username != "" && username != user.Username {
		taken, err := uow.Users.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return model.UserAlreadyExists(model.ResourceUsername, username)
		}
	}
	if email != "" && email != user.Email {
		taken, err := uow.Users.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return model.UserAlreadyExists(model.ResourceEmail, email)
		}
	}
	return nil
}

// missingDepartment reports a foreign key violation on the officer's
// department as a missing department.
func missingDepartment(err error, departmentID *int64) error {
	if !errors.Is(err, repository.ErrMissingReference) {
		return err
	}
	var key any
	if departmentID != nil {
		key = *departmentID
	}
	return model.NotFoundError{Resource: model.ResourceDepartment, Key: key, Err: err}
}

func (s *UserService) duplicate(err error, value string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return model.AlreadyExistsError{Resource: model.ResourceUser, Value: value, Err: err}
	}
	return err
}

func validateSignup(req *model.SignupRequest) error {
	invalid := func(msg string) error {
		return model.InvalidOperation(model.OpRegistration, msg)
	}

	if req.Username == "" {
		return invalid("username must be between 2 and 50 characters")
	}
	if req.Email == "" {
		return invalid("email is required and must not exceed 100 characters")
	}
	if strings.TrimSpace(req.Lastname) == "" {
		return invalid("lastname is required")
	}
	if err := checkUserFields(model.OpRegistration, req.Username, req.Email, req.Firstname, req.Lastname, req.Phone); err != nil {
		return err
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return invalid(err.Error())
	}
	if !req.Role.Valid() {
		return invalid("invalid user role")
	}
	if req.Role == model.RoleOfficer && req.DepartmentID <= 0 {
		return invalid("invalid department id")
	}
	return nil
}

// checkUserFields applies the column rules to every non-empty field.
func checkUserFields(op, username, email, firstname, lastname, phone string) error {
	switch {
	case username != "" && (len(username) < 2 || len(username) > 50):
		return model.InvalidOperation(op, "username must be between 2 and 50 characters")
	case len(email) > 100:
		return model.InvalidOperation(op, "email is required and must not exceed 100 characters")
	case email != "" && !validEmail(email):
		return model.InvalidOperation(op, "invalid email address")
	case len(firstname) > 50:
		return model.InvalidOperation(op, "firstname must not exceed 50 characters")
	case len(lastname) > 50:
		return model.InvalidOperation(op, "lastname must not exceed 50 characters")
	case phone != "" && !validPhone(phone):
		return model.InvalidOperation(op, "phone number must be 10 to 15 digits")
	}
	return nil
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func validPhone(phone string) bool {
	if len(phone) < 10 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
