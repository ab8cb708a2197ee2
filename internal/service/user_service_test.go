package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/auth"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

func newUserService(t *testing.T) (*UserService, sqlmock.Sqlmock, *metrics.Metrics) {
	store, mock := newTestStore(t)
	m := metrics.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(store, tokens, m, discardLogger), mock, m
}

func validSignup(role model.Role) *model.SignupRequest {
	return &model.SignupRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "Str0ng!pass",
		Firstname: "Alice",
		Lastname:  "Smith",
		Phone:     "2101234567",
		Role:      role,
	}
}

func TestUserService_SignUpCitizen(t *testing.T) {
	svc, mock, m := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE \(users.username = \$1\)`).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE \(users.email = \$1\)`).WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", sqlmock.AnyArg(), "Alice", "Smith", "alice@example.com", "2101234567", "citizen").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO citizens \(user_id\) VALUES \(\$1\) RETURNING id`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	user, err := svc.SignUp(context.Background(), validSignup(model.RoleCitizen))
	require.NoError(t, err)

	assert.Equal(t, int64(7), user.ID)
	assert.True(t, auth.CheckPassword(user.Password, "Str0ng!pass"))
	require.NotNil(t, user.Citizen())
	assert.Equal(t, int64(3), user.Citizen().ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SignUps.WithLabelValues("citizen")))
}

func TestUserService_SignUpOfficerWithUnknownDepartment(t *testing.T) {
	svc, mock, _ := newUserService(t)
	req := validSignup(model.RoleOfficer)
	req.DepartmentID = 99

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE \(users.username`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM users WHERE \(users.email`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM departments WHERE departments.id = \$1`).WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))
	mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectQuery(`INSERT INTO officers \(user_id,department_id\)`).WithArgs(8, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	user, err := svc.SignUp(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, user.Officer())
	assert.Nil(t, user.Officer().DepartmentID)
}

func TestUserService_SignUpRejectsTakenUsername(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE \(users.username`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.SignUp(context.Background(), validSignup(model.RoleCitizen))

	var exists model.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, model.ResourceUsername, exists.Field)
}

func TestUserService_SignUpValidation(t *testing.T) {
	svc, _, _ := newUserService(t)

	tests := []struct {
		name   string
		mutate func(*model.SignupRequest)
	}{
		{"short username", func(r *model.SignupRequest) { r.Username = "a" }},
		{"bad email", func(r *model.SignupRequest) { r.Email = "not-an-email" }},
		{"weak password", func(r *model.SignupRequest) { r.Password = "password" }},
		{"missing lastname", func(r *model.SignupRequest) { r.Lastname = " " }},
		{"bad phone", func(r *model.SignupRequest) { r.Phone = "12ab" }},
		{"unknown role", func(r *model.SignupRequest) { r.Role = "mayor" }},
		{"officer without department", func(r *model.SignupRequest) { r.Role = model.RoleOfficer }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSignup(model.RoleCitizen)
			tt.mutate(req)
			_, err := svc.SignUp(context.Background(), req)
			assert.True(t, model.IsInvalidOperation(err), "got %v", err)
		})
	}
}

func TestUserService_Login(t *testing.T) {
	hash, err := auth.HashPassword("Str0ng!pass")
	require.NoError(t, err)

	credentialsQuery := `FROM users WHERE \(users.username = \$1 OR users.email = \$2\)`
	userRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(userColumns).
			AddRow(7, "alice", hash, "Alice", "Smith", "alice@example.com", "", "citizen")
	}

	t.Run("valid credentials", func(t *testing.T) {
		svc, mock, _ := newUserService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(credentialsQuery).WithArgs("alice@example.com", "alice@example.com").WillReturnRows(userRow())
		mock.ExpectRollback()

		resp, err := svc.Login(context.Background(), &model.LoginRequest{Username: "alice@example.com", Password: "Str0ng!pass"})
		require.NoError(t, err)
		assert.Equal(t, "alice", resp.Username)
		assert.Equal(t, model.RoleCitizen, resp.Role)

		claims, err := svc.tokens.Parse(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "7", claims.Subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mock, _ := newUserService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(credentialsQuery).WillReturnRows(userRow())
		mock.ExpectRollback()

		_, err := svc.Login(context.Background(), &model.LoginRequest{Username: "alice", Password: "Wr0ng!pass"})
		assert.True(t, model.IsUnauthorized(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, mock, _ := newUserService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(credentialsQuery).WillReturnRows(sqlmock.NewRows(userColumns))
		mock.ExpectRollback()

		_, err := svc.Login(context.Background(), &model.LoginRequest{Username: "ghost", Password: "x"})
		assert.True(t, model.IsNotFoundOf(err, model.ResourceUser))
	})
}

func TestUserService_UpdatePatchWrongPasswordChangesNothing(t *testing.T) {
	svc, mock, _ := newUserService(t)
	hash, err := auth.HashPassword("Str0ng!pass")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE users.id = \$1`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "alice", hash, "Alice", "Smith", "alice@example.com", "", "citizen"))
	mock.ExpectQuery(`FROM citizens WHERE \(citizens.user_id = \$1\)`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectRollback()

	_, err = svc.UpdatePatch(context.Background(), 7, &model.UserPatchRequest{
		Username:        "alice2",
		CurrentPassword: "Wr0ng!pass",
		NewPassword:     "N3w!password",
	})
	assert.True(t, model.IsUnauthorized(err))
}

func TestUserService_UpdateFullRejectsEmpty(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.UpdateFull(context.Background(), 7, &model.UserUpdateRequest{})
	assert.True(t, model.IsInvalidOperation(err))
}

func TestUserService_UpdateRoleMissingUser(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET role = \$1 WHERE id = \$2`).WithArgs("admin", 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.UpdateRole(context.Background(), 42, model.RoleAdmin)
	assert.True(t, model.IsNotFoundOf(err, model.ResourceUser))
}

func TestUserService_CitizenIDForUser(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM citizens WHERE \(citizens.user_id = \$1\)`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM citizens WHERE \(citizens.user_id = \$1\)`).WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectRollback()

	id, err := svc.CitizenIDForUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	_, err = svc.CitizenIDForUser(context.Background(), 8)
	assert.True(t, model.IsNotFoundOf(err, model.ResourceCitizen))
}

func TestUserService_SignUpRejectsTakenEmail(t *testing.T) {
	svc, mock, _ := newUserService(t)
	req := validSignup(model.RoleCitizen)
	req.Username = "alice2"

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE \(users.username`).WithArgs("alice2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM users WHERE \(users.email`).WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.SignUp(context.Background(), req)

	var exists model.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, model.ResourceEmail, exists.Field)
	assert.Equal(t, "alice@example.com", exists.Value)
}

const (
	userByID       = `FROM users WHERE users.id = \$1`
	citizenByUser  = `FROM citizens WHERE \(citizens.user_id = \$1\)`
	officerByUser  = `FROM officers WHERE \(officers.user_id = \$1\)`
	updateUserStmt = `UPDATE users SET username = \$1, password = \$2, firstname = \$3, lastname = \$4, email = \$5, phone_number = \$6, role = \$7 WHERE id = \$8`
)

func storedUser(t *testing.T, role model.Role) (*sqlmock.Rows, string) {
	t.Helper()
	hash, err := auth.HashPassword("Str0ng!pass")
	require.NoError(t, err)
	return sqlmock.NewRows(userColumns).
		AddRow(7, "alice", hash, "Alice", "Smith", "alice@example.com", "2101234567", string(role)), hash
}

func TestUserService_UpdateFullCitizenToOfficer(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, hash := storedUser(t, model.RoleCitizen)
	dept := int64(4)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(citizenByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectQuery(`INSERT INTO officers \(user_id,department_id\) VALUES \(\$1,\$2\) RETURNING id`).WithArgs(7, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(updateUserStmt).
		WithArgs("alice", hash, "Alice", "Smith", "alice@example.com", "2101234567", "officer", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.UpdateFull(context.Background(), 7, &model.UserUpdateRequest{Role: model.RoleOfficer, DepartmentID: &dept})
	require.NoError(t, err)

	assert.Equal(t, model.RoleOfficer, user.Role)
	require.NotNil(t, user.Officer())
	assert.Equal(t, int64(2), user.Officer().ID)
	require.NotNil(t, user.Officer().DepartmentID)
	assert.Equal(t, int64(4), *user.Officer().DepartmentID)
}

func TestUserService_UpdateFullOfficerWithMissingDepartment(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, _ := storedUser(t, model.RoleCitizen)
	dept := int64(999)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(citizenByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectQuery(`INSERT INTO officers`).WithArgs(7, 999).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "officers_department_id_fkey"})
	mock.ExpectRollback()

	_, err := svc.UpdateFull(context.Background(), 7, &model.UserUpdateRequest{Role: model.RoleOfficer, DepartmentID: &dept})

	var notFound model.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, model.ResourceDepartment, notFound.Resource)
	assert.Equal(t, int64(999), notFound.Key)
}

func TestUserService_UpdateFullOfficerToCitizen(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, hash := storedUser(t, model.RoleOfficer)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(officerByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "department_id"}).AddRow(2, 7, 4))
	mock.ExpectExec(`DELETE FROM officers WHERE user_id = \$1`).WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(citizenByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectExec(updateUserStmt).
		WithArgs("alice", hash, "Alice", "Smith", "alice@example.com", "2101234567", "citizen", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.UpdateFull(context.Background(), 7, &model.UserUpdateRequest{Role: model.RoleCitizen})
	require.NoError(t, err)

	assert.Equal(t, model.RoleCitizen, user.Role)
	assert.Nil(t, user.Officer())
	require.NotNil(t, user.Citizen())
	assert.Equal(t, int64(3), user.Citizen().ID)
}

func TestUserService_UpdateFullMovesOfficerToAnotherDepartment(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, hash := storedUser(t, model.RoleOfficer)
	dept := int64(5)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(officerByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "department_id"}).AddRow(2, 7, 4))
	mock.ExpectExec(`UPDATE officers SET user_id = \$1, department_id = \$2 WHERE id = \$3`).WithArgs(7, 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateUserStmt).
		WithArgs("alice", hash, "Alice", "Smith", "alice@example.com", "2101234567", "officer", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.UpdateFull(context.Background(), 7, &model.UserUpdateRequest{DepartmentID: &dept})
	require.NoError(t, err)

	require.NotNil(t, user.Officer())
	assert.Equal(t, int64(2), user.Officer().ID)
	assert.Equal(t, int64(5), *user.Officer().DepartmentID)
}

func TestUserService_UpdatePatch(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, _ := storedUser(t, model.RoleCitizen)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(citizenByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectQuery(`FROM users WHERE \(users.username = \$1\)`).WithArgs("alice2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM users WHERE \(users.email = \$1\)`).WithArgs("alice2@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(updateUserStmt).
		WithArgs("alice2", sqlmock.AnyArg(), "Alice", "Smith", "alice2@example.com", "2101234567", "citizen", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.UpdatePatch(context.Background(), 7, &model.UserPatchRequest{
		Username:        "alice2",
		Email:           "alice2@example.com",
		CurrentPassword: "Str0ng!pass",
		NewPassword:     "N3w!passw0rd",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "alice2@example.com", user.Email)
	assert.True(t, auth.CheckPassword(user.Password, "N3w!passw0rd"))
}

func TestUserService_UpdatePatchIgnoresNewPasswordWithoutCurrent(t *testing.T) {
	svc, mock, _ := newUserService(t)
	rows, hash := storedUser(t, model.RoleCitizen)

	mock.ExpectBegin()
	mock.ExpectQuery(userByID).WithArgs(7).WillReturnRows(rows)
	mock.ExpectQuery(citizenByUser).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	mock.ExpectExec(updateUserStmt).
		WithArgs("alice", hash, "Alice", "Smith", "alice@example.com", "2101234567", "citizen", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.UpdatePatch(context.Background(), 7, &model.UserPatchRequest{NewPassword: "N3w!passw0rd"})
	require.NoError(t, err)

	assert.Equal(t, hash, user.Password)
	assert.True(t, auth.CheckPassword(user.Password, "Str0ng!pass"))
}

func TestUserService_UpdateRejectsInvalidFields(t *testing.T) {
	svc, _, _ := newUserService(t)
	long := strings.Repeat("x", 51)

	updates := []struct {
		name string
		req  *model.UserUpdateRequest
	}{
		{"bad email", &model.UserUpdateRequest{Email: "not-an-email"}},
		{"long email", &model.UserUpdateRequest{Email: strings.Repeat("a", 95) + "@example.com"}},
		{"long username", &model.UserUpdateRequest{Username: long}},
		{"short username", &model.UserUpdateRequest{Username: "a"}},
		{"long firstname", &model.UserUpdateRequest{Firstname: long}},
		{"long lastname", &model.UserUpdateRequest{Lastname: long}},
		{"bad phone", &model.UserUpdateRequest{Phone: "2101234567890123"}},
	}
	for _, tt := range updates {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateFull(context.Background(), 7, tt.req)
			assert.True(t, model.IsInvalidOperation(err), "got %v", err)
		})
	}

	_, err := svc.UpdatePatch(context.Background(), 7, &model.UserPatchRequest{Email: "alice@"})
	assert.True(t, model.IsInvalidOperation(err), "got %v", err)
	_, err = svc.UpdatePatch(context.Background(), 7, &model.UserPatchRequest{Username: long})
	assert.True(t, model.IsInvalidOperation(err), "got %v", err)
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc, mock, _ := newUserService(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		assert.NoError(t, svc.DeleteUser(context.Background(), 7))
	})

	t.Run("not found", func(t *testing.T) {
		svc, mock, _ := newUserService(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := svc.DeleteUser(context.Background(), 42)
		assert.True(t, model.IsNotFoundOf(err, model.ResourceUser))
	})
}
