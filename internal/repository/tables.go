package repository

import (
	"database/sql"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

// Filter field names shared by services and handlers.
const (
	FieldID           = "id"
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldLastname     = "lastname"
	FieldRole         = "role"
	FieldUserID       = "user_id"
	FieldDepartmentID = "department_id"
	FieldTitle        = "title"
	FieldStatus       = "status"
	FieldCitizenID    = "citizen_id"
	FieldRequestID    = "request_id"
	FieldOfficerCount = "officer_count"
	FieldRequestCount = "request_count"
)

var userTable = &Table[model.User]{
	Name:    "users",
	Columns: []string{"username", "password", "firstname", "lastname", "email", "phone_number", "role"},
	Fields: map[string]string{
		FieldID:       "users.id",
		FieldUsername: "users.username",
		FieldEmail:    "users.email",
		FieldLastname: "users.lastname",
		FieldRole:     "users.role",
	},
	Scan: func(row scanner) (*model.User, error) {
		u := &model.User{}
		err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Firstname, &u.Lastname, &u.Email, &u.Phone, &u.Role)
		if err != nil {
			return nil, err
		}
		return u, nil
	},
	Values: func(u *model.User) []any {
		return []any{u.Username, u.Password, u.Firstname, u.Lastname, u.Email, u.Phone, u.Role}
	},
	ID:    func(u *model.User) int64 { return u.ID },
	SetID: func(u *model.User, id int64) { u.ID = id },
}

var citizenTable = &Table[model.Citizen]{
	Name:    "citizens",
	Columns: []string{"user_id"},
	Fields: map[string]string{
		FieldID:     "citizens.id",
		FieldUserID: "citizens.user_id",
	},
	Scan: func(row scanner) (*model.Citizen, error) {
		c := &model.Citizen{}
		if err := row.Scan(&c.ID, &c.UserID); err != nil {
			return nil, err
		}
		return c, nil
	},
	Values: func(c *model.Citizen) []any { return []any{c.UserID} },
	ID:     func(c *model.Citizen) int64 { return c.ID },
	SetID:  func(c *model.Citizen, id int64) { c.ID = id },
}

var officerTable = &Table[model.Officer]{
	Name:    "officers",
	Columns: []string{"user_id", "department_id"},
	Fields: map[string]string{
		FieldID:           "officers.id",
		FieldUserID:       "officers.user_id",
		FieldDepartmentID: "officers.department_id",
	},
	Scan: func(row scanner) (*model.Officer, error) {
		o := &model.Officer{}
		var dept sql.NullInt64
		if err := row.Scan(&o.ID, &o.UserID, &dept); err != nil {
			return nil, err
		}
		o.DepartmentID = nullableID(dept)
		return o, nil
	},
	Values: func(o *model.Officer) []any { return []any{o.UserID, o.DepartmentID} },
	ID:     func(o *model.Officer) int64 { return o.ID },
	SetID:  func(o *model.Officer, id int64) { o.ID = id },
}

var adminTable = &Table[model.Admin]{
	Name:    "admins",
	Columns: []string{"user_id"},
	Fields: map[string]string{
		FieldID:     "admins.id",
		FieldUserID: "admins.user_id",
	},
	Scan: func(row scanner) (*model.Admin, error) {
		a := &model.Admin{}
		if err := row.Scan(&a.ID, &a.UserID); err != nil {
			return nil, err
		}
		return a, nil
	},
	Values: func(a *model.Admin) []any { return []any{a.UserID} },
	ID:     func(a *model.Admin) int64 { return a.ID },
	SetID:  func(a *model.Admin, id int64) { a.ID = id },
}

const (
	officerCountExpr = "(SELECT COUNT(*) FROM officers o WHERE o.department_id = departments.id)"
	requestCountExpr = "(SELECT COUNT(*) FROM requests r WHERE r.assigned_department_id = departments.id)"
)

var departmentTable = &Table[model.Department]{
	Name:    "departments",
	Columns: []string{"title"},
	Fields: map[string]string{
		FieldID:           "departments.id",
		FieldTitle:        "departments.title",
		FieldOfficerCount: officerCountExpr,
		FieldRequestCount: requestCountExpr,
	},
	Scan: func(row scanner) (*model.Department, error) {
		d := &model.Department{}
		if err := row.Scan(&d.ID, &d.Title); err != nil {
			return nil, err
		}
		return d, nil
	},
	Values: func(d *model.Department) []any { return []any{d.Title} },
	ID:     func(d *model.Department) int64 { return d.ID },
	SetID:  func(d *model.Department, id int64) { d.ID = id },
}

var requestTable = &Table[model.Request]{
	Name: "requests",
	Columns: []string{
		"title", "description", "status", "create_date", "update_date", "citizen_id", "assigned_department_id",
	},
	Fields: map[string]string{
		FieldID:           "requests.id",
		FieldTitle:        "requests.title",
		FieldStatus:       "requests.status",
		FieldCitizenID:    "requests.citizen_id",
		FieldDepartmentID: "requests.assigned_department_id",
	},
	Scan: func(row scanner) (*model.Request, error) {
		r := &model.Request{}
		var dept sql.NullInt64
		err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Status, &r.CreateDate, &r.UpdateDate, &r.CitizenID, &dept)
		if err != nil {
			return nil, err
		}
		r.AssignedDepartmentID = nullableID(dept)
		return r, nil
	},
	Values: func(r *model.Request) []any {
		return []any{r.Title, r.Description, r.Status, r.CreateDate, r.UpdateDate, r.CitizenID, r.AssignedDepartmentID}
	},
	ID:    func(r *model.Request) int64 { return r.ID },
	SetID: func(r *model.Request, id int64) { r.ID = id },
}

// detailTables holds one status-detail table per request status.
var detailTables = map[model.RequestStatus]*Table[model.StatusDetail]{
	model.StatusPending:    newDetailTable("request_pendings"),
	model.StatusInProgress: newDetailTable("request_in_progresses"),
	model.StatusCompleted:  newDetailTable("request_completes"),
}

func newDetailTable(name string) *Table[model.StatusDetail] {
	return &Table[model.StatusDetail]{
		Name:    name,
		Columns: []string{"request_id", "title", "description", "recorded_at"},
		Fields: map[string]string{
			FieldID:        name + ".id",
			FieldRequestID: name + ".request_id",
		},
		Scan: func(row scanner) (*model.StatusDetail, error) {
			d := &model.StatusDetail{}
			if err := row.Scan(&d.ID, &d.RequestID, &d.Title, &d.Description, &d.RecordedAt); err != nil {
				return nil, err
			}
			return d, nil
		},
		Values: func(d *model.StatusDetail) []any {
			return []any{d.RequestID, d.Title, d.Description, d.RecordedAt}
		},
		ID:    func(d *model.StatusDetail) int64 { return d.ID },
		SetID: func(d *model.StatusDetail, id int64) { d.ID = id },
	}
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
