package model

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleCitizen, RoleOfficer, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Password  string  `json:"-"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone_number"`
	Role      Role    `json:"role"`
	Profile   Profile `json:"-"`
}

// Profile is the role-specific extension of a User. Exactly one of
// *Citizen, *Officer or *Admin, or nil when none has been loaded.
type Profile interface {
	ProfileRole() Role
	profile()
}

type Citizen struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (*Citizen) ProfileRole() Role { return RoleCitizen }
func (*Citizen) profile()          {}

type Officer struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

func (*Officer) ProfileRole() Role { return RoleOfficer }
func (*Officer) profile()          {}

type Admin struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (*Admin) ProfileRole() Role { return RoleAdmin }
func (*Admin) profile()          {}

// Citizen returns the citizen profile, or nil if the user holds another one.
func (u *User) Citizen() *Citizen {
	c, _ := u.Profile.(*Citizen)
	return c
}

func (u *User) Officer() *Officer {
	o, _ := u.Profile.(*Officer)
	return o
}

func (u *User) Admin() *Admin {
	a, _ := u.Profile.(*Admin)
	return a
}

// CitizenWithUser, OfficerWithUser and AdminWithUser are listing rows that
// carry the owning user next to the profile.
type CitizenWithUser struct {
	Citizen
	User User `json:"user"`
}

type OfficerWithUser struct {
	Officer
	User User `json:"user"`
}

type AdminWithUser struct {
	Admin
	User User `json:"user"`
}
