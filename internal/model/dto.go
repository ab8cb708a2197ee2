package model

// Request/Response

type SignupRequest struct {
	Username     string `json:"username" binding:"required,min=2,max=50"`
	Email        string `json:"email" binding:"required,email,max=100"`
	Password     string `json:"password" binding:"required,min=8,max=100"`
	Firstname    string `json:"firstname" binding:"max=50"`
	Lastname     string `json:"lastname" binding:"required,max=50"`
	Phone        string `json:"phone_number" binding:"omitempty,numeric,min=10,max=15"`
	DepartmentID int64  `json:"department_id"`
	Role         Role   `json:"role" binding:"required"`
}

// LoginRequest accepts either the username or the email in Username.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

// UserUpdateRequest is a full update; empty fields are left unchanged.
type UserUpdateRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Phone        string `json:"phone_number"`
	Role         Role   `json:"role"`
	DepartmentID *int64 `json:"department_id"`
}

func (r UserUpdateRequest) Empty() bool {
	return r.Username == "" && r.Password == "" && r.Email == "" && r.Firstname == "" &&
		r.Lastname == "" && r.Phone == "" && r.Role == "" && r.DepartmentID == nil
}

type UserPatchRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type RoleUpdateRequest struct {
	Role Role `json:"role" binding:"required"`
}

type UserFilters struct {
	Username string `form:"username"`
	Role     Role   `form:"role"`
}

type SubmitRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=1000"`
}

type RequestFilters struct {
	Title        string        `form:"title"`
	Status       RequestStatus `form:"status"`
	CitizenID    int64         `form:"-"`
	DepartmentID int64         `form:"department_id"`
}

type AssignRequest struct {
	DepartmentID int64 `json:"department_id"`
}

type StatusUpdateRequest struct {
	Status RequestStatus `json:"status" binding:"required"`
}

type DepartmentRequest struct {
	Title string `json:"title" binding:"required,max=100"`
}

// DepartmentFilters bounds are inclusive and each is optional.
type DepartmentFilters struct {
	Title       string `form:"title"`
	MinOfficers *int64 `form:"min_officers"`
	MaxOfficers *int64 `form:"max_officers"`
	MinRequests *int64 `form:"min_requests"`
	MaxRequests *int64 `form:"max_requests"`
}

type OfficerAssignRequest struct {
	DepartmentID int64 `json:"department_id" binding:"required"`
}

// ListResponse is the envelope used by every paged listing.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
}
