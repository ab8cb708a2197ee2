package model

import "time"

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
)

var Statuses = []RequestStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s RequestStatus) Valid() bool {
	return s.rank() >= 0
}

// rank orders statuses along the request lifecycle.
func (s RequestStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// Precedes reports whether s comes strictly before next in the lifecycle.
func (s RequestStatus) Precedes(next RequestStatus) bool {
	return s.Valid() && next.Valid() && s.rank() < next.rank()
}

type Request struct {
	ID                   int64         `json:"id"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Status               RequestStatus `json:"status"`
	CreateDate           time.Time     `json:"create_date"`
	UpdateDate           time.Time     `json:"update_date"`
	CitizenID            int64         `json:"citizen_id"`
	AssignedDepartmentID *int64        `json:"assigned_department_id,omitempty"`
}

// StatusDetail is the per-status record captured when a request enters a status.
type StatusDetail struct {
	ID          int64     `json:"id"`
	RequestID   int64     `json:"request_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// RequestDetails is a request with its reporter and assignee resolved.
type RequestDetails struct {
	Request
	Citizen    Citizen     `json:"citizen"`
	Reporter   User        `json:"reporter"`
	Department *Department `json:"assigned_department,omitempty"`
}
