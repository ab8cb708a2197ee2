package messaging

import (
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

const (
	ExchangeName           = "publicspace.requests"
	DeadLetterExchangeName = "publicspace.requests.dlx"
	QueueName              = "request.events"
	DeadLetterQueueName    = "request.events.dlq"

	RoutingKeyRequestSubmitted = "request.submitted"
	RoutingKeyRequestAssigned  = "request.assigned"
	RoutingKeyStatusUpdated    = "request.status.updated"
)

// RoutingKeys lists every key bound to the events queue.
var RoutingKeys = []string{RoutingKeyRequestSubmitted, RoutingKeyRequestAssigned, RoutingKeyStatusUpdated}

type RequestSubmittedEvent struct {
	RequestID int64  `json:"request_id"`
	Title     string `json:"title"`
	CitizenID int64  `json:"citizen_id"`
	Timestamp int64  `json:"timestamp"`
}

type RequestAssignedEvent struct {
	RequestID    int64 `json:"request_id"`
	DepartmentID int64 `json:"department_id"`
	Timestamp    int64 `json:"timestamp"`
}

type StatusUpdatedEvent struct {
	RequestID int64               `json:"request_id"`
	Title     string              `json:"title"`
	OldStatus model.RequestStatus `json:"old_status"`
	NewStatus model.RequestStatus `json:"new_status"`
	CitizenID int64               `json:"citizen_id"`
	Timestamp int64               `json:"timestamp"`
}
