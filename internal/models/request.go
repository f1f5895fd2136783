package models

import "time"

// RequestStatus defines lifecycle states for service requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting review.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusAccepted indicates the request was accepted for work.
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusInProgress indicates work on the request has started.
	RequestStatusInProgress RequestStatus = "in_progress"
	// RequestStatusCompleted indicates the work was delivered.
	RequestStatusCompleted RequestStatus = "completed"
	// RequestStatusRejected indicates the request was declined.
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestPriority defines the urgency tag attached to a service request.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "low"
	RequestPriorityMedium RequestPriority = "medium"
	RequestPriorityHigh   RequestPriority = "high"
)

// requestTransitions encodes the status state machine. Completed and
// rejected are terminal and have no outgoing edges.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:    {RequestStatusAccepted, RequestStatusInProgress, RequestStatusCompleted, RequestStatusRejected},
	RequestStatusAccepted:   {RequestStatusCompleted, RequestStatusRejected},
	RequestStatusInProgress: {RequestStatusCompleted, RequestStatusRejected},
}

// Valid reports whether s is one of the enumerated statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusInProgress,
		RequestStatusCompleted, RequestStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state (deletable by the admin).
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusRejected
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition. Setting the same status again (e.g. re-saving notes) is allowed.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range requestTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the enumerated priorities.
func (p RequestPriority) Valid() bool {
	switch p {
	case RequestPriorityLow, RequestPriorityMedium, RequestPriorityHigh:
		return true
	}
	return false
}

// Request is a client-submitted service request. The owner identity and the
// creation timestamp are immutable after creation; only the admin may change
// status and notes. Both timestamps are assigned by the database, never by
// the submitting client.
type Request struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OwnerID     uint            `gorm:"not null;index" json:"owner_id"`
	OwnerName   string          `gorm:"size:120" json:"owner_name"`
	OwnerEmail  string          `gorm:"size:254" json:"owner_email"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text;not null" json:"description"`
	RequestType string          `gorm:"size:60;not null" json:"request_type"`
	Priority    RequestPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Status      RequestStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNotes  string          `gorm:"type:text" json:"admin_notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DisplayStatus returns the status to render, defaulting absent values to
// pending for display purposes only. The default is never written back.
func (r *Request) DisplayStatus() RequestStatus {
	if r.Status == "" {
		return RequestStatusPending
	}
	return r.Status
}

// RequestStats are aggregate counts over the full request snapshot.
type RequestStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// CountRequests computes dashboard stats over an in-memory snapshot.
func CountRequests(requests []Request) RequestStats {
	stats := RequestStats{Total: len(requests)}
	for i := range requests {
		switch requests[i].DisplayStatus() {
		case RequestStatusPending:
			stats.Pending++
		case RequestStatusInProgress:
			stats.InProgress++
		case RequestStatusCompleted:
			stats.Completed++
		}
	}
	return stats
}
