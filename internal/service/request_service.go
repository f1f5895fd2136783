// Package service holds the business rules sitting between handlers and
// repositories.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"senyo/internal/models"
	"senyo/internal/observability"
	"senyo/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000

	// previewLen is how many characters of the description appear in
	// list views before truncation.
	previewLen = 140
)

// RequestService implements the request lifecycle rules.
type RequestService struct {
	requestRepo repository.RequestRepository
}

// NewRequestService returns a RequestService backed by the given repository.
func NewRequestService(requestRepo repository.RequestRepository) *RequestService {
	return &RequestService{requestRepo: requestRepo}
}

// CreateRequestInput carries client-supplied fields for a new request. The
// owner identity comes from the session, never from the request body.
type CreateRequestInput struct {
	OwnerID     uint
	OwnerName   string
	OwnerEmail  string
	Title       string
	Description string
	RequestType string
	Priority    string
}

// RequestSummary is the list-view shape of a request. Description is cut to
// a preview; the full text is only in the detail payload.
type RequestSummary struct {
	ID          uint                   `json:"id"`
	Title       string                 `json:"title"`
	Preview     string                 `json:"preview"`
	RequestType string                 `json:"request_type"`
	Priority    models.RequestPriority `json:"priority"`
	Status      models.RequestStatus   `json:"status"`
	AdminNotes  string                 `json:"admin_notes,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Create validates and persists a new request. Status always starts at
// pending regardless of anything the client sent.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	span, ctx := observability.NewSpan(ctx, "request.create")
	defer span.End()
	span.AddAttributes(attribute.Int("owner_id", int(in.OwnerID)))

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	requestType := strings.TrimSpace(in.RequestType)

	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
	}
	if description == "" {
		return nil, models.NewValidationError("Description is required")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Description too long (max %d characters)", maxDescriptionLen))
	}
	if requestType == "" {
		return nil, models.NewValidationError("Request type is required")
	}

	priority := models.RequestPriority(in.Priority)
	if in.Priority == "" {
		priority = models.RequestPriorityMedium
	}
	if !priority.Valid() {
		return nil, models.NewValidationError("Priority must be low, medium or high")
	}

	req := &models.Request{
		OwnerID:     in.OwnerID,
		OwnerName:   in.OwnerName,
		OwnerEmail:  in.OwnerEmail,
		Title:       title,
		Description: description,
		RequestType: requestType,
		Priority:    priority,
		Status:      models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		span.SetError(err)
		return nil, err
	}
	return req, nil
}

// ListOwn returns the owner's requests as previews, newest first.
func (s *RequestService) ListOwn(ctx context.Context, ownerID uint) ([]RequestSummary, error) {
	requests, err := s.requestRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	summaries := make([]RequestSummary, 0, len(requests))
	for i := range requests {
		summaries = append(summaries, summarize(&requests[i]))
	}
	return summaries, nil
}

// GetOwn returns the full request, refusing access to anyone but the owner.
func (s *RequestService) GetOwn(ctx context.Context, id, ownerID uint) (*models.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != ownerID {
		// Report not-found rather than confirming the request exists.
		return nil, models.NewNotFoundError("Request", id)
	}
	return req, nil
}

// AdminListResult is the operator dashboard payload: the filtered rows plus
// stats computed over the unfiltered snapshot.
type AdminListResult struct {
	Requests []models.Request    `json:"requests"`
	Stats    models.RequestStats `json:"stats"`
}

// AdminList returns every request, optionally narrowed by status and/or
// priority. The stats always cover the full snapshot so filters never skew
// the dashboard.
func (s *RequestService) AdminList(ctx context.Context, statusFilter, priorityFilter string) (*AdminListResult, error) {
	all, err := s.requestRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &AdminListResult{
		Requests: all,
		Stats:    models.CountRequests(all),
	}

	if statusFilter != "" {
		filter := models.RequestStatus(statusFilter)
		if !filter.Valid() {
			return nil, models.NewValidationError("Unknown status filter")
		}
		filtered := make([]models.Request, 0, len(result.Requests))
		for i := range result.Requests {
			if result.Requests[i].DisplayStatus() == filter {
				filtered = append(filtered, result.Requests[i])
			}
		}
		result.Requests = filtered
	}

	if priorityFilter != "" {
		filter := models.RequestPriority(priorityFilter)
		if !filter.Valid() {
			return nil, models.NewValidationError("Unknown priority filter")
		}
		filtered := make([]models.Request, 0, len(result.Requests))
		for i := range result.Requests {
			if result.Requests[i].Priority == filter {
				filtered = append(filtered, result.Requests[i])
			}
		}
		result.Requests = filtered
	}

	return result, nil
}

// UpdateInput carries the admin-writable fields. A nil AdminNotes leaves
// the stored notes untouched.
type UpdateInput struct {
	ID         uint
	Status     string
	AdminNotes *string
}

// Update applies a status transition and/or notes edit. Transitions are
// checked against the state machine; terminal states accept no new status.
func (s *RequestService) Update(ctx context.Context, in UpdateInput) (*models.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Status != "" {
		next := models.RequestStatus(in.Status)
		if !next.Valid() {
			return nil, models.NewValidationError("Unknown status")
		}
		current := req.DisplayStatus()
		if !current.CanTransitionTo(next) {
			return nil, models.NewValidationError(
				fmt.Sprintf("Cannot move a %s request to %s", current, next))
		}
		req.Status = next
	}
	if in.AdminNotes != nil {
		req.AdminNotes = *in.AdminNotes
	}

	if err := s.requestRepo.UpdateStatusNotes(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Delete removes a request. Only completed or rejected requests may go.
func (s *RequestService) Delete(ctx context.Context, id uint) (*models.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.DisplayStatus().Terminal() {
		return nil, models.NewValidationError("Only completed or rejected requests can be deleted")
	}
	if err := s.requestRepo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return req, nil
}

func summarize(req *models.Request) RequestSummary {
	return RequestSummary{
		ID:          req.ID,
		Title:       req.Title,
		Preview:     Preview(req.Description),
		RequestType: req.RequestType,
		Priority:    req.Priority,
		Status:      req.DisplayStatus(),
		AdminNotes:  req.AdminNotes,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
	}
}

// Preview shortens a description for list views, appending an ellipsis when
// anything was cut. Truncation is rune-safe.
func Preview(description string) string {
	if utf8.RuneCountInString(description) <= previewLen {
		return description
	}
	runes := []rune(description)
	return strings.TrimRight(string(runes[:previewLen]), " ") + "…"
}
