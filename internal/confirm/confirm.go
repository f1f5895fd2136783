// Package confirm implements the destructive-action confirmation protocol
// for operator portals. A destructive operation is staged rather than
// executed; the operator must issue a separate confirm call to run it.
package confirm

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a staged action stays confirmable.
const DefaultTTL = 2 * time.Minute

// Action is a staged destructive operation. Execute runs the real
// side effect once the operator confirms.
type Action struct {
	Kind    string                          `json:"kind"`
	Prompt  string                          `json:"prompt"`
	Execute func(ctx context.Context) error `json:"-"`

	stagedAt time.Time
}

type entry struct {
	action  Action
	expires time.Time
}

// Store holds at most one pending action per operator. Staging a new
// action replaces any earlier one; confirmations never queue up.
type Store struct {
	mu      sync.Mutex
	pending map[uint]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a confirmation store with the given TTL.
// A non-positive ttl falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		pending: make(map[uint]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Stage registers action as the operator's pending action, replacing any
// previously staged one. It returns the prompt to show the operator.
func (s *Store) Stage(operatorID uint, action Action) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	action.stagedAt = s.now()
	s.pending[operatorID] = entry{
		action:  action,
		expires: action.stagedAt.Add(s.ttl),
	}
	return action.Prompt
}

// Confirm executes and clears the operator's pending action. When nothing
// is staged, or the staged action has expired, Confirm is a harmless no-op
// and returns ok=false.
func (s *Store) Confirm(ctx context.Context, operatorID uint) (ok bool, err error) {
	s.mu.Lock()
	e, found := s.pending[operatorID]
	if found {
		delete(s.pending, operatorID)
	}
	s.mu.Unlock()

	if !found || s.now().After(e.expires) {
		return false, nil
	}
	return true, e.action.Execute(ctx)
}

// Dismiss clears the operator's pending action without executing it.
func (s *Store) Dismiss(operatorID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, operatorID)
}

// Peek returns the operator's pending action without consuming it, for
// re-rendering the confirmation prompt. ok is false when nothing usable
// is staged.
func (s *Store) Peek(operatorID uint) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.pending[operatorID]
	if !found || s.now().After(e.expires) {
		return Action{}, false
	}
	return e.action, true
}
