package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

type draftEntry struct {
	draft     purchasing.Draft
	expiresAt time.Time
}

// InMemoryDraftStore keeps drafts in process memory. Drafts expire after
// the configured TTL of inactivity; a zero TTL keeps them forever.
type InMemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	drafts map[uuid.UUID]draftEntry
	now    func() time.Time
}

// NewInMemoryDraftStore creates an empty draft store
func NewInMemoryDraftStore(ttl time.Duration) *InMemoryDraftStore {
	return &InMemoryDraftStore{
		ttl:    ttl,
		drafts: make(map[uuid.UUID]draftEntry),
		now:    time.Now,
	}
}

// Get returns a copy of the stored draft
func (s *InMemoryDraftStore) Get(_ context.Context, id uuid.UUID) (*purchasing.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return nil, shared.NewNotFoundError("draft", id)
	}
	d := cloneDraft(e.draft)
	return &d, nil
}

// Save stores draft if the stored revision equals expectedRevision
// (0 when the draft must not exist yet).
func (s *InMemoryDraftStore) Save(_ context.Context, draft purchasing.Draft, expectedRevision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := 0
	if e, ok := s.lookup(draft.ID); ok {
		current = e.draft.Revision
	}
	if current != expectedRevision {
		return shared.ErrConcurrencyConflict
	}

	entry := draftEntry{draft: cloneDraft(draft)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.drafts[draft.ID] = entry
	return nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (s *InMemoryDraftStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

// Len returns the number of live drafts
func (s *InMemoryDraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.drafts {
		if _, ok := s.lookup(id); ok {
			n++
		}
	}
	return n
}

// lookup must be called with mu held. Expired entries are dropped.
func (s *InMemoryDraftStore) lookup(id uuid.UUID) (draftEntry, bool) {
	e, ok := s.drafts[id]
	if !ok {
		return draftEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.drafts, id)
		return draftEntry{}, false
	}
	return e, true
}

func cloneDraft(d purchasing.Draft) purchasing.Draft {
	lines := make([]purchasing.DraftLine, len(d.Lines))
	copy(lines, d.Lines)
	d.Lines = lines
	return d
}
