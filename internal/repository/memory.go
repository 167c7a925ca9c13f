package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

// MemoryTicketStore is a process-local TicketStore used for local runs
// (STORE=memory) and tests. The mutex gives it the same per-row CAS
// semantics as the Postgres implementation.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*db.Ticket
	now     func() time.Time
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets: make(map[string]*db.Ticket),
		now:     time.Now,
	}
}

func (s *MemoryTicketStore) Create(_ context.Context, t *db.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; ok {
		return apperr.Conflict("create ticket", "ticket %s already exists", t.ID)
	}
	t.UpdatedAt = t.EntryAt
	s.tickets[t.ID] = t.Clone()
	return nil
}

func (s *MemoryTicketStore) GetByID(_ context.Context, id string) (*db.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("get ticket", "ticket %s not found", id)
	}
	return t.Clone(), nil
}

func (s *MemoryTicketStore) UpdateIfStatus(_ context.Context, id string, expected []db.Status, change db.TicketChange) (*db.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("update ticket", "ticket %s not found", id)
	}
	if !slices.Contains(expected, t.Status) {
		return nil, apperr.Conflict("update ticket", "ticket %s is %s", id, t.Status)
	}
	change.Apply(t)
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

func (s *MemoryTicketStore) ListOverdueCandidates(_ context.Context, scope Scope, now time.Time, after *OverdueCursor, limit int) ([]db.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []db.Ticket
	for _, t := range s.tickets {
		if t.Status != db.StatusPrePaid || t.PrePaidDeadline == nil || !t.PrePaidDeadline.Before(now) {
			continue
		}
		if !scope.Allows(t.OrgID, t.StoreID) {
			continue
		}
		if after != nil && !cursorBefore(*after, *t.PrePaidDeadline, t.ID) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := *out[i].PrePaidDeadline, *out[j].PrePaidDeadline
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTicketStore) List(_ context.Context, filter TicketFilter) ([]db.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []db.Ticket
	for _, t := range s.tickets {
		if !filter.Allows(t.OrgID, t.StoreID) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.EntryDate != "" && t.EntryAt.UTC().Format(time.DateOnly) != filter.EntryDate {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryAt.After(out[j].EntryAt)
	})

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cursorBefore reports whether (deadline, id) sorts strictly after c.
func cursorBefore(c OverdueCursor, deadline time.Time, id string) bool {
	if deadline.Equal(c.Deadline) {
		return id > c.ID
	}
	return deadline.After(c.Deadline)
}

type MemoryFeeStructureStore struct {
	mu         sync.RWMutex
	structures map[string]db.FeeStructure
}

func NewMemoryFeeStructureStore() *MemoryFeeStructureStore {
	return &MemoryFeeStructureStore{structures: make(map[string]db.FeeStructure)}
}

func (s *MemoryFeeStructureStore) GetByID(_ context.Context, id string) (*db.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.structures[id]
	if !ok {
		return nil, apperr.NotFound("get fee structure", "fee structure %s not found", id)
	}
	return &f, nil
}

func (s *MemoryFeeStructureStore) GetDefaultForStore(_ context.Context, storeID string) (*db.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.structures {
		if f.StoreID == storeID && f.IsDefault {
			return &f, nil
		}
	}
	return nil, apperr.NotFound("get default fee structure", "store %s has no default fee structure", storeID)
}

func (s *MemoryFeeStructureStore) Upsert(_ context.Context, f *db.FeeStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.structures[f.ID]; ok && (existing.StoreID != f.StoreID || existing.OrgID != f.OrgID) {
		return apperr.Conflict("upsert fee structure", "fee structure %s belongs to another store or org", f.ID)
	}
	if f.IsDefault {
		for id, other := range s.structures {
			if id != f.ID && other.StoreID == f.StoreID && other.IsDefault {
				return apperr.Conflict("upsert fee structure", "store %s already has default fee structure %s", f.StoreID, id)
			}
		}
	}
	f.UpdatedAt = time.Now()
	s.structures[f.ID] = *f
	return nil
}
