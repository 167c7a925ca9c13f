package repository

import (
	"context"
	"slices"
	"time"

	"parkops/internal/db"
)

// Scope narrows a query to one org and, optionally, a set of its stores.
// The zero Scope matches every ticket.
type Scope struct {
	OrgID    string
	StoreIDs []string
}

// Allows reports whether a record owned by orgID/storeID is visible
// through the scope.
func (s Scope) Allows(orgID, storeID string) bool {
	if s.OrgID != "" && orgID != s.OrgID {
		return false
	}
	return len(s.StoreIDs) == 0 || slices.Contains(s.StoreIDs, storeID)
}

type TicketFilter struct {
	Scope
	Status    db.Status
	EntryDate string // YYYY-MM-DD
	Limit     int
	Offset    int
}

// OverdueCursor is the keyset position of the last candidate seen.
type OverdueCursor struct {
	Deadline time.Time
	ID       string
}

// TicketStore is the persistence contract of the lifecycle engine. Every
// mutation of an existing ticket goes through UpdateIfStatus.
type TicketStore interface {
	Create(ctx context.Context, ticket *db.Ticket) error
	GetByID(ctx context.Context, id string) (*db.Ticket, error)
	// UpdateIfStatus applies change only while the stored status is one of
	// expected. It returns the updated ticket, a NotFound error if the
	// ticket does not exist, or a StateConflict error if the status moved.
	UpdateIfStatus(ctx context.Context, id string, expected []db.Status, change db.TicketChange) (*db.Ticket, error)
	// ListOverdueCandidates returns pre-paid tickets whose deadline is
	// before now, ordered by (deadline, id) and starting after the cursor.
	ListOverdueCandidates(ctx context.Context, scope Scope, now time.Time, after *OverdueCursor, limit int) ([]db.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]db.Ticket, error)
}

type FeeStructureStore interface {
	GetByID(ctx context.Context, id string) (*db.FeeStructure, error)
	GetDefaultForStore(ctx context.Context, storeID string) (*db.FeeStructure, error)
	Upsert(ctx context.Context, f *db.FeeStructure) error
}
