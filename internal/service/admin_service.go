package service

import (
	"context"
	"strings"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
	"parkops/internal/repository"
)

// AdminService backs the admin console: ticket listing and tariff upkeep.
// Ticket mutations still go through the LifecycleEngine.
type AdminService struct {
	tickets repository.TicketStore
	fees    repository.FeeStructureStore
}

func NewAdminService(tickets repository.TicketStore, fees repository.FeeStructureStore) *AdminService {
	return &AdminService{tickets: tickets, fees: fees}
}

func (s *AdminService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]db.Ticket, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("list tickets", "unknown status %q", filter.Status)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperr.Validation("list tickets", "limit and offset must not be negative")
	}
	return s.tickets.List(ctx, filter)
}

func (s *AdminService) GetFeeStructure(ctx context.Context, scope repository.Scope, id string) (*db.FeeStructure, error) {
	f, err := s.fees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(f.OrgID, f.StoreID) {
		return nil, apperr.NotFound("get fee structure", "fee structure %s not found", id)
	}
	return f, nil
}

// UpsertFeeStructure validates f and stores it under the caller's org. An
// id already owned by another org or an out-of-scope store is reported as
// not found. Tickets already completed keep the fee they were charged.
func (s *AdminService) UpsertFeeStructure(ctx context.Context, scope repository.Scope, f *db.FeeStructure) error {
	const op = "upsert fee structure"

	f.ID = strings.TrimSpace(f.ID)
	if f.ID == "" {
		return apperr.Validation(op, "id is required")
	}
	if scope.OrgID != "" {
		f.OrgID = scope.OrgID
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if !scope.Allows(f.OrgID, f.StoreID) {
		return apperr.NotFound(op, "store %s not found", f.StoreID)
	}

	existing, err := s.fees.GetByID(ctx, f.ID)
	switch {
	case apperr.IsNotFound(err):
	case err != nil:
		return err
	case !scope.Allows(existing.OrgID, existing.StoreID):
		return apperr.NotFound(op, "fee structure %s not found", f.ID)
	}
	return s.fees.Upsert(ctx, f)
}
