package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
	"parkops/internal/repository"
)

func TestAdminService_UpsertFeeStructure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAdminService(env.tickets, env.fees)
	ctx := context.Background()
	scope := repository.Scope{OrgID: "org-1", StoreIDs: []string{"store-1"}}

	f := standardTariff("valet-deck", "store-1", false)
	f.OrgID = "spoofed"
	require.NoError(t, svc.UpsertFeeStructure(ctx, scope, f))

	got, err := svc.GetFeeStructure(ctx, scope, "valet-deck")
	require.NoError(t, err)
	assert.Equal(t, "org-1", got.OrgID)

	bad := standardTariff("bad", "store-1", false)
	bad.ExtraFee = -1
	assert.True(t, apperr.IsValidation(svc.UpsertFeeStructure(ctx, scope, bad)))

	assert.True(t, apperr.IsValidation(svc.UpsertFeeStructure(ctx, scope, &db.FeeStructure{StoreID: "store-1"})))

	other := standardTariff("far", "store-2", false)
	assert.True(t, apperr.IsNotFound(svc.UpsertFeeStructure(ctx, scope, other)))

	_, err = svc.GetFeeStructure(ctx, repository.Scope{OrgID: "org-2"}, "valet-deck")
	assert.True(t, apperr.IsNotFound(err))
}

func TestAdminService_UpsertCannotTakeOverAnotherOrgsTariff(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAdminService(env.tickets, env.fees)
	ctx := context.Background()

	require.NoError(t, svc.UpsertFeeStructure(ctx, repository.Scope{OrgID: "org-1"}, standardTariff("deck", "store-1", false)))

	tests := []struct {
		name  string
		scope repository.Scope
		store string
	}{
		{"other org, unrestricted token", repository.Scope{OrgID: "org-2"}, "store-1"},
		{"other org, own store", repository.Scope{OrgID: "org-2"}, "store-7"},
		{"same org, store outside token", repository.Scope{OrgID: "org-1", StoreIDs: []string{"store-2"}}, "store-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hostile := standardTariff("deck", tt.store, false)
			hostile.BaseFee = 999999
			assert.True(t, apperr.IsNotFound(svc.UpsertFeeStructure(ctx, tt.scope, hostile)))

			got, err := svc.GetFeeStructure(ctx, repository.Scope{OrgID: "org-1"}, "deck")
			require.NoError(t, err)
			assert.Equal(t, "org-1", got.OrgID)
			assert.Equal(t, "store-1", got.StoreID)
			assert.Equal(t, int64(1000), got.BaseFee)
		})
	}
}

func TestAdminService_UpsertDoesNotRepriceCompletedTickets(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAdminService(env.tickets, env.fees)
	ctx := context.Background()
	tk := env.checkIn(t, db.ParkingNormal)

	env.clock.Set(t0.Add(75 * time.Minute))
	_, err := env.engine.Apply(ctx, tk.ID, EventCheckout, Payload{})
	require.NoError(t, err)

	pricier := standardTariff("lobby", "store-1", true)
	pricier.BaseFee = 9000
	require.NoError(t, svc.UpsertFeeStructure(ctx, repository.Scope{OrgID: "org-1"}, pricier))

	got, err := env.engine.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.CalculatedFee)
}

func TestAdminService_ListTickets(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAdminService(env.tickets, env.fees)
	ctx := context.Background()
	env.checkIn(t, db.ParkingNormal)
	env.seedPrePaid(t, "p1", t0, 1000)

	got, err := svc.ListTickets(ctx, repository.TicketFilter{Scope: repository.Scope{OrgID: "org-1"}, Status: db.StatusPrePaid})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	_, err = svc.ListTickets(ctx, repository.TicketFilter{Status: "lost"})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.ListTickets(ctx, repository.TicketFilter{Offset: -1})
	assert.True(t, apperr.IsValidation(err))
}
