package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "parkops/internal/errors"
)

func TestFeeStructure_Validate(t *testing.T) {
	valid := FeeStructure{
		StoreID:     "store-1",
		FreeMinutes: 30,
		BaseFee:     1000,
		BaseMinutes: 30,
		ExtraFee:    500,
		ValetFee:    3000,
	}

	tests := []struct {
		name    string
		mutate  func(f *FeeStructure)
		wantErr bool
	}{
		{"valid", func(f *FeeStructure) {}, false},
		{"zero daily max is unlimited", func(f *FeeStructure) { f.DailyMax = 0 }, false},
		{"negative base fee", func(f *FeeStructure) { f.BaseFee = -1 }, true},
		{"negative free minutes", func(f *FeeStructure) { f.FreeMinutes = -5 }, true},
		{"negative extra fee", func(f *FeeStructure) { f.ExtraFee = -500 }, true},
		{"negative daily max", func(f *FeeStructure) { f.DailyMax = -1 }, true},
		{"negative valet fee", func(f *FeeStructure) { f.ValetFee = -1 }, true},
		{"negative monthly fee", func(f *FeeStructure) { f.MonthlyFee = -1 }, true},
		{"missing store", func(f *FeeStructure) { f.StoreID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTicketChange_Apply(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fee := int64(1500)
	method := "card"

	ticket := &Ticket{ID: "t-1", Status: StatusParking, PaymentMethod: "cash"}
	TicketChange{
		Status:        StatusCompleted,
		ExitAt:        &now,
		CalculatedFee: &fee,
		PaymentMethod: &method,
	}.Apply(ticket)

	assert.Equal(t, StatusCompleted, ticket.Status)
	require.NotNil(t, ticket.ExitAt)
	assert.Equal(t, now, *ticket.ExitAt)
	assert.Equal(t, int64(1500), ticket.CalculatedFee)
	assert.Equal(t, "card", ticket.PaymentMethod)
	assert.Nil(t, ticket.PrePaidAt)
}

func TestTicket_CloneDoesNotShare(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	original := &Ticket{ID: "t-1", PrePaidDeadline: &deadline}

	clone := original.Clone()
	*clone.PrePaidDeadline = deadline.Add(time.Hour)

	assert.Equal(t, deadline, *original.PrePaidDeadline)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusOverdue.IsTerminal())
	assert.True(t, StatusCarReady.Valid())
	assert.False(t, Status("cancelled").Valid())
	assert.NotContains(t, OpenStatuses, StatusCompleted)
}
