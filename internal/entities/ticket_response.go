package entities

import (
	"time"

	"parkops/internal/db"
)

type TicketResponse struct {
	ID              string     `json:"id"`
	OrgID           string     `json:"org_id"`
	StoreID         string     `json:"store_id"`
	VisitPlaceID    *string    `json:"visit_place_id,omitempty"`
	PlateNumber     string     `json:"plate_number"`
	ParkingType     string     `json:"parking_type"`
	IsMonthly       bool       `json:"is_monthly"`
	Status          string     `json:"status"`
	EntryAt         time.Time  `json:"entry_at"`
	PrePaidAt       *time.Time `json:"pre_paid_at,omitempty"`
	PrePaidDeadline *time.Time `json:"pre_paid_deadline,omitempty"`
	ExitAt          *time.Time `json:"exit_at,omitempty"`
	PaidAmount      int64      `json:"paid_amount"`
	CalculatedFee   int64      `json:"calculated_fee"`
	AdditionalFee   int64      `json:"additional_fee"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	ParkingLocation string     `json:"parking_location,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewTicketResponse(t *db.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		OrgID:           t.OrgID,
		StoreID:         t.StoreID,
		VisitPlaceID:    t.VisitPlaceID,
		PlateNumber:     t.PlateNumber,
		ParkingType:     string(t.ParkingType),
		IsMonthly:       t.IsMonthly,
		Status:          string(t.Status),
		EntryAt:         t.EntryAt,
		PrePaidAt:       t.PrePaidAt,
		PrePaidDeadline: t.PrePaidDeadline,
		ExitAt:          t.ExitAt,
		PaidAmount:      t.PaidAmount,
		CalculatedFee:   t.CalculatedFee,
		AdditionalFee:   t.AdditionalFee,
		PaymentMethod:   t.PaymentMethod,
		ParkingLocation: t.ParkingLocation,
		UpdatedAt:       t.UpdatedAt,
	}
}

type TransitionResponse struct {
	TicketID string         `json:"ticket_id"`
	Event    string         `json:"event"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	At       time.Time      `json:"at"`
	Ticket   TicketResponse `json:"ticket"`
}
