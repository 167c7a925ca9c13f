package db

import "time"

type Status string

const (
	StatusParking       Status = "parking"
	StatusPrePaid       Status = "pre_paid"
	StatusExitRequested Status = "exit_requested"
	StatusCarReady      Status = "car_ready"
	StatusOverdue       Status = "overdue"
	StatusCompleted     Status = "completed"
)

// OpenStatuses lists every status a ticket can still leave.
var OpenStatuses = []Status{
	StatusParking,
	StatusPrePaid,
	StatusExitRequested,
	StatusCarReady,
	StatusOverdue,
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

func (s Status) Valid() bool {
	switch s {
	case StatusParking, StatusPrePaid, StatusExitRequested, StatusCarReady, StatusOverdue, StatusCompleted:
		return true
	}
	return false
}

type ParkingType string

const (
	ParkingNormal  ParkingType = "normal"
	ParkingValet   ParkingType = "valet"
	ParkingMonthly ParkingType = "monthly"
)

func (p ParkingType) Valid() bool {
	return p == ParkingNormal || p == ParkingValet || p == ParkingMonthly
}

// FeeStructure is the tariff of one visit place. MonthlyFee is billed
// outside the ticket flow and never enters fee computation.
type FeeStructure struct {
	ID          string
	OrgID       string
	StoreID     string
	Name        string
	IsDefault   bool
	FreeMinutes int
	BaseFee     int64
	BaseMinutes int
	ExtraFee    int64
	DailyMax    int64
	ValetFee    int64
	MonthlyFee  int64
	UpdatedAt   time.Time
}

type Ticket struct {
	ID              string
	OrgID           string
	StoreID         string
	VisitPlaceID    *string
	PlateNumber     string
	ParkingType     ParkingType
	IsMonthly       bool
	Status          Status
	EntryAt         time.Time
	PrePaidAt       *time.Time
	PrePaidDeadline *time.Time
	ExitAt          *time.Time
	PaidAmount      int64
	CalculatedFee   int64
	AdditionalFee   int64
	PaymentMethod   string
	ParkingLocation string
	UpdatedAt       time.Time
}

// TicketChange carries the fields a single guarded transition writes.
// Nil pointers leave the stored column untouched.
type TicketChange struct {
	Status          Status
	PlateNumber     *string
	PrePaidAt       *time.Time
	PrePaidDeadline *time.Time
	ExitAt          *time.Time
	PaidAmount      *int64
	CalculatedFee   *int64
	AdditionalFee   *int64
	PaymentMethod   *string
}

// Apply writes the change onto t in memory.
func (c TicketChange) Apply(t *Ticket) {
	if c.Status != "" {
		t.Status = c.Status
	}
	if c.PlateNumber != nil {
		t.PlateNumber = *c.PlateNumber
	}
	if c.PrePaidAt != nil {
		v := *c.PrePaidAt
		t.PrePaidAt = &v
	}
	if c.PrePaidDeadline != nil {
		v := *c.PrePaidDeadline
		t.PrePaidDeadline = &v
	}
	if c.ExitAt != nil {
		v := *c.ExitAt
		t.ExitAt = &v
	}
	if c.PaidAmount != nil {
		t.PaidAmount = *c.PaidAmount
	}
	if c.CalculatedFee != nil {
		t.CalculatedFee = *c.CalculatedFee
	}
	if c.AdditionalFee != nil {
		t.AdditionalFee = *c.AdditionalFee
	}
	if c.PaymentMethod != nil {
		t.PaymentMethod = *c.PaymentMethod
	}
}

// Clone returns a deep copy so callers never share pointer fields.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.VisitPlaceID != nil {
		v := *t.VisitPlaceID
		c.VisitPlaceID = &v
	}
	if t.PrePaidAt != nil {
		v := *t.PrePaidAt
		c.PrePaidAt = &v
	}
	if t.PrePaidDeadline != nil {
		v := *t.PrePaidDeadline
		c.PrePaidDeadline = &v
	}
	if t.ExitAt != nil {
		v := *t.ExitAt
		c.ExitAt = &v
	}
	return &c
}
