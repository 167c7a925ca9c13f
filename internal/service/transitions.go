package service

import (
	"slices"
	"time"

	"parkops/internal/db"
)

type Event string

const (
	EventPrePay        Event = "pre_pay"
	EventRequestExit   Event = "request_exit"
	EventMarkReady     Event = "mark_ready"
	EventCheckout      Event = "checkout"
	EventFlagOverdue   Event = "flag_overdue"
	EventResolvePaid   Event = "resolve_paid"
	EventResolveWaived Event = "resolve_waived"
	EventCorrectPlate  Event = "correct_plate"

	// eventCheckIn only labels notifications and metrics for new tickets.
	eventCheckIn Event = "check_in"
)

// PrePaidGrace is how long a pre-paid ticket may stay before it is overdue.
const PrePaidGrace = 30 * time.Minute

// transitionMap lists the statuses each event may leave from. Guards that
// depend on ticket fields are checked by the engine.
var transitionMap = map[Event][]db.Status{
	EventPrePay:        {db.StatusParking},
	EventRequestExit:   {db.StatusParking},
	EventMarkReady:     {db.StatusExitRequested},
	EventCheckout:      {db.StatusParking, db.StatusCarReady, db.StatusPrePaid},
	EventFlagOverdue:   {db.StatusPrePaid},
	EventResolvePaid:   {db.StatusOverdue},
	EventResolveWaived: {db.StatusOverdue},
	EventCorrectPlate:  db.OpenStatuses,
}

var targetStatus = map[Event]db.Status{
	EventPrePay:        db.StatusPrePaid,
	EventRequestExit:   db.StatusExitRequested,
	EventMarkReady:     db.StatusCarReady,
	EventCheckout:      db.StatusCompleted,
	EventFlagOverdue:   db.StatusOverdue,
	EventResolvePaid:   db.StatusCompleted,
	EventResolveWaived: db.StatusCompleted,
}

func ValidTransition(event Event, from db.Status) bool {
	allowed, ok := transitionMap[event]
	if !ok {
		return false
	}
	return slices.Contains(allowed, from)
}

func ParseEvent(raw string) (Event, bool) {
	e := Event(raw)
	_, ok := transitionMap[e]
	return e, ok
}

// Payload carries the event-specific inputs of a transition. Fields an
// event does not use are ignored.
type Payload struct {
	Amount        int64
	PaymentMethod string
	PlateNumber   string
}
