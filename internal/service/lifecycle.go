package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
	"parkops/internal/fee"
	"parkops/internal/metrics"
	"parkops/internal/repository"
	"parkops/internal/utils"
)

// Transition is the outcome of a successful Apply.
type Transition struct {
	TicketID string
	Event    Event
	From     db.Status
	To       db.Status
	At       time.Time
	Ticket   *db.Ticket
}

type NewTicket struct {
	OrgID           string
	StoreID         string
	VisitPlaceID    *string
	PlateNumber     string
	ParkingType     db.ParkingType
	IsMonthly       bool
	ParkingLocation string
}

// Estimate is a live fee preview for an open ticket.
type Estimate struct {
	TicketID      string
	Status        db.Status
	At            time.Time
	Breakdown     fee.Breakdown
	PaidAmount    int64
	AdditionalDue int64
}

// LifecycleEngine owns every mutation of a ticket. Each transition is one
// conditional update pinned to the status the engine observed, so racing
// callers get a StateConflict instead of overwriting each other.
type LifecycleEngine struct {
	tickets  repository.TicketStore
	fees     repository.FeeStructureStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

type EngineOption func(*LifecycleEngine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *LifecycleEngine) { e.now = now }
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *LifecycleEngine) { e.notifier = n }
}

func NewLifecycleEngine(tickets repository.TicketStore, fees repository.FeeStructureStore, logger *slog.Logger, opts ...EngineOption) *LifecycleEngine {
	e := &LifecycleEngine{
		tickets: tickets,
		fees:    fees,
		logger:  logger,
		now:     time.Now,
		tracer:  otel.Tracer("parkops/service"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = NewLogNotifier(logger)
	}
	return e
}

func (e *LifecycleEngine) Get(ctx context.Context, ticketID string) (*db.Ticket, error) {
	return e.tickets.GetByID(ctx, ticketID)
}

func (e *LifecycleEngine) CheckIn(ctx context.Context, in NewTicket) (*db.Ticket, error) {
	const op = "check in"

	ctx, span := e.tracer.Start(ctx, "ticket.check_in")
	defer span.End()

	if strings.TrimSpace(in.OrgID) == "" || strings.TrimSpace(in.StoreID) == "" {
		return nil, e.fail(span, eventCheckIn, apperr.Validation(op, "org and store are required"))
	}
	plate := utils.NormalizePlate(in.PlateNumber)
	if plate == "" {
		return nil, e.fail(span, eventCheckIn, apperr.Validation(op, "plate number is required"))
	}
	if in.ParkingType == "" {
		in.ParkingType = db.ParkingNormal
	}
	if !in.ParkingType.Valid() {
		return nil, e.fail(span, eventCheckIn, apperr.Validation(op, "unknown parking type %q", in.ParkingType))
	}
	if in.VisitPlaceID != nil {
		place, err := e.fees.GetByID(ctx, *in.VisitPlaceID)
		if err != nil {
			return nil, e.fail(span, eventCheckIn, err)
		}
		if place.StoreID != in.StoreID {
			return nil, e.fail(span, eventCheckIn, apperr.Validation(op, "visit place %s belongs to another store", place.ID))
		}
	}

	now := e.now()
	t := &db.Ticket{
		ID:              uuid.NewString(),
		OrgID:           in.OrgID,
		StoreID:         in.StoreID,
		VisitPlaceID:    in.VisitPlaceID,
		PlateNumber:     plate,
		ParkingType:     in.ParkingType,
		IsMonthly:       in.IsMonthly || in.ParkingType == db.ParkingMonthly,
		Status:          db.StatusParking,
		EntryAt:         now,
		ParkingLocation: strings.TrimSpace(in.ParkingLocation),
	}
	span.SetAttributes(attribute.String("ticket.id", t.ID))

	if err := e.tickets.Create(ctx, t); err != nil {
		return nil, e.fail(span, eventCheckIn, err)
	}

	metrics.Transitions.WithLabelValues(string(eventCheckIn), metrics.OutcomeOK).Inc()
	e.notify(ctx, t, eventCheckIn, "", now)
	return t, nil
}

// Apply validates event against the ticket's current status and commits it
// with a single guarded update.
func (e *LifecycleEngine) Apply(ctx context.Context, ticketID string, event Event, p Payload) (*Transition, error) {
	ctx, span := e.tracer.Start(ctx, "ticket.apply", trace.WithAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("ticket.event", string(event)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.TransitionDuration.WithLabelValues(string(event)).Observe(time.Since(start).Seconds())
	}()

	if _, ok := transitionMap[event]; !ok {
		return nil, e.fail(span, event, apperr.Validation("apply", "unknown event %q", event))
	}
	if err := validatePayload(event, &p); err != nil {
		return nil, e.fail(span, event, err)
	}

	t, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, e.fail(span, event, err)
	}
	span.SetAttributes(attribute.String("ticket.status", string(t.Status)))

	tr, err := e.transition(ctx, t, event, p)
	if err != nil {
		return nil, e.fail(span, event, err)
	}
	metrics.Transitions.WithLabelValues(string(event), metrics.OutcomeOK).Inc()
	return tr, nil
}

func (e *LifecycleEngine) transition(ctx context.Context, t *db.Ticket, event Event, p Payload) (*Transition, error) {
	op := string(event)
	if t.Status.IsTerminal() {
		return nil, apperr.Conflict(op, "ticket %s is already completed", t.ID)
	}
	if !ValidTransition(event, t.Status) {
		return nil, apperr.Conflict(op, "cannot %s a ticket in status %s", event, t.Status)
	}

	now := e.now()
	change, err := e.plan(ctx, t, event, p, now)
	if err != nil {
		return nil, err
	}

	expected := []db.Status{t.Status}
	if event == EventCorrectPlate {
		// a plate fix must not lose to a status move, only to completion
		expected = db.OpenStatuses
	}
	updated, err := e.tickets.UpdateIfStatus(ctx, t.ID, expected, change)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if event == EventCorrectPlate {
		// the status may have moved since the read; report the one the write saw
		from = updated.Status
	}
	e.notify(ctx, updated, event, from, now)
	return &Transition{
		TicketID: t.ID,
		Event:    event,
		From:     from,
		To:       updated.Status,
		At:       now,
		Ticket:   updated,
	}, nil
}

// plan checks the field guards of event and builds the write it performs.
func (e *LifecycleEngine) plan(ctx context.Context, t *db.Ticket, event Event, p Payload, now time.Time) (db.TicketChange, error) {
	op := string(event)
	change := db.TicketChange{Status: targetStatus[event]}

	switch event {
	case EventPrePay:
		if t.IsMonthly {
			return change, apperr.Conflict(op, "monthly ticket %s cannot pre-pay", t.ID)
		}
		deadline := now.Add(PrePaidGrace)
		change.PrePaidAt = &now
		change.PrePaidDeadline = &deadline
		change.PaidAmount = &p.Amount
		change.PaymentMethod = &p.PaymentMethod

	case EventRequestExit:
		if t.ParkingType != db.ParkingValet {
			return change, apperr.Conflict(op, "ticket %s is not valet", t.ID)
		}

	case EventMarkReady:

	case EventCheckout:
		if t.Status == db.StatusPrePaid && pastDeadline(t, now) {
			e.flagLateCheckout(ctx, t)
			return change, apperr.Conflict(op, "ticket %s passed its pre-paid deadline", t.ID)
		}
		total, err := e.computeFee(ctx, t, now)
		if err != nil {
			return change, err
		}
		additional := int64(0)
		paid := t.PaidAmount
		if t.Status == db.StatusPrePaid {
			additional = fee.Additional(total, t.PaidAmount)
		} else {
			paid = total
		}
		change.ExitAt = &now
		change.CalculatedFee = &total
		change.AdditionalFee = &additional
		change.PaidAmount = &paid
		if p.PaymentMethod != "" {
			change.PaymentMethod = &p.PaymentMethod
		}

	case EventFlagOverdue:
		if !pastDeadline(t, now) {
			return change, apperr.Conflict(op, "ticket %s is still within its pre-paid window", t.ID)
		}
		total, err := e.computeFee(ctx, t, now)
		if err != nil {
			return change, err
		}
		additional := fee.Additional(total, t.PaidAmount)
		change.CalculatedFee = &total
		change.AdditionalFee = &additional

	case EventResolvePaid:
		paid := t.PaidAmount + t.AdditionalFee
		change.ExitAt = &now
		change.PaidAmount = &paid
		if p.PaymentMethod != "" {
			change.PaymentMethod = &p.PaymentMethod
		}

	case EventResolveWaived:
		zero := int64(0)
		change.ExitAt = &now
		change.AdditionalFee = &zero

	case EventCorrectPlate:
		change.PlateNumber = &p.PlateNumber
	}
	return change, nil
}

// flagLateCheckout moves a pre-paid ticket caught at checkout after its
// deadline to overdue so the caller can resolve it on re-read.
func (e *LifecycleEngine) flagLateCheckout(ctx context.Context, t *db.Ticket) {
	if _, err := e.transition(ctx, t, EventFlagOverdue, Payload{}); err != nil {
		e.logger.WarnContext(ctx, "flag overdue on checkout failed", "ticket_id", t.ID, "error", err)
		return
	}
	metrics.Transitions.WithLabelValues(string(EventFlagOverdue), metrics.OutcomeOK).Inc()
}

// Estimate prices an open ticket as if it left now. Overdue tickets report
// the additional fee fixed when they were flagged.
func (e *LifecycleEngine) Estimate(ctx context.Context, ticketID string) (*Estimate, error) {
	t, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	est := &Estimate{
		TicketID:   t.ID,
		Status:     t.Status,
		At:         now,
		PaidAmount: t.PaidAmount,
	}

	switch t.Status {
	case db.StatusCompleted:
		est.Breakdown.Total = t.CalculatedFee
		est.AdditionalDue = t.AdditionalFee
		return est, nil
	case db.StatusOverdue:
		est.AdditionalDue = t.AdditionalFee
	}

	structure, err := e.structureFor(ctx, t)
	if err != nil {
		return nil, err
	}
	est.Breakdown = fee.Calculate(t.EntryAt, now, structure, t.ParkingType, t.IsMonthly)
	if t.Status != db.StatusOverdue {
		est.AdditionalDue = fee.Additional(est.Breakdown.Total, t.PaidAmount)
	}
	return est, nil
}

func (e *LifecycleEngine) computeFee(ctx context.Context, t *db.Ticket, now time.Time) (int64, error) {
	structure, err := e.structureFor(ctx, t)
	if err != nil {
		return 0, err
	}
	return fee.Compute(t.EntryAt, now, structure, t.ParkingType, t.IsMonthly), nil
}

// structureFor resolves the tariff of a ticket: its visit place, or the
// store default when it has none. Monthly tickets never need one.
func (e *LifecycleEngine) structureFor(ctx context.Context, t *db.Ticket) (db.FeeStructure, error) {
	if t.IsMonthly {
		return db.FeeStructure{}, nil
	}
	var (
		s   *db.FeeStructure
		err error
	)
	if t.VisitPlaceID != nil {
		s, err = e.fees.GetByID(ctx, *t.VisitPlaceID)
	} else {
		s, err = e.fees.GetDefaultForStore(ctx, t.StoreID)
	}
	if err != nil {
		return db.FeeStructure{}, err
	}
	return *s, nil
}

func (e *LifecycleEngine) notify(ctx context.Context, t *db.Ticket, event Event, from db.Status, at time.Time) {
	ev := TransitionEvent{
		TicketID: t.ID,
		OrgID:    t.OrgID,
		StoreID:  t.StoreID,
		Event:    event,
		From:     from,
		To:       t.Status,
		At:       at,
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		metrics.NotifyFailures.Inc()
		e.logger.WarnContext(ctx, "notify transition failed", "ticket_id", t.ID, "event", event, "error", err)
	}
}

func (e *LifecycleEngine) fail(span trace.Span, event Event, err error) error {
	outcome := metrics.OutcomeError
	switch apperr.KindOf(err) {
	case apperr.KindStateConflict:
		outcome = metrics.OutcomeConflict
	case apperr.KindValidation:
		outcome = metrics.OutcomeInvalid
	case apperr.KindNotFound:
		outcome = metrics.OutcomeNotFound
	}
	metrics.Transitions.WithLabelValues(string(event), outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func pastDeadline(t *db.Ticket, now time.Time) bool {
	return t.PrePaidDeadline != nil && now.After(*t.PrePaidDeadline)
}

func validatePayload(event Event, p *Payload) error {
	op := string(event)
	switch event {
	case EventPrePay:
		if p.Amount < 0 {
			return apperr.Validation(op, "amount must not be negative")
		}
		p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
		if p.PaymentMethod == "" {
			return apperr.Validation(op, "payment method is required")
		}
	case EventCorrectPlate:
		p.PlateNumber = utils.NormalizePlate(p.PlateNumber)
		if p.PlateNumber == "" {
			return apperr.Validation(op, "plate number is required")
		}
	case EventCheckout, EventResolvePaid:
		p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
	}
	return nil
}
