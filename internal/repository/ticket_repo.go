package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

const ticketColumns = `id, org_id, store_id, visit_place_id, plate_number, parking_type, is_monthly, status,
		entry_at, pre_paid_at, pre_paid_deadline, exit_at, paid_amount, calculated_fee, additional_fee,
		payment_method, parking_location, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type TicketRepository struct {
	DB *sql.DB
}

func NewTicketRepository(conn *sql.DB) *TicketRepository {
	return &TicketRepository{DB: conn}
}

func (r *TicketRepository) Create(ctx context.Context, t *db.Ticket) error {
	query := `
		INSERT INTO tickets
		(id, org_id, store_id, visit_place_id, plate_number, parking_type, is_monthly, status, entry_at,
		 paid_amount, calculated_fee, additional_fee, payment_method, parking_location, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		t.ID,
		t.OrgID,
		t.StoreID,
		nullString(t.VisitPlaceID),
		t.PlateNumber,
		string(t.ParkingType),
		t.IsMonthly,
		string(t.Status),
		t.EntryAt,
		t.PaidAmount,
		t.CalculatedFee,
		t.AdditionalFee,
		t.PaymentMethod,
		t.ParkingLocation,
		t.EntryAt,
	).Scan(&t.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("create ticket", "ticket %s already exists", t.ID)
	}
	if err != nil {
		return apperr.Storage("create ticket", err)
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*db.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	t, err := scanTicket(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
		return nil, apperr.NotFound("get ticket", "ticket %s not found", id)
	}
	if err != nil {
		return nil, apperr.Storage("get ticket", err)
	}
	return t, nil
}

// UpdateIfStatus is the compare-and-swap primitive: the WHERE clause pins
// the status the caller observed, so at most one racing writer succeeds.
func (r *TicketRepository) UpdateIfStatus(ctx context.Context, id string, expected []db.Status, change db.TicketChange) (*db.Ticket, error) {
	const op = "update ticket"
	if len(expected) == 0 {
		return nil, apperr.Validation(op, "no expected status given")
	}

	sets := []string{}
	args := []any{}
	idx := 1
	add := func(column string, value any) {
		sets = append(sets, column+" = $"+strconv.Itoa(idx))
		args = append(args, value)
		idx++
	}

	if change.Status != "" {
		add("status", string(change.Status))
	}
	if change.PlateNumber != nil {
		add("plate_number", *change.PlateNumber)
	}
	if change.PrePaidAt != nil {
		add("pre_paid_at", *change.PrePaidAt)
	}
	if change.PrePaidDeadline != nil {
		add("pre_paid_deadline", *change.PrePaidDeadline)
	}
	if change.ExitAt != nil {
		add("exit_at", *change.ExitAt)
	}
	if change.PaidAmount != nil {
		add("paid_amount", *change.PaidAmount)
	}
	if change.CalculatedFee != nil {
		add("calculated_fee", *change.CalculatedFee)
	}
	if change.AdditionalFee != nil {
		add("additional_fee", *change.AdditionalFee)
	}
	if change.PaymentMethod != nil {
		add("payment_method", *change.PaymentMethod)
	}
	if len(sets) == 0 {
		return nil, apperr.Validation(op, "empty change")
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id = $%d AND status = ANY($%d) RETURNING %s`,
		strings.Join(sets, ", "), idx, idx+1, ticketColumns)
	args = append(args, id, pq.Array(statusStrings(expected)))

	t, err := scanTicket(r.DB.QueryRowContext(ctx, query, args...))
	if err == nil {
		return t, nil
	}
	if isMalformedID(err) {
		return nil, apperr.NotFound(op, "ticket %s not found", id)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Storage(op, err)
	}

	var current string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM tickets WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "ticket %s not found", id)
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return nil, apperr.Conflict(op, "ticket %s is %s", id, current)
}

func scanTicket(row rowScanner) (*db.Ticket, error) {
	var (
		t             db.Ticket
		visitPlace    sql.NullString
		parkingType   string
		status        string
		prePaidAt     sql.NullTime
		prePaidDeadln sql.NullTime
		exitAt        sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.OrgID, &t.StoreID, &visitPlace, &t.PlateNumber, &parkingType, &t.IsMonthly, &status,
		&t.EntryAt, &prePaidAt, &prePaidDeadln, &exitAt, &t.PaidAmount, &t.CalculatedFee, &t.AdditionalFee,
		&t.PaymentMethod, &t.ParkingLocation, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ParkingType = db.ParkingType(parkingType)
	t.Status = db.Status(status)
	if visitPlace.Valid {
		t.VisitPlaceID = &visitPlace.String
	}
	t.PrePaidAt = nullTimePtr(prePaidAt)
	t.PrePaidDeadline = nullTimePtr(prePaidDeadln)
	t.ExitAt = nullTimePtr(exitAt)
	return &t, nil
}

func statusStrings(statuses []db.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
