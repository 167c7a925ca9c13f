package repository

import (
	"context"
	"strconv"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

const defaultListLimit = 100

func (r *TicketRepository) List(ctx context.Context, filter TicketFilter) ([]db.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
	FROM tickets
	WHERE 1=1`
	args := []any{}
	idx := 1

	query, args, idx = appendScope(query, args, idx, filter.Scope)
	if filter.Status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.EntryDate != "" {
		query += " AND DATE(entry_at) = $" + strconv.Itoa(idx)
		args = append(args, filter.EntryDate)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY entry_at DESC LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list tickets", err)
	}
	defer rows.Close()

	var tickets []db.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, apperr.Storage("scan ticket", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate tickets", err)
	}
	return tickets, nil
}
