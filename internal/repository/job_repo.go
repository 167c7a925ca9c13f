package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/lib/pq"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

// ListOverdueCandidates finds pre-paid tickets whose grace deadline has
// passed. Paging is keyset-based so tickets that fail to flip stay behind
// the cursor instead of being selected again in the same pass.
func (r *TicketRepository) ListOverdueCandidates(ctx context.Context, scope Scope, now time.Time, after *OverdueCursor, limit int) ([]db.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
	FROM tickets
	WHERE status = $1 AND pre_paid_deadline < $2`
	args := []any{string(db.StatusPrePaid), now}
	idx := 3

	query, args, idx = appendScope(query, args, idx, scope)
	if after != nil {
		query += " AND (pre_paid_deadline, id) > ($" + strconv.Itoa(idx) + ", $" + strconv.Itoa(idx+1) + ")"
		args = append(args, after.Deadline, after.ID)
		idx += 2
	}
	query += " ORDER BY pre_paid_deadline, id LIMIT $" + strconv.Itoa(idx)
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list overdue candidates", err)
	}
	defer rows.Close()

	var tickets []db.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, apperr.Storage("scan overdue candidate", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate overdue candidates", err)
	}
	return tickets, nil
}

func appendScope(query string, args []any, idx int, scope Scope) (string, []any, int) {
	if scope.OrgID != "" {
		query += " AND org_id = $" + strconv.Itoa(idx)
		args = append(args, scope.OrgID)
		idx++
	}
	if len(scope.StoreIDs) > 0 {
		query += " AND store_id = ANY($" + strconv.Itoa(idx) + ")"
		args = append(args, pq.Array(scope.StoreIDs))
		idx++
	}
	return query, args, idx
}
