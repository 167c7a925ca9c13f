package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

var ticketColumnNames = []string{
	"id", "org_id", "store_id", "visit_place_id", "plate_number", "parking_type", "is_monthly", "status",
	"entry_at", "pre_paid_at", "pre_paid_deadline", "exit_at", "paid_amount", "calculated_fee", "additional_fee",
	"payment_method", "parking_location", "updated_at",
}

func ticketRows(id string, status db.Status, entry time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(ticketColumnNames).AddRow(
		id, "org-1", "store-1", "vp-1", "12GA3456", "normal", false, string(status),
		entry, nil, nil, nil, int64(0), int64(0), int64(0),
		"", "B2-14", entry,
	)
}

func newMock(t *testing.T) (*TicketRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewTicketRepository(conn), mock
}

func TestTicketRepository_GetByID(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`FROM tickets WHERE id = $1`)

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		check     func(t *testing.T, got *db.Ticket, err error)
	}{
		{
			name: "successful retrieval",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("t-1").WillReturnRows(ticketRows("t-1", db.StatusParking, entry))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				require.NoError(t, err)
				assert.Equal(t, "t-1", got.ID)
				assert.Equal(t, db.StatusParking, got.Status)
				assert.Equal(t, db.ParkingNormal, got.ParkingType)
				require.NotNil(t, got.VisitPlaceID)
				assert.Equal(t, "vp-1", *got.VisitPlaceID)
				assert.Nil(t, got.PrePaidDeadline)
				assert.Equal(t, entry, got.EntryAt)
			},
		},
		{
			name: "ticket not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("t-1").WillReturnRows(sqlmock.NewRows(ticketColumnNames))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.Nil(t, got)
				assert.True(t, apperr.IsNotFound(err))
			},
		},
		{
			name: "id is not a uuid",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("t-1").
					WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "t-1"`})
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.Nil(t, got)
				assert.True(t, apperr.IsNotFound(err))
				assert.False(t, apperr.IsStorage(err))
			},
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("t-1").WillReturnError(errors.New("connection reset"))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.Nil(t, got)
				assert.True(t, apperr.IsStorage(err))
				assert.Contains(t, err.Error(), "connection reset")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			tt.mockSetup(mock)

			got, err := repo.GetByID(context.Background(), "t-1")
			tt.check(t, got, err)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTicketRepository_UpdateIfStatus(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(75 * time.Minute)
	calculated := int64(2000)
	additional := int64(0)
	change := db.TicketChange{
		Status:        db.StatusCompleted,
		ExitAt:        &exit,
		CalculatedFee: &calculated,
		AdditionalFee: &additional,
	}
	update := regexp.QuoteMeta(`UPDATE tickets SET status = $1, exit_at = $2, calculated_fee = $3, additional_fee = $4, updated_at = NOW() WHERE id = $5 AND status = ANY($6) RETURNING`)
	lookup := regexp.QuoteMeta(`SELECT status FROM tickets WHERE id = $1`)
	expected := []db.Status{db.StatusParking, db.StatusCarReady}
	expectedArg := pq.Array([]string{"parking", "car_ready"})

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		check     func(t *testing.T, got *db.Ticket, err error)
	}{
		{
			name: "swap succeeds",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(update).
					WithArgs("completed", exit, int64(2000), int64(0), "t-1", expectedArg).
					WillReturnRows(ticketRows("t-1", db.StatusCompleted, entry))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				require.NoError(t, err)
				assert.Equal(t, db.StatusCompleted, got.Status)
			},
		},
		{
			name: "status moved underneath",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(update).WillReturnRows(sqlmock.NewRows(ticketColumnNames))
				mock.ExpectQuery(lookup).WithArgs("t-1").
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.Nil(t, got)
				assert.True(t, apperr.IsConflict(err))
				assert.Contains(t, err.Error(), "completed")
			},
		},
		{
			name: "ticket vanished",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(update).WillReturnRows(sqlmock.NewRows(ticketColumnNames))
				mock.ExpectQuery(lookup).WithArgs("t-1").WillReturnRows(sqlmock.NewRows([]string{"status"}))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.True(t, apperr.IsNotFound(err))
			},
		},
		{
			name: "id is not a uuid",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(update).WillReturnError(&pq.Error{Code: "22P02"})
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.True(t, apperr.IsNotFound(err))
				assert.False(t, apperr.IsStorage(err))
			},
		},
		{
			name: "driver failure",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(update).WillReturnError(errors.New("deadlock detected"))
			},
			check: func(t *testing.T, got *db.Ticket, err error) {
				assert.True(t, apperr.IsStorage(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			tt.mockSetup(mock)

			got, err := repo.UpdateIfStatus(context.Background(), "t-1", expected, change)
			tt.check(t, got, err)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTicketRepository_UpdateIfStatus_RejectsEmptyInput(t *testing.T) {
	repo, mock := newMock(t)

	_, err := repo.UpdateIfStatus(context.Background(), "t-1", nil, db.TicketChange{Status: db.StatusCompleted})
	assert.True(t, apperr.IsValidation(err))

	_, err = repo.UpdateIfStatus(context.Background(), "t-1", []db.Status{db.StatusParking}, db.TicketChange{})
	assert.True(t, apperr.IsValidation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_ListOverdueCandidates(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cursor := &OverdueCursor{Deadline: now.Add(-time.Hour), ID: "t-0"}
	entry := now.Add(-2 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1 AND pre_paid_deadline < $2 AND org_id = $3 AND store_id = ANY($4) AND (pre_paid_deadline, id) > ($5, $6) ORDER BY pre_paid_deadline, id LIMIT $7`)).
		WithArgs("pre_paid", now, "org-1", pq.Array([]string{"store-1"}), cursor.Deadline, "t-0", 50).
		WillReturnRows(ticketRows("t-1", db.StatusPrePaid, entry).AddRow(
			"t-2", "org-1", "store-1", nil, "34NA0001", "valet", false, "pre_paid",
			entry, entry, entry.Add(30*time.Minute), nil, int64(1000), int64(0), int64(0),
			"cash", "", entry,
		))

	got, err := repo.ListOverdueCandidates(context.Background(),
		Scope{OrgID: "org-1", StoreIDs: []string{"store-1"}}, now, cursor, 50)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[1].VisitPlaceID)
	require.NotNil(t, got[1].PrePaidDeadline)
	assert.Equal(t, entry.Add(30*time.Minute), *got[1].PrePaidDeadline)
	assert.Equal(t, int64(1000), got[1].PaidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_List(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE 1=1 AND org_id = $1 AND status = $2 AND DATE(entry_at) = $3 ORDER BY entry_at DESC LIMIT $4 OFFSET $5`)).
		WithArgs("org-1", "overdue", "2026-03-01", 100, 0).
		WillReturnRows(sqlmock.NewRows(ticketColumnNames))

	got, err := repo.List(context.Background(), TicketFilter{
		Scope:     Scope{OrgID: "org-1"},
		Status:    db.StatusOverdue,
		EntryDate: "2026-03-01",
	})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeStructureRepository_GetDefaultForStore(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	repo := NewFeeStructureRepository(conn)

	cols := []string{"id", "org_id", "store_id", "name", "is_default", "free_minutes", "base_fee", "base_minutes",
		"extra_fee", "daily_max", "valet_fee", "monthly_fee", "updated_at"}
	query := regexp.QuoteMeta(`FROM fee_structures WHERE store_id = $1 AND is_default`)

	mock.ExpectQuery(query).WithArgs("store-1").WillReturnRows(sqlmock.NewRows(cols).AddRow(
		"vp-1", "org-1", "store-1", "Lobby", true, 30, int64(1000), 30, int64(500), int64(0), int64(3000), int64(90000), time.Now(),
	))
	mock.ExpectQuery(query).WithArgs("store-2").WillReturnRows(sqlmock.NewRows(cols))

	f, err := repo.GetDefaultForStore(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, 30, f.FreeMinutes)
	assert.Equal(t, int64(3000), f.ValetFee)

	_, err = repo.GetDefaultForStore(context.Background(), "store-2")
	assert.True(t, apperr.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate")))

	assert.True(t, isMalformedID(&pq.Error{Code: "22P02"}))
	assert.False(t, isMalformedID(&pq.Error{Code: "23505"}))
}
