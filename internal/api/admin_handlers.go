package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"parkops/internal/auth"
	"parkops/internal/db"
	"parkops/internal/entities"
	apperr "parkops/internal/errors"
	"parkops/internal/repository"
	"parkops/internal/service"
)

type AdminHandler struct {
	Admin   *service.AdminService
	Scanner *service.OverdueScanner
	logger  *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, scanner *service.OverdueScanner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Scanner: scanner, logger: logger}
}

// ListTickets supports store_id, status, date (YYYY-MM-DD), limit and offset.
func (h *AdminHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	q := r.URL.Query()

	filter := repository.TicketFilter{
		Scope:  claims.Scope(),
		Status: db.Status(q.Get("status")),
	}
	if storeID := q.Get("store_id"); storeID != "" {
		if !filter.Scope.Allows(claims.OrgID, storeID) {
			writeError(w, r, h.logger, apperr.ErrForbidden("store not in scope"))
			return
		}
		filter.StoreIDs = []string{storeID}
	}
	if date := q.Get("date"); date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			writeError(w, r, h.logger, apperr.Validation("list tickets", "date must be YYYY-MM-DD"))
			return
		}
		filter.EntryDate = date
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, h.logger, apperr.Validation("list tickets", "invalid limit"))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, h.logger, apperr.Validation("list tickets", "invalid offset"))
		return
	}

	tickets, err := h.Admin.ListTickets(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := entities.TicketsList{
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		Tickets: make([]entities.TicketResponse, 0, len(tickets)),
	}
	for i := range tickets {
		resp.Tickets = append(resp.Tickets, entities.NewTicketResponse(&tickets[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) GetFeeStructure(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	f, err := h.Admin.GetFeeStructure(r.Context(), claims.Scope(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feeStructureResponse(f))
}

func (h *AdminHandler) PutFeeStructure(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req FeeStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperr.ErrBadRequest("invalid request body"))
		return
	}
	f := req.FeeStructure(mux.Vars(r)["id"])
	if err := h.Admin.UpsertFeeStructure(r.Context(), claims.Scope(), f); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	stored, err := h.Admin.GetFeeStructure(r.Context(), claims.Scope(), f.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feeStructureResponse(stored))
}

// Scan runs one reconciliation pass over the caller's scope.
func (h *AdminHandler) Scan(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	res, err := h.Scanner.ScanOverdue(r.Context(), claims.Scope())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	failed := res.FailedIDs
	if failed == nil {
		failed = []string{}
	}
	writeJSON(w, http.StatusOK, entities.ScanResponse{
		Scanned:   res.Scanned,
		Flagged:   res.Flagged,
		FailedIDs: failed,
	})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func feeStructureResponse(f *db.FeeStructure) entities.FeeStructureResponse {
	return entities.FeeStructureResponse{
		ID:          f.ID,
		OrgID:       f.OrgID,
		StoreID:     f.StoreID,
		Name:        f.Name,
		IsDefault:   f.IsDefault,
		FreeMinutes: f.FreeMinutes,
		BaseFee:     f.BaseFee,
		BaseMinutes: f.BaseMinutes,
		ExtraFee:    f.ExtraFee,
		DailyMax:    f.DailyMax,
		ValetFee:    f.ValetFee,
		MonthlyFee:  f.MonthlyFee,
		UpdatedAt:   f.UpdatedAt,
	}
}
