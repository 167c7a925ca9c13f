package api

import (
	"context"
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
	"parkops/internal/fee"
	"parkops/internal/service"
	"parkops/internal/utils"
)

const maxPreviewMinutes = 31 * 24 * 60

// crewEvents are the transitions a crew device may request. Resolving an
// overdue ticket is reserved for admins; flag_overdue is never accepted
// over HTTP.
var crewEvents = map[service.Event]bool{
	service.EventPrePay:       true,
	service.EventRequestExit:  true,
	service.EventMarkReady:    true,
	service.EventCheckout:     true,
	service.EventCorrectPlate: true,
}

var adminEvents = map[service.Event]bool{
	service.EventPrePay:        true,
	service.EventRequestExit:   true,
	service.EventMarkReady:     true,
	service.EventCheckout:      true,
	service.EventCorrectPlate:  true,
	service.EventResolvePaid:   true,
	service.EventResolveWaived: true,
}

type TicketHandler struct {
	Engine *service.LifecycleEngine
	Admin  *service.AdminService
	Retry  service.RetryPolicy
	logger *slog.Logger
}

func NewTicketHandler(engine *service.LifecycleEngine, admin *service.AdminService, retry service.RetryPolicy, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{Engine: engine, Admin: admin, Retry: retry, logger: logger}
}

func (h *TicketHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperr.ErrBadRequest("invalid request body"))
		return
	}
	parkingType, ok := utils.ParseParkingType(req.ParkingType)
	if !ok {
		writeError(w, r, h.logger, apperr.Validation("check in", "unknown parking type %q", req.ParkingType))
		return
	}
	if !claims.Scope().Allows(claims.OrgID, req.StoreID) {
		writeError(w, r, h.logger, apperr.ErrForbidden("store not in scope"))
		return
	}

	t, err := h.Engine.CheckIn(r.Context(), service.NewTicket{
		OrgID:           claims.OrgID,
		StoreID:         req.StoreID,
		VisitPlaceID:    req.VisitPlaceID,
		PlateNumber:     req.PlateNumber,
		ParkingType:     parkingType,
		IsMonthly:       req.IsMonthly,
		ParkingLocation: req.ParkingLocation,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewTicketResponse(t))
}

func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.scopedTicket(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewTicketResponse(t))
}

func (h *TicketHandler) EstimateFee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.scopedTicket(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	est, err := h.Engine.Estimate(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.FeeEstimateResponse{
		TicketID:      est.TicketID,
		Status:        string(est.Status),
		At:            est.At,
		Breakdown:     est.Breakdown,
		PaidAmount:    est.PaidAmount,
		AdditionalDue: est.AdditionalDue,
	})
}

// Transition applies a crew event.
func (h *TicketHandler) Transition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, crewEvents)
}

// AdminTransition applies any manual event, including overdue resolution.
func (h *TicketHandler) AdminTransition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, adminEvents)
}

func (h *TicketHandler) transition(w http.ResponseWriter, r *http.Request, allowed map[service.Event]bool) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, apperr.ErrBadRequest("invalid request body"))
		return
	}
	event, ok := service.ParseEvent(req.Event)
	if !ok || event == service.EventFlagOverdue {
		writeError(w, r, h.logger, apperr.Validation("transition", "unsupported event %q", req.Event))
		return
	}
	if !allowed[event] {
		writeError(w, r, h.logger, apperr.ErrForbidden("event not permitted for role"))
		return
	}
	if _, err := h.scopedTicket(ctx, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tr, err := service.RetryStorage(ctx, h.Retry, func() (*service.Transition, error) {
		return h.Engine.Apply(ctx, id, event, req.Payload())
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.TransitionResponse{
		TicketID: tr.TicketID,
		Event:    string(tr.Event),
		From:     string(tr.From),
		To:       string(tr.To),
		At:       tr.At,
		Ticket:   entities.NewTicketResponse(tr.Ticket),
	})
}

// FeePreview prices a hypothetical stay of the given minutes against a
// visit place's tariff.
func (h *TicketHandler) FeePreview(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	q := r.URL.Query()

	placeID := q.Get("visit_place_id")
	if placeID == "" {
		writeError(w, r, h.logger, apperr.Validation("fee preview", "visit_place_id is required"))
		return
	}
	minutes, err := strconv.ParseInt(q.Get("minutes"), 10, 64)
	if err != nil || minutes < 0 || minutes > maxPreviewMinutes {
		writeError(w, r, h.logger, apperr.Validation("fee preview", "minutes must be between 0 and %d", maxPreviewMinutes))
		return
	}
	parkingType, ok := utils.ParseParkingType(q.Get("parking_type"))
	if !ok {
		writeError(w, r, h.logger, apperr.Validation("fee preview", "unknown parking type %q", q.Get("parking_type")))
		return
	}

	structure, err := h.Admin.GetFeeStructure(r.Context(), claims.Scope(), placeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entry := time.Unix(0, 0).UTC()
	b := fee.Calculate(entry, entry.Add(time.Duration(minutes)*time.Minute), *structure, parkingType, parkingType == db.ParkingMonthly)
	writeJSON(w, http.StatusOK, entities.FeePreviewResponse{
		VisitPlaceID: structure.ID,
		ParkingType:  string(parkingType),
		Minutes:      minutes,
		Breakdown:    b,
	})
}

// scopedTicket loads a ticket and hides it when it lies outside the
// caller's org or stores.
func (h *TicketHandler) scopedTicket(ctx context.Context, id string) (*db.Ticket, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthorized("unauthenticated")
	}
	t, err := service.RetryStorage(ctx, h.Retry, func() (*db.Ticket, error) {
		return h.Engine.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !claims.Scope().Allows(t.OrgID, t.StoreID) {
		return nil, apperr.NotFound("get ticket", "ticket %s not found", id)
	}
	return t, nil
}
