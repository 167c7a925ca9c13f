package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"parkops/internal/auth"
	"parkops/internal/service"
)

type Deps struct {
	Engine      *service.LifecycleEngine
	Admin       *service.AdminService
	Scanner     *service.OverdueScanner
	Retry       service.RetryPolicy
	JWTSecret   string
	CORSOrigins []string
	// Health reports whether storage is reachable. Nil means always healthy.
	Health    func(ctx context.Context) error
	Logger    *slog.Logger
	AccessLog io.Writer
}

func NewRouter(d Deps) http.Handler {
	if d.AccessLog == nil {
		d.AccessLog = os.Stdout
	}
	tickets := NewTicketHandler(d.Engine, d.Admin, d.Retry, d.Logger)
	admin := NewAdminHandler(d.Admin, d.Scanner, d.Logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz(d.Health, d.Logger)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Crew endpoints
	crew := r.PathPrefix("/api").Subrouter()
	crew.Use(auth.Middleware(d.JWTSecret), auth.RequireRole(auth.RoleCrew, auth.RoleAdmin))
	crew.HandleFunc("/tickets", tickets.CheckIn).Methods("POST")
	crew.HandleFunc("/tickets/{id}", tickets.GetTicket).Methods("GET")
	crew.HandleFunc("/tickets/{id}/fee", tickets.EstimateFee).Methods("GET")
	crew.HandleFunc("/tickets/{id}/transitions", tickets.Transition).Methods("POST")
	crew.HandleFunc("/fee-preview", tickets.FeePreview).Methods("GET")

	// Admin endpoints
	adm := r.PathPrefix("/admin").Subrouter()
	adm.Use(auth.Middleware(d.JWTSecret), auth.RequireRole(auth.RoleAdmin))
	adm.HandleFunc("/tickets", admin.ListTickets).Methods("GET")
	adm.HandleFunc("/tickets/{id}/transitions", tickets.AdminTransition).Methods("POST")
	adm.HandleFunc("/fee-structures/{id}", admin.GetFeeStructure).Methods("GET")
	adm.HandleFunc("/fee-structures/{id}", admin.PutFeeStructure).Methods("PUT")
	adm.HandleFunc("/scan", admin.Scan).Methods("POST")

	cors := handlers.CORS(
		handlers.AllowedOrigins(d.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return otelhttp.NewHandler(handlers.CombinedLoggingHandler(d.AccessLog, cors(r)), "parkops")
}

func healthz(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
