package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"consentd/internal/audit"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/middleware"
	"consentd/internal/provider"
)

const requestTimeout = 30 * time.Second

// AuditReader is the reporting surface the handlers need.
type AuditReader interface {
	GetUserLogs(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}

// Handler is the thin HTTP layer over the domain services.
type Handler struct {
	logger    *slog.Logger
	kba       KBAService
	consent   ConsentService
	providers provider.Store
	auth      AuthService
	audit     AuditReader

	// healthSummary is the static config view served on /api/health.
	healthSummary map[string]any
}

// Deps bundles everything the router needs. All fields are required
// except HealthSummary.
type Deps struct {
	Logger        *slog.Logger
	KBA           KBAService
	Consent       ConsentService
	Providers     provider.Store
	Auth          AuthService
	Audit         AuditReader
	Metrics       *metrics.Metrics
	Validator     middleware.TokenValidator
	HealthSummary map[string]any
}

// NewRouter wires the full HTTP surface: public identity-proofing and
// login routes, the authenticated consent registry, and the operational
// endpoints.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		logger:        deps.Logger,
		kba:           deps.KBA,
		consent:       deps.Consent,
		providers:     deps.Providers,
		auth:          deps.Auth,
		audit:         deps.Audit,
		healthSummary: deps.HealthSummary,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/api/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/kba", func(r chi.Router) {
		r.Post("/verify", h.handleKBAVerify)
		r.Get("/lookup/{id}", h.handleKBALookup)
		r.Get("/status/{id}", h.handleKBAStatus)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/send-verification", h.handleSendVerification)
		r.Post("/verify-token", h.handleVerifyToken)
		r.With(middleware.RequireAuth(deps.Validator, deps.Logger)).
			Post("/logout", h.handleLogout)
	})

	r.Get("/api/providers", h.handleProviderList)
	r.Get("/api/providers/{id}", h.handleProviderGet)

	r.Route("/api/consents", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		r.Get("/", h.handleConsentList)
		r.Post("/toggle", h.handleConsentToggle)
		r.Post("/grant-all", h.handleConsentGrantAll)
		r.Post("/revoke-all", h.handleConsentRevokeAll)
	})

	r.With(middleware.RequireAuth(deps.Validator, deps.Logger)).
		Get("/api/audit-logs", h.handleAuditLogs)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"config": h.healthSummary,
	})
}
