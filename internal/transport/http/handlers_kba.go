package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentd/internal/kba"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

// KBAService is the identity-proofing surface the handlers need.
type KBAService interface {
	Verify(ctx context.Context, identifier string, fields kba.ProvidedFields, origin string) (kba.Result, error)
	CheckLockout(ctx context.Context, identifier string) (kba.LockoutStatus, error)
	Lookup(ctx context.Context, identifier string) (kba.LookupResult, error)
}

type verifyRequest struct {
	MedicaidID string `json:"medicaid_id"`
	kba.ProvidedFields
}

func (h *Handler) handleKBAVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.kba.Verify(ctx, req.MedicaidID, req.ProvidedFields, requestcontext.ClientIP(ctx))
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "verification failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			writeError(w, dErrors.New(dErrors.CodeInternal, "verification unavailable"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, verifyStatusCode(result.Status), result)
}

// verifyStatusCode maps a verification outcome to its HTTP status.
// Failed and not-found share 403 so callers cannot distinguish a missing
// identifier from wrong answers.
func verifyStatusCode(status kba.Status) int {
	switch status {
	case kba.StatusVerified:
		return http.StatusOK
	case kba.StatusInsufficientFields:
		return http.StatusBadRequest
	case kba.StatusLocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}

func (h *Handler) handleKBALookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.kba.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleKBAStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.kba.CheckLockout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
