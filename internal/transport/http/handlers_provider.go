package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

func (h *Handler) handleProviderList(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list providers",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "provider directory unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

func (h *Handler) handleProviderGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "provider directory unavailable"))
		return
	}
	if p == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "provider not found"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
