package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"consentd/internal/consent"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

// ConsentService is the registry surface the handlers need.
type ConsentService interface {
	ListForUser(ctx context.Context, userID string) ([]consent.ProviderConsent, error)
	ToggleWithDataTypes(ctx context.Context, userID, providerID string, consented bool, dataTypes []consent.DataType, origin string) (string, error)
	GrantAll(ctx context.Context, userID string, providerIDs []string, origin string) (int, error)
	RevokeAll(ctx context.Context, userID string, providerIDs []string, origin string) (int, error)
}

// authenticatedUser pulls the user ID the auth middleware resolved. An
// empty value means the middleware chain is miswired.
func (h *Handler) authenticatedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID == "" {
		h.logger.ErrorContext(r.Context(), "user id missing despite auth middleware",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) handleConsentList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	list, err := h.consent.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": list})
}

type toggleRequest struct {
	ProviderID string             `json:"provider_id"`
	Consented  *bool              `json:"consented"`
	DataTypes  []consent.DataType `json:"data_types,omitempty"`
}

func (h *Handler) handleConsentToggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Consented == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "consented flag is required"))
		return
	}

	consentID, err := h.consent.ToggleWithDataTypes(r.Context(), userID, req.ProviderID, *req.Consented, req.DataTypes, requestcontext.ClientIP(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "consent_id": consentID})
}

type bulkToggleRequest struct {
	ProviderIDs []string `json:"provider_ids"`
}

func (h *Handler) handleConsentGrantAll(w http.ResponseWriter, r *http.Request) {
	h.handleBulkToggle(w, r, h.consent.GrantAll)
}

func (h *Handler) handleConsentRevokeAll(w http.ResponseWriter, r *http.Request) {
	h.handleBulkToggle(w, r, h.consent.RevokeAll)
}

func (h *Handler) handleBulkToggle(w http.ResponseWriter, r *http.Request, op func(context.Context, string, []string, string) (int, error)) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req bulkToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	count, err := op(r.Context(), userID, req.ProviderIDs, requestcontext.ClientIP(r.Context()))
	if err != nil {
		// Partial application: report how far we got alongside the error.
		code := dErrors.CodeOf(err)
		writeJSON(w, dErrors.ToHTTPStatus(code), map[string]any{
			"success": false,
			"count":   count,
			"error":   string(code),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

func (h *Handler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	entries, err := h.audit.GetUserLogs(r.Context(), userID, 100)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}
