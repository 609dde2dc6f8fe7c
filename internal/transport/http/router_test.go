package httptransport_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/audit"
	"consentd/internal/auth"
	"consentd/internal/consent"
	"consentd/internal/jwttoken"
	"consentd/internal/kba"
	"consentd/internal/notify"
	"consentd/internal/platform/config"
	"consentd/internal/platform/metrics"
	"consentd/internal/provider"
	"consentd/internal/roster"
	httptransport "consentd/internal/transport/http"
	"consentd/pkg/testutil"
)

// newTestRouter wires the full stack on in-memory stores, mirroring the
// production wiring in main.
func newTestRouter(t *testing.T) (http.Handler, *jwttoken.Service) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	rosterStore := roster.NewInMemoryStore()
	require.NoError(t, roster.Seed(context.Background(), rosterStore))
	providerStore := provider.NewInMemoryStore()
	require.NoError(t, provider.Seed(context.Background(), providerStore))

	auditor := audit.NewService(audit.NewInMemoryStore(), logger, m)

	kbaService, err := kba.New(rosterStore, kba.NewInMemoryStore(), auditor, logger, m)
	require.NoError(t, err)

	consentService, err := consent.New(consent.NewInMemoryStore(), providerStore, auditor, logger, m)
	require.NoError(t, err)

	jwtService := jwttoken.NewService("test-signing-key", "consentd", "consent-portal")
	authService, err := auth.New(rosterStore, auth.NewInMemoryTokenStore(), jwtService,
		notify.NewMockNotifierTo(&bytes.Buffer{}, logger), auditor, logger)
	require.NoError(t, err)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        logger,
		KBA:           kbaService,
		Consent:       consentService,
		Providers:     providerStore,
		Auth:          authService,
		Audit:         auditor,
		Metrics:       m,
		Validator:     jwtService,
		HealthSummary: config.FromEnv().Summary(),
	})
	return router, jwtService
}

func bearerFor(t *testing.T, jwtService *jwttoken.Service, userID string) string {
	t.Helper()
	token, err := jwtService.GenerateAccessToken(userID, "CO-DEMO-001", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/health"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	body := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, "ok", (*body)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestKBAVerifySuccess(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", map[string]string{
		"medicaid_id": "CO-DEMO-001",
		"dob":         "1985-03-15",
		"zip_code":    "80202",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	result := testutil.UnmarshalResponse[kba.Result](t, rr)
	assert.Equal(t, kba.StatusVerified, result.Status)
	require.NotNil(t, result.Person)
	assert.Equal(t, "Alice", result.Person.FirstName)
}

func TestKBAVerifyWrongFields(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", map[string]string{
		"medicaid_id": "CO-DEMO-001",
		"dob":         "2000-01-01",
		"zip_code":    "99999",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	result := testutil.UnmarshalResponse[kba.Result](t, rr)
	assert.Equal(t, kba.StatusFailed, result.Status)
	assert.Equal(t, "Incorrect information. 2 attempts remaining.", result.Message)
}

func TestKBAVerifyInsufficientFields(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", map[string]string{
		"medicaid_id": "CO-DEMO-001",
		"zip_code":    "80202",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestKBAVerifyLockout(t *testing.T) {
	router, _ := newTestRouter(t)

	wrong := map[string]string{
		"medicaid_id": "CO-DEMO-001",
		"dob":         "2000-01-01",
		"zip_code":    "99999",
	}
	for i := 0; i < 3; i++ {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", wrong))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	}

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", wrong))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)

	result := testutil.UnmarshalResponse[kba.Result](t, rr)
	assert.Equal(t, kba.StatusLocked, result.Status)
}

func TestKBAVerifyMissingIdentifier(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/kba/verify", map[string]string{
		"dob":      "1985-03-15",
		"zip_code": "80202",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "invalid_input")
}

func TestKBALookup(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/kba/lookup/CO-DEMO-002"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	result := testutil.UnmarshalResponse[kba.LookupResult](t, rr)
	assert.Equal(t, "Bob", result.FirstName)
	assert.True(t, result.IsSynthetic)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/kba/lookup/CO-NOPE-999"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	testutil.AssertErrorCode(t, rr, "not_found")
}

func TestKBAStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/kba/status/CO-DEMO-001"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	status := testutil.UnmarshalResponse[kba.LockoutStatus](t, rr)
	assert.False(t, status.Locked)
}

func TestConsentsRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/consents"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/consents/toggle", map[string]any{}))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestConsentListAndToggle(t *testing.T) {
	router, jwtService := newTestRouter(t)
	token := bearerFor(t, jwtService, "user-alice")

	req := testutil.NewRequest(t, http.MethodGet, "/api/consents")
	req.Header.Set("Authorization", token)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	type listResponse struct {
		Providers []consent.ProviderConsent `json:"providers"`
	}
	list := testutil.UnmarshalResponse[listResponse](t, rr)
	require.NotEmpty(t, list.Providers)
	for _, entry := range list.Providers {
		assert.True(t, entry.Consented)
		assert.NotEmpty(t, entry.ID)
		assert.NotEmpty(t, entry.Name)
		assert.NotEmpty(t, entry.Address)
	}

	providerID := list.Providers[0].ID
	consented := false
	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/consents/toggle", map[string]any{
		"provider_id": providerID,
		"consented":   consented,
	})
	req.Header.Set("Authorization", token)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	toggle := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, true, (*toggle)["success"])
	assert.NotEmpty(t, (*toggle)["consent_id"])

	req = testutil.NewRequest(t, http.MethodGet, "/api/consents")
	req.Header.Set("Authorization", token)
	rr = testutil.DoRequest(router, req)
	list = testutil.UnmarshalResponse[listResponse](t, rr)
	for _, entry := range list.Providers {
		if entry.ID == providerID {
			assert.False(t, entry.Consented)
		}
	}
}

func TestConsentToggleValidation(t *testing.T) {
	router, jwtService := newTestRouter(t)
	token := bearerFor(t, jwtService, "user-alice")

	// Missing consented flag.
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/consents/toggle", map[string]any{
		"provider_id": "prov-denver-health",
	})
	req.Header.Set("Authorization", token)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	// Unknown provider.
	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/consents/toggle", map[string]any{
		"provider_id": "prov-nope",
		"consented":   true,
	})
	req.Header.Set("Authorization", token)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestConsentBulk(t *testing.T) {
	router, jwtService := newTestRouter(t)
	token := bearerFor(t, jwtService, "user-alice")

	req := testutil.NewRequest(t, http.MethodGet, "/api/providers")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	type providerList struct {
		Providers []provider.Provider `json:"providers"`
	}
	providers := testutil.UnmarshalResponse[providerList](t, rr)
	require.NotEmpty(t, providers.Providers)

	ids := make([]string, len(providers.Providers))
	for i, p := range providers.Providers {
		ids[i] = p.ID
	}

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/consents/revoke-all", map[string]any{
		"provider_ids": ids,
	})
	req.Header.Set("Authorization", token)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	result := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, float64(len(ids)), (*result)["count"])
}

func TestProviderGet(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/providers/prov-denver-health"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/providers/prov-nope"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestAuthSendVerificationHidesUnknowns(t *testing.T) {
	router, _ := newTestRouter(t)

	// Known and unknown identifiers answer identically.
	for _, id := range []string{"CO-DEMO-001", "CO-NOPE-999"} {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/send-verification", map[string]string{
			"medicaid_id": id,
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	}
}

func TestAuthVerifyTokenRejectsGarbage(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/verify-token", map[string]string{
		"token": "bogus",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(t, rr, "unauthorized")
}

func TestAuditLogsRequireAuth(t *testing.T) {
	router, jwtService := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/audit-logs"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	req := testutil.NewRequest(t, http.MethodGet, "/api/audit-logs")
	req.Header.Set("Authorization", bearerFor(t, jwtService, "user-alice"))
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestContentTypeEnforced(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodPost, "/api/kba/verify")
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnsupportedMediaType)
}
