package fundraising

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bantudesa/pkg/access"
	"bantudesa/pkg/config"
	"bantudesa/pkg/middleware"
)

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *access.Tokens
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, db := newTestLedger(t, ledgerDeps{})
	query := NewCampaignQuery(CampaignQueryParams{DB: db, Config: &config.Config{Fundraising: config.DefaultFundraising()}})
	query.now = func() time.Time { return testNow }

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	tokens, err := access.NewTokens(cfg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(svc, query, tokens).RegisterRoutes(r.Group("/api/v1"))

	return &testAPI{router: r, db: db, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, actor *access.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := a.tokens.Issue(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiError {
	t.Helper()
	var out apiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandlerGuestDonationFlow(t *testing.T) {
	api := newTestAPI(t)
	seedActivity(t, api.db, "act-1", 100_000)

	w := api.do(t, http.MethodPost, "/api/v1/activities/act-1/donations", nil, gin.H{
		"amount":       100_000,
		"proof_ref":    "proofs/guest.jpg",
		"donor_name":   "Tamu",
		"is_anonymous": false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data Donation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, DonationStatusPending, created.Data.Status)

	w = api.do(t, http.MethodGet, "/api/v1/donations/reference/"+created.Data.Reference, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "donor_email")

	w = api.do(t, http.MethodPut, "/api/v1/donations/"+created.Data.ID+"/verify", &admin, gin.H{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPut, "/api/v1/donations/"+created.Data.ID+"/verify", &admin, gin.H{"action": "reject", "reason": "telat"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "INVALID_STATE", decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodGet, "/api/v1/activities/act-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Data struct {
			Status             ActivityStatus `json:"status"`
			Collected          int64          `json:"collected"`
			ProgressPercentage int            `json:"progress_percentage"`
			Donors             []Donor        `json:"donors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Equal(t, ActivityStatusCompleted, detail.Data.Status)
	require.Equal(t, int64(100_000), detail.Data.Collected)
	require.Equal(t, 100, detail.Data.ProgressPercentage)
	require.Len(t, detail.Data.Donors, 1)
	require.Equal(t, "Tamu", detail.Data.Donors[0].Name)
}

func TestHandlerVerifyRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	seedActivity(t, api.db, "act-1", 100_000)
	seedDonation(t, api.db, "don-1", "act-1", 20_000, DonationStatusPending)

	w := api.do(t, http.MethodPut, "/api/v1/donations/don-1/verify", nil, gin.H{"action": "approve"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/donations/don-1/verify", &donor, gin.H{"action": "approve"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodPut, "/api/v1/donations/don-1/verify", &donor, gin.H{"action": "hold"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/donations/don-1/verify", &donor, gin.H{})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/donations/don-1/verify", &admin, gin.H{"action": "hold"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", decodeError(t, w).Error.Code)
}

func TestHandlerSubmitValidation(t *testing.T) {
	api := newTestAPI(t)
	seedActivity(t, api.db, "act-1", 100_000)

	w := api.do(t, http.MethodPost, "/api/v1/activities/act-1/donations", &donor, gin.H{"amount": 5_000, "proof_ref": "p.jpg"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodPost, "/api/v1/activities/nope/donations", &donor, gin.H{"amount": 50_000, "proof_ref": "p.jpg"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/activities/act-1/donations", &donor, gin.H{"amount": 50_000, "proof_ref": "p.jpg", "donor_email": "bukan-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, int64(0), countRows(t, api.db, &Donation{}))
}

func TestHandlerActivityAdmin(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/activities", &admin, gin.H{
		"title":         "Bedah Rumah Warga",
		"description":   "Perbaikan rumah tidak layak huni",
		"target_amount": 15_000_000,
		"start_date":    testNow.Format(time.RFC3339),
		"end_date":      testNow.Add(14 * 24 * time.Hour).Format(time.RFC3339),
		"gallery":       []string{"a.jpg", "b.jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data Activity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "bedah-rumah-warga", created.Data.Slug)

	w = api.do(t, http.MethodGet, "/api/v1/activities?search=rumah", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), created.Data.ID)

	w = api.do(t, http.MethodPost, "/api/v1/activities", &donor, gin.H{"title": "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/activities/"+created.Data.ID+"/cancel", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/activities/"+created.Data.ID, &admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/activities/"+created.Data.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerListStatusFilter(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/activities?status=archived", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/donations/history", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/donations/pending", &donor, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}
