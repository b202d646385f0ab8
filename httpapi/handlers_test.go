package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/auth"
	"github.com/dee-mee/aquatrack/store/memory"
)

type testAPI struct {
	handler http.Handler
	ledger  *aquatrack.Ledger
	tokens  *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := aquatrack.New(memory.New(), aquatrack.WithLogger(logger))
	tokens := auth.NewTokenManager("test-secret", "aquatrack-test", time.Hour)
	h := NewHandler(l, tokens, logger)

	return &testAPI{handler: h.Routes(), ledger: l, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()

	admin, err := a.ledger.AddAdmin(context.Background(), "Admin", "admin@aquatrack.test", "super-secret")
	require.NoError(t, err)
	token, err := a.tokens.Generate(admin)
	require.NoError(t, err)
	return token
}

func (a *testAPI) signup(t *testing.T, name, email string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"phone":    "254712345678",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupLoginProfile(t *testing.T) {
	a := newTestAPI(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "John@Example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &resp)

	rec = a.do(t, http.MethodGet, "/api/profile", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile struct {
		Name          string `json:"name"`
		AccountNumber string `json:"account_number"`
		MeterNumber   string `json:"meter_number"`
	}
	decodeData(t, rec, &profile)
	assert.Equal(t, "John Mwangi", profile.Name)
	assert.Equal(t, "AT-001", profile.AccountNumber)
	assert.Equal(t, "MT-1001", profile.MeterNumber)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newTestAPI(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "john@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGates(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A customer token must not open admin routes.
	customerToken := a.signup(t, "John Mwangi", "john@example.com")
	rec = a.do(t, http.MethodGet, "/api/admin/stats", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReadingToPaymentFlow(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	customerToken := a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-001",
		"new_reading":    65,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		AmountDue struct {
			Amount int64 `json:"amount"`
		} `json:"amount_due"`
	}
	decodeData(t, rec, &created)
	assert.Equal(t, "pending_approval", created.Status)
	assert.Equal(t, int64(9750), created.AmountDue.Amount)

	// Paying before approval is a soft decline.
	rec = a.do(t, http.MethodPost, "/api/bills/"+created.ID+"/pay", customerToken, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var payResp struct {
		Paid bool `json:"paid"`
	}
	decodeData(t, rec, &payResp)
	assert.False(t, payResp.Paid)

	rec = a.do(t, http.MethodPost, "/api/admin/bills/"+created.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/bills/"+created.ID+"/pay", customerToken, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &payResp)
	assert.True(t, payResp.Paid)

	// The customer sees the paid bill on their own list.
	rec = a.do(t, http.MethodGet, "/api/bills", customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bills []struct {
		Status string `json:"status"`
	}
	decodeData(t, rec, &bills)
	require.Len(t, bills, 1)
	assert.Equal(t, "paid", bills[0].Status)
}

func TestPayBillOwnership(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")
	otherToken := a.signup(t, "Grace Wanjiku", "grace@example.com")

	rec := a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-001",
		"new_reading":    65,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)

	rec = a.do(t, http.MethodPost, "/api/bills/"+created.ID+"/pay", otherToken, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRejectedReadingReturnsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-001",
		"new_reading":    0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-404",
		"new_reading":    100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkReadingsUpload(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")

	csv := "account_number,new_reading\nAT-001,65\nAT-404,100\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "readings.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, csv)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/readings/bulk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		SuccessCount int `json:"success_count"`
		ErrorCount   int `json:"error_count"`
		Errors       []struct {
			AccountNumber string `json:"account_number"`
			Reason        string `json:"reason"`
		} `json:"errors"`
	}
	decodeData(t, rec, &result)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "AT-404", result.Errors[0].AccountNumber)
	assert.Equal(t, "Account number not found.", result.Errors[0].Reason)
}

func TestExportBillsCSV(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-001",
		"new_reading":    65,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/admin/bills/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "bill_id,customer_name,account_number")
	assert.Contains(t, body, "John Mwangi,AT-001")
	assert.Contains(t, body, "KES 97.50")
}

func TestAdminCustomerCRUD(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)

	rec := a.do(t, http.MethodPost, "/api/admin/customers", admin, map[string]any{
		"name":           "Grace Wanjiku",
		"account_number": "AT-100",
		"meter_number":   "MT-1100",
		"phone":          "254700000000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = a.do(t, http.MethodPut, "/api/admin/customers/"+created.ID, admin, map[string]string{
		"phone": "254711111111",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/admin/customers/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Phone string `json:"phone"`
	}
	decodeData(t, rec, &got)
	assert.Equal(t, "254711111111", got.Phone)

	rec = a.do(t, http.MethodDelete, "/api/admin/customers/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/admin/customers/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDuplicateCustomerConflict(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)

	body := map[string]any{
		"name":           "Grace Wanjiku",
		"account_number": "AT-100",
		"meter_number":   "MT-1100",
	}
	rec := a.do(t, http.MethodPost, "/api/admin/customers", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/customers", admin, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminStats(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		TotalCustomers int64 `json:"total_customers"`
	}
	decodeData(t, rec, &stats)
	assert.Equal(t, int64(1), stats.TotalCustomers)
}

func TestAdminManagementRoutes(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)

	rec := a.do(t, http.MethodPost, "/api/admin/admins", admin, map[string]string{
		"name":     "Second Admin",
		"email":    "second@aquatrack.test",
		"password": "another-secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)

	rec = a.do(t, http.MethodGet, "/api/admin/admins", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var admins []struct {
		Email string `json:"email"`
	}
	decodeData(t, rec, &admins)
	require.Len(t, admins, 2)

	rec = a.do(t, http.MethodDelete, "/api/admin/admins/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSendRemindersRoute(t *testing.T) {
	a := newTestAPI(t)
	admin := a.adminToken(t)
	a.signup(t, "John Mwangi", "john@example.com")

	rec := a.do(t, http.MethodPost, "/api/admin/readings", admin, map[string]any{
		"account_number": "AT-001",
		"new_reading":    65,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)

	rec = a.do(t, http.MethodPost, "/api/admin/bills/"+created.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/reminders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		SentCount  int `json:"sent_count"`
		ErrorCount int `json:"error_count"`
	}
	decodeData(t, rec, &result)
	assert.Equal(t, 1, result.SentCount)
	assert.Zero(t, result.ErrorCount)
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
