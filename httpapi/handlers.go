// Package httpapi exposes the billing engine over a JSON REST API.
package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/auth"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/reading"
	"github.com/dee-mee/aquatrack/types"
)

// Handler owns every route of the API. Admin routes sit under
// /api/admin and require an admin token; customer routes require any
// valid token.
type Handler struct {
	ledger *aquatrack.Ledger
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(l *aquatrack.Ledger, tokens *auth.TokenManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: l, tokens: tokens, logger: logger}
}

// Routes builds the full route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /api/signup", h.handleSignup)
	mux.HandleFunc("POST /api/login", h.handleLogin)

	mux.HandleFunc("GET /api/profile", h.requireAuth(h.handleProfile))
	mux.HandleFunc("PUT /api/profile", h.requireAuth(h.handleUpdateProfile))
	mux.HandleFunc("GET /api/bills", h.requireAuth(h.handleMyBills))
	mux.HandleFunc("POST /api/bills/{id}/pay", h.requireAuth(h.handlePayBill))

	mux.HandleFunc("GET /api/admin/stats", h.requireAdmin(h.handleStats))
	mux.HandleFunc("GET /api/admin/meters", h.requireAdmin(h.handleMeters))

	mux.HandleFunc("GET /api/admin/customers", h.requireAdmin(h.handleListCustomers))
	mux.HandleFunc("POST /api/admin/customers", h.requireAdmin(h.handleCreateCustomer))
	mux.HandleFunc("GET /api/admin/customers/{id}", h.requireAdmin(h.handleGetCustomer))
	mux.HandleFunc("PUT /api/admin/customers/{id}", h.requireAdmin(h.handleUpdateCustomer))
	mux.HandleFunc("DELETE /api/admin/customers/{id}", h.requireAdmin(h.handleDeleteCustomer))
	mux.HandleFunc("GET /api/admin/customers/{id}/bills", h.requireAdmin(h.handleCustomerBills))

	mux.HandleFunc("POST /api/admin/readings", h.requireAdmin(h.handleSubmitReading))
	mux.HandleFunc("POST /api/admin/readings/bulk", h.requireAdmin(h.handleBulkReadings))

	mux.HandleFunc("GET /api/admin/bills", h.requireAdmin(h.handleListBills))
	mux.HandleFunc("GET /api/admin/bills/export", h.requireAdmin(h.handleExportBills))
	mux.HandleFunc("POST /api/admin/bills", h.requireAdmin(h.handleAddBill))
	mux.HandleFunc("PUT /api/admin/bills/{id}", h.requireAdmin(h.handleUpdateBill))
	mux.HandleFunc("DELETE /api/admin/bills/{id}", h.requireAdmin(h.handleDeleteBill))
	mux.HandleFunc("POST /api/admin/bills/{id}/approve", h.requireAdmin(h.handleApproveBill))
	mux.HandleFunc("POST /api/admin/bills/{id}/paid", h.requireAdmin(h.handleMarkBillPaid))

	mux.HandleFunc("POST /api/admin/reminders", h.requireAdmin(h.handleSendReminders))

	mux.HandleFunc("GET /api/admin/admins", h.requireAdmin(h.handleListAdmins))
	mux.HandleFunc("POST /api/admin/admins", h.requireAdmin(h.handleAddAdmin))
	mux.HandleFunc("DELETE /api/admin/admins/{id}", h.requireAdmin(h.handleRemoveAdmin))

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, "ok", map[string]string{"status": "up"})
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := h.ledger.Signup(r.Context(), aquatrack.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "account created", authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := h.ledger.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "login successful", authResponse{Token: token, User: user})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.callerAccountID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	profile, err := h.ledger.Profile(r.Context(), accountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "profile", profile)
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.callerAccountID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	profile, err := h.ledger.UpdateProfile(r.Context(), accountID, req.Name, req.Phone)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "profile updated", profile)
}

// handleMyBills lists the calling customer's own bills.
func (h *Handler) handleMyBills(w http.ResponseWriter, r *http.Request) {
	c, err := h.callerCustomer(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	bills, err := h.ledger.ListBillsForCustomer(r.Context(), c.ID, listBillOpts(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bills", bills)
}

type payRequest struct {
	Phone string `json:"phone"`
}

// handlePayBill charges the caller's mobile money for one of their own
// bills. Declines come back as 200 with paid=false, mirroring the
// engine's soft-fail behavior.
func (h *Handler) handlePayBill(w http.ResponseWriter, r *http.Request) {
	c, err := h.callerCustomer(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	billID, err := id.ParseBillID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	phone := req.Phone
	if phone == "" {
		phone = c.Phone
	}

	b, err := h.ledger.GetBill(r.Context(), billID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if b.CustomerID.String() != c.ID.String() {
		h.respondErr(w, http.StatusForbidden, "bill belongs to another customer")
		return
	}

	paid, err := h.ledger.PayBill(r.Context(), billID, phone)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "payment processed", map[string]bool{"paid": paid})
}

// ──────────────────────────────────────────────────
// Admin: customers
// ──────────────────────────────────────────────────

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	opts := customer.ListOpts{
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}
	customers, err := h.ledger.ListCustomers(r.Context(), opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "customers", customers)
}

type customerRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	MeterNumber   string `json:"meter_number"`
	Phone         string `json:"phone"`
	LastReading   *int64 `json:"last_reading"`
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	c := &customer.Customer{
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		MeterNumber:   req.MeterNumber,
		Phone:         req.Phone,
	}
	if req.LastReading != nil {
		c.LastReading = *req.LastReading
	}

	if err := h.ledger.CreateCustomer(r.Context(), c); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "customer created", c)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	c, err := h.ledger.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "customer", c)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	c, err := h.ledger.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.fail(w, err)
		return
	}

	if req.Name != "" {
		c.Name = req.Name
	}
	if req.AccountNumber != "" {
		c.AccountNumber = req.AccountNumber
	}
	if req.MeterNumber != "" {
		c.MeterNumber = req.MeterNumber
	}
	if req.Phone != "" {
		c.Phone = req.Phone
	}

	if err := h.ledger.UpdateCustomer(r.Context(), c); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "customer updated", c)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	removed, err := h.ledger.DeleteCustomer(r.Context(), customerID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "customer deleted", map[string]int64{"bills_removed": removed})
}

func (h *Handler) handleCustomerBills(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	bills, err := h.ledger.ListBillsForCustomer(r.Context(), customerID, listBillOpts(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bills", bills)
}

// ──────────────────────────────────────────────────
// Admin: readings
// ──────────────────────────────────────────────────

type readingRequest struct {
	AccountNumber string `json:"account_number"`
	NewReading    int64  `json:"new_reading"`
}

func (h *Handler) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	b, err := h.ledger.SubmitReading(r.Context(), req.AccountNumber, req.NewReading)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "bill created", b)
}

// handleBulkReadings accepts a CSV upload, either as a multipart "file"
// part or as the raw request body.
func (h *Handler) handleBulkReadings(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	subs, err := reading.ParseCSV(body)
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledger.SubmitBulkReadings(r.Context(), subs)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bulk readings processed", result)
}

// ──────────────────────────────────────────────────
// Admin: bills
// ──────────────────────────────────────────────────

func (h *Handler) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.ledger.ListAllBills(r.Context(), listBillOpts(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bills", bills)
}

// handleExportBills streams the joined bill list as a CSV download.
func (h *Handler) handleExportBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.ledger.ListAllBills(r.Context(), listBillOpts(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bills.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"bill_id", "customer_name", "account_number", "period",
		"previous_reading", "current_reading", "consumption",
		"rate", "amount_due", "due_date", "status", "payment_ref",
	})
	for _, b := range bills {
		_ = cw.Write([]string{
			b.ID.String(),
			b.CustomerName,
			b.CustomerAccountNumber,
			b.Period,
			strconv.FormatInt(b.PreviousReading, 10),
			strconv.FormatInt(b.CurrentReading, 10),
			strconv.FormatInt(b.Consumption, 10),
			b.Rate.String(),
			b.AmountDue.String(),
			b.DueDate.Format("2006-01-02"),
			string(b.Status),
			b.PaymentRef,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write csv export", slog.String("error", err.Error()))
	}
}

type addBillRequest struct {
	CustomerID      string     `json:"customer_id"`
	Period          string     `json:"period"`
	CurrentReading  int64      `json:"current_reading"`
	PreviousReading *int64     `json:"previous_reading"`
	RateCents       *int64     `json:"rate_cents"`
	DueDate         *time.Time `json:"due_date"`
}

func (h *Handler) handleAddBill(w http.ResponseWriter, r *http.Request) {
	var req addBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	customerID, err := id.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	in := aquatrack.AddBillInput{
		CustomerID:      customerID,
		Period:          req.Period,
		CurrentReading:  req.CurrentReading,
		PreviousReading: req.PreviousReading,
	}
	if req.RateCents != nil {
		rate := types.KES(*req.RateCents)
		in.Rate = &rate
	}
	if req.DueDate != nil {
		in.DueDate = *req.DueDate
	}

	b, err := h.ledger.AddBill(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "bill created", b)
}

type updateBillRequest struct {
	Period          *string    `json:"period"`
	CurrentReading  *int64     `json:"current_reading"`
	PreviousReading *int64     `json:"previous_reading"`
	RateCents       *int64     `json:"rate_cents"`
	DueDate         *time.Time `json:"due_date"`
	Status          *string    `json:"status"`
}

func (h *Handler) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	billID, err := id.ParseBillID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	var req updateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	b, err := h.ledger.GetBill(r.Context(), billID)
	if err != nil {
		h.fail(w, err)
		return
	}

	if req.Period != nil {
		b.Period = *req.Period
	}
	if req.CurrentReading != nil {
		b.CurrentReading = *req.CurrentReading
	}
	if req.PreviousReading != nil {
		b.PreviousReading = *req.PreviousReading
	}
	if req.RateCents != nil {
		b.Rate = types.KES(*req.RateCents)
	}
	if req.DueDate != nil {
		b.DueDate = *req.DueDate
	}
	if req.Status != nil {
		b.Status = bill.Status(*req.Status)
	}

	if err := h.ledger.UpdateBill(r.Context(), b); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bill updated", b)
}

func (h *Handler) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	billID, err := id.ParseBillID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	if err := h.ledger.DeleteBill(r.Context(), billID); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bill deleted", nil)
}

func (h *Handler) handleApproveBill(w http.ResponseWriter, r *http.Request) {
	billID, err := id.ParseBillID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	b, err := h.ledger.ApproveBill(r.Context(), billID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "bill approved", b)
}

func (h *Handler) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	billID, err := id.ParseBillID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	paid, err := h.ledger.MarkBillPaid(r.Context(), billID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "payment recorded", map[string]bool{"paid": paid})
}

// ──────────────────────────────────────────────────
// Admin: reminders, metrics, admins
// ──────────────────────────────────────────────────

func (h *Handler) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.SendPaymentReminders(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "reminders dispatched", result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.DashboardStats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "dashboard stats", stats)
}

func (h *Handler) handleMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := h.ledger.MeterMetrics(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "meter metrics", meters)
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.ledger.ListAdmins(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "admins", admins)
}

type addAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	admin, err := h.ledger.AddAdmin(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "admin created", admin)
}

func (h *Handler) handleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	accountID, err := id.ParseAccountID(r.PathValue("id"))
	if err != nil {
		h.respondErr(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.ledger.RemoveAdmin(r.Context(), accountID); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, "admin removed", nil)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (h *Handler) callerAccountID(r *http.Request) (id.AccountID, error) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		return id.AccountID{}, aquatrack.ErrUnauthorized
	}
	accountID, err := id.ParseAccountID(claims.AccountID)
	if err != nil {
		return id.AccountID{}, aquatrack.ErrUnauthorized
	}
	return accountID, nil
}

// callerCustomer resolves the calling token to its customer record.
func (h *Handler) callerCustomer(r *http.Request) (*customer.Customer, error) {
	accountID, err := h.callerAccountID(r)
	if err != nil {
		return nil, err
	}

	profile, err := h.ledger.Profile(r.Context(), accountID)
	if err != nil {
		return nil, err
	}
	return h.ledger.GetCustomerByAccount(r.Context(), profile.AccountNumber)
}

func listBillOpts(r *http.Request) bill.ListOpts {
	return bill.ListOpts{
		Status: bill.Status(r.URL.Query().Get("status")),
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}
}

func intQuery(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
