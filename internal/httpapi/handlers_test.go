package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SomuG25/devcall/internal/audit"
	"github.com/SomuG25/devcall/internal/auth"
	"github.com/SomuG25/devcall/internal/booking"
	"github.com/SomuG25/devcall/internal/config"
	"github.com/SomuG25/devcall/internal/profile"
	"github.com/SomuG25/devcall/internal/rbac"
	"github.com/SomuG25/devcall/internal/reporting"

	"github.com/gin-gonic/gin"
)

type okVerifier struct{}

func (okVerifier) Verify(ctx context.Context, proof booking.PaymentProof) error { return nil }

type fixture struct {
	handlers  Handlers
	developer profile.AuthResult
	customer  profile.AuthResult
	auditRepo *audit.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret-test-secret-test-secret",
		JWTIssuer:       "devcall-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles := profile.NewService(profile.NewMemoryRepo(), tokens)

	bookingRepo := booking.NewMemoryRepo()
	validator := booking.NewValidator(time.UTC, "https://meet.devcall.test")
	bookings := booking.NewService(bookingRepo, validator, profiles, okVerifier{}, nil, nil, log)

	auditRepo := audit.NewMemoryRepo()

	f := &fixture{
		handlers: Handlers{
			Profiles: profiles,
			Bookings: bookings,
			Reports:  reporting.NewService(bookingRepo),
			Audit:    audit.NewService(auditRepo),
			Log:      log,
		},
		auditRepo: auditRepo,
	}

	f.developer, err = profiles.SignUp(context.Background(), profile.SignUpInput{
		Email: "dev@example.com", Password: "long-enough-password", Role: rbac.RoleDeveloper, FullName: "Ravi",
	})
	if err != nil {
		t.Fatalf("developer signup: %v", err)
	}
	if _, err := profiles.UpdateDeveloperProfile(context.Background(), f.developer.User.ID, profile.DeveloperProfileInput{
		FullName: "Ravi", HourlyRateMinor: 15000, IsAvailable: true,
	}); err != nil {
		t.Fatalf("publish listing: %v", err)
	}

	f.customer, err = profiles.SignUp(context.Background(), profile.SignUpInput{
		Email: "asha@example.com", Password: "long-enough-password", Role: rbac.RoleCustomer, FullName: "Asha",
	})
	if err != nil {
		t.Fatalf("customer signup: %v", err)
	}
	return f
}

func (f *fixture) router(u profile.AuthResult) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), u.User.ID, u.User.PrimaryRole, u.User.Roles)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/v1/me", f.handlers.Me)
	r.GET("/v1/me/customer-profile", rbac.RequireAnyRole(rbac.RoleCustomer), f.handlers.GetMyCustomerProfile)
	r.PUT("/v1/me/customer-profile", rbac.RequireAnyRole(rbac.RoleCustomer), f.handlers.UpdateCustomerProfile)
	r.POST("/v1/bookings", rbac.RequireAnyRole(rbac.RoleCustomer), f.handlers.CreateBooking)
	r.GET("/v1/bookings", f.handlers.ListBookings)
	r.GET("/v1/bookings/:id", f.handlers.GetBooking)
	r.POST("/v1/bookings/:id/cancel", f.handlers.CancelBooking)
	r.POST("/v1/bookings/:id/call", f.handlers.RecordCallOutcome)
	r.POST("/v1/bookings/:id/payment", rbac.RequireAnyRole(rbac.RoleCustomer), f.handlers.ConfirmPayment)
	r.GET("/v1/bookings/:id/audit", f.handlers.BookingAuditTrail)
	r.GET("/v1/reports/developer", rbac.RequireAnyRole(rbac.RoleDeveloper), f.handlers.DeveloperReport)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bookingPayload(f *fixture) map[string]any {
	return map[string]any{
		"developer_id":     f.developer.User.ID,
		"date":             time.Now().Add(48 * time.Hour).Format("2006-01-02"),
		"time":             "2:30 PM",
		"duration_minutes": 120,
		"project_details": map[string]any{
			"title":        "API integration",
			"description":  "Wire up the payments API",
			"requirements": "Go experience",
			"goals":        "Working sandbox flow",
			"meeting_link": "https://meet.example.com/room/1",
		},
	}
}

func createBooking(t *testing.T, f *fixture) booking.Booking {
	t.Helper()
	w := do(t, f.router(f.customer), http.MethodPost, "/v1/bookings", bookingPayload(f))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}
	var b booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	b := createBooking(t, f)
	if b.AmountMinor != 30000 || b.Status != booking.StatusUpcoming {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if b.CustomerID != f.customer.User.ID {
		t.Fatalf("customer taken from token, got %q", b.CustomerID)
	}

	if evs := f.auditRepo.Events(); len(evs) != 1 || evs[0].Type != audit.EventTypeBookingCreated {
		t.Fatalf("expected created audit event, got %+v", evs)
	}
}

func TestCreateBooking_RequiresCustomerRole(t *testing.T) {
	f := newFixture(t)

	w := do(t, f.router(f.developer), http.MethodPost, "/v1/bookings", bookingPayload(f))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for developer-only account, got %d", w.Code)
	}
}

func TestCreateBooking_ValidationErrorIs400(t *testing.T) {
	f := newFixture(t)

	payload := bookingPayload(f)
	payload["duration_minutes"] = 45

	w := do(t, f.router(f.customer), http.MethodPost, "/v1/bookings", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["kind"] != string(booking.ValidationBadDuration) {
		t.Fatalf("expected bad_duration kind, got %v", resp)
	}
}

func TestCancelBooking_SecondCancelConflicts(t *testing.T) {
	f := newFixture(t)
	b := createBooking(t, f)

	r := f.router(f.developer)
	if w := do(t, r, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", nil); w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body)
	}
	if w := do(t, r, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", w.Code)
	}
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	b := createBooking(t, f)
	r := f.router(f.customer)

	w := do(t, r, http.MethodPost, "/v1/bookings/"+b.ID+"/call", map[string]any{"outcome": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("call outcome: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodPost, "/v1/bookings/"+b.ID+"/payment", map[string]any{"transaction_hash": "0xabc"})
	if w.Code != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d: %s", w.Code, w.Body)
	}
	var paid booking.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if paid.PaymentStatus != booking.PaymentPaid || paid.Status != booking.StatusCompleted {
		t.Fatalf("unexpected final state: %+v", paid)
	}

	// Developer's earnings show up in the report.
	w = do(t, f.router(f.developer), http.MethodGet, "/v1/reports/developer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", w.Code)
	}
	var sum reporting.DeveloperSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if sum.EarnedMinor != 30000 {
		t.Fatalf("earned = %d, want 30000", sum.EarnedMinor)
	}
}

func TestListBookings_JoinsCounterpartyNames(t *testing.T) {
	f := newFixture(t)
	createBooking(t, f)

	w := do(t, f.router(f.customer), http.MethodGet, "/v1/bookings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Bookings []struct {
			DeveloperName string `json:"developer_name"`
			CustomerName  string `json:"customer_name"`
		} `json:"bookings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(resp.Bookings))
	}
	if resp.Bookings[0].DeveloperName != "Ravi" || resp.Bookings[0].CustomerName != "Asha" {
		t.Fatalf("expected joined names, got %+v", resp.Bookings[0])
	}
}

func TestMe_ReturnsAccountWithProfiles(t *testing.T) {
	f := newFixture(t)

	w := do(t, f.router(f.developer), http.MethodGet, "/v1/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", w.Code, w.Body)
	}
	var acct profile.Account
	if err := json.Unmarshal(w.Body.Bytes(), &acct); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if acct.User.ID != f.developer.User.ID {
		t.Fatalf("wrong user: %+v", acct.User)
	}
	if acct.Developer == nil || acct.Developer.HourlyRateMinor != 15000 {
		t.Fatalf("expected developer profile in account, got %+v", acct)
	}
}

func TestCustomerProfileOverHTTP(t *testing.T) {
	f := newFixture(t)
	r := f.router(f.customer)

	w := do(t, r, http.MethodPut, "/v1/me/customer-profile", map[string]any{
		"full_name":    "Asha K",
		"organization": "Acme Ltd",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodGet, "/v1/me/customer-profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", w.Code, w.Body)
	}
	var p profile.CustomerProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Organization != "Acme Ltd" || p.FullName != "Asha K" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	// Developer-only accounts lack the customer role.
	w = do(t, f.router(f.developer), http.MethodPut, "/v1/me/customer-profile", map[string]any{"full_name": "Ravi"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestBookingAuditTrail(t *testing.T) {
	f := newFixture(t)
	b := createBooking(t, f)

	r := f.router(f.customer)
	if w := do(t, r, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", nil); w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body)
	}

	w := do(t, r, http.MethodGet, "/v1/bookings/"+b.ID+"/audit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trail: expected 200, got %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("expected created + transition events, got %+v", resp.Events)
	}
	if resp.Events[0].Type != audit.EventTypeBookingCreated || resp.Events[1].Type != audit.EventTypeBookingTransition {
		t.Fatalf("unexpected event order: %+v", resp.Events)
	}

	stranger, err := f.handlers.Profiles.SignUp(context.Background(), profile.SignUpInput{
		Email: "mallory@example.com", Password: "long-enough-password", Role: rbac.RoleCustomer, FullName: "Mallory",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if w := do(t, f.router(stranger), http.MethodGet, "/v1/bookings/"+b.ID+"/audit", nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger trail: expected 403, got %d", w.Code)
	}
}

func TestGetBooking_StrangerIsForbidden(t *testing.T) {
	f := newFixture(t)
	b := createBooking(t, f)

	stranger, err := f.handlers.Profiles.SignUp(context.Background(), profile.SignUpInput{
		Email: "mallory@example.com", Password: "long-enough-password", Role: rbac.RoleCustomer, FullName: "Mallory",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	w := do(t, f.router(stranger), http.MethodGet, "/v1/bookings/"+b.ID, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
