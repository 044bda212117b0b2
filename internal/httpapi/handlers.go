package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SomuG25/devcall/internal/audit"
	"github.com/SomuG25/devcall/internal/auth"
	"github.com/SomuG25/devcall/internal/booking"
	"github.com/SomuG25/devcall/internal/profile"
	"github.com/SomuG25/devcall/internal/rbac"
	"github.com/SomuG25/devcall/internal/realtime"
	"github.com/SomuG25/devcall/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Profiles *profile.Service
	Bookings *booking.Service
	Reports  *reporting.Service
	Audit    *audit.Service
	Stream   *realtime.Subscriber
	Log      *slog.Logger
}

// --- Auth ---

func (h Handlers) SignUp(c *gin.Context) {
	var req profile.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Profiles.SignUp(c.Request.Context(), req)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Profiles.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	res, err := h.Profiles.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BecomeCustomer grants the caller the customer role so they can book.
func (h Handlers) BecomeCustomer(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	u, err := h.Profiles.BecomeCustomer(c.Request.Context(), userID)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// --- Profiles ---

// Me returns the caller's account: user record plus whichever profiles
// their roles carry.
func (h Handlers) Me(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	acct, err := h.Profiles.Account(c.Request.Context(), userID)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h Handlers) GetMyCustomerProfile(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	p, err := h.Profiles.GetCustomerProfile(c.Request.Context(), userID)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) UpdateCustomerProfile(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req profile.CustomerProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Profiles.UpdateCustomerProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) ListDevelopers(c *gin.Context) {
	out, err := h.Profiles.ListAvailableDevelopers(c.Request.Context())
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"developers": out})
}

func (h Handlers) GetDeveloper(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	p, err := h.Profiles.GetDeveloperProfile(c.Request.Context(), id)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) UpdateDeveloperProfile(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req profile.DeveloperProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Profiles.UpdateDeveloperProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.profileErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Bookings ---

func (h Handlers) CreateBooking(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req booking.NewBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.CustomerID = userID

	b, err := h.Bookings.Create(c.Request.Context(), req)
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	h.auditCreated(c, b)
	c.JSON(http.StatusCreated, b)
}

// ListBookings returns the caller's bookings for one side of the
// marketplace. Users holding both roles pick a side with ?side=.
func (h Handlers) ListBookings(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	roles, _ := auth.Roles(c.Request.Context())
	primary, _ := auth.Role(c.Request.Context())
	set := rbac.FromSlice(roles, primary)

	side := c.Query("side")
	if side == "" {
		side = set.Primary
	}

	var out []booking.Booking
	switch side {
	case rbac.RoleDeveloper:
		if !set.Has(rbac.RoleDeveloper) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "developer role required"})
			return
		}
		out, err = h.Bookings.ListForDeveloper(c.Request.Context(), userID)
	case rbac.RoleCustomer:
		if !set.Has(rbac.RoleCustomer) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "customer role required"})
			return
		}
		out, err = h.Bookings.ListForCustomer(c.Request.Context(), userID)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "side must be developer or customer"})
		return
	}
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": h.bookingViews(c, out)})
}

// bookingView is a booking row joined with its parties' display names,
// re-derived per request from the profile store.
type bookingView struct {
	booking.Booking
	DeveloperName string `json:"developer_name"`
	CustomerName  string `json:"customer_name"`
}

func (h Handlers) bookingViews(c *gin.Context, rows []booking.Booking) []bookingView {
	ids := make([]string, 0, 2*len(rows))
	for _, b := range rows {
		ids = append(ids, b.DeveloperID, b.CustomerID)
	}
	names, err := h.Profiles.DisplayNames(c.Request.Context(), ids)
	if err != nil {
		// Names are display sugar; the list itself still stands.
		h.Log.Warn("display name lookup failed", "error", err)
		names = map[string]string{}
	}

	out := make([]bookingView, 0, len(rows))
	for _, b := range rows {
		out = append(out, bookingView{
			Booking:       b,
			DeveloperName: names[b.DeveloperID],
			CustomerName:  names[b.CustomerID],
		})
	}
	return out
}

func (h Handlers) GetBooking(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	b, err := h.Bookings.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handlers) CancelBooking(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")

	prior, err := h.Bookings.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	b, err := h.Bookings.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	h.auditTransition(c, b.ID, prior.State(), b.State())
	c.JSON(http.StatusOK, b)
}

type callOutcomeRequest struct {
	Outcome string `json:"outcome"`
}

// RecordCallOutcome settles the call once the session page ends:
// outcome is "completed" or "failed".
func (h Handlers) RecordCallOutcome(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req callOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := c.Param("id")

	prior, err := h.Bookings.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.bookingErr(c, err)
		return
	}

	var b booking.Booking
	switch req.Outcome {
	case "completed":
		b, err = h.Bookings.MarkCallCompleted(c.Request.Context(), id, userID)
	case "failed":
		b, err = h.Bookings.MarkCallFailed(c.Request.Context(), id, userID)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "outcome must be completed or failed"})
		return
	}
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	h.auditTransition(c, b.ID, prior.State(), b.State())
	c.JSON(http.StatusOK, b)
}

type confirmPaymentRequest struct {
	TransactionHash string `json:"transaction_hash"`
}

func (h Handlers) ConfirmPayment(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	b, err := h.Bookings.ConfirmPayment(c.Request.Context(), c.Param("id"), userID, req.TransactionHash)

	var perr *booking.PaymentValidationError
	if errors.As(err, &perr) {
		h.auditPayment(c, b, userID, false)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":               "payment validation failed",
			"validation_attempts": perr.Attempts,
			"booking":             b,
		})
		return
	}
	if err != nil {
		h.bookingErr(c, err)
		return
	}
	h.auditPayment(c, b, userID, true)
	c.JSON(http.StatusOK, b)
}

// BookingAuditTrail returns the lifecycle trail for a booking. Access
// follows the booking itself: parties only.
func (h Handlers) BookingAuditTrail(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")
	if _, err := h.Bookings.Get(c.Request.Context(), id, userID); err != nil {
		h.bookingErr(c, err)
		return
	}
	events, err := h.Audit.Trail(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// --- Reporting ---

func (h Handlers) DeveloperReport(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	summary, err := h.Reports.DeveloperSummary(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h Handlers) CustomerReport(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	summary, err := h.Reports.CustomerSummary(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- Audit (best effort, never blocks the response) ---

func (h Handlers) auditCreated(c *gin.Context, b booking.Booking) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogCreated(c.Request.Context(), b, userID, role); err != nil {
		h.Log.Warn("audit append failed", "booking_id", b.ID, "error", err)
	}
}

func (h Handlers) auditTransition(c *gin.Context, bookingID string, from, to booking.State) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogTransition(c.Request.Context(), bookingID, from, to, userID, role); err != nil {
		h.Log.Warn("audit append failed", "booking_id", bookingID, "error", err)
	}
}

func (h Handlers) auditPayment(c *gin.Context, b booking.Booking, userID string, verified bool) {
	if h.Audit == nil || b.ID == "" {
		return
	}
	if err := h.Audit.LogPaymentAttempt(c.Request.Context(), b, userID, verified); err != nil {
		h.Log.Warn("audit append failed", "booking_id", b.ID, "error", err)
	}
}

// --- Error mapping ---

func (h Handlers) bookingErr(c *gin.Context, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": verr.Msg, "kind": verr.Kind, "field": verr.Field,
		})
		return
	}
	var terr *booking.IllegalTransitionError
	if errors.As(err, &terr) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": terr.Error()})
		return
	}
	switch {
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, booking.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, booking.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	case errors.Is(err, profile.ErrNotBookable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "developer is not available for booking"})
	default:
		h.Log.Error("booking operation failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h Handlers) profileErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, profile.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, profile.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case errors.Is(err, profile.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		h.Log.Error("profile operation failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
