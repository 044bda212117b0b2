package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SomuG25/devcall/internal/auth"
	"github.com/SomuG25/devcall/internal/rbac"
	"github.com/SomuG25/devcall/internal/realtime"

	"github.com/gin-gonic/gin"
)

const streamHeartbeat = 25 * time.Second

// StreamBookings serves the caller's booking change feed as server-sent
// events. The subscription is scoped to the caller's own bookings on
// whichever sides of the marketplace they occupy. Delivery is best effort;
// clients recover missed events with a list re-fetch on reconnect.
func (h Handlers) StreamBookings(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	roles, _ := auth.Roles(c.Request.Context())
	primary, _ := auth.Role(c.Request.Context())
	set := rbac.FromSlice(roles, primary)

	var filter realtime.Filter
	if set.Has(rbac.RoleDeveloper) {
		filter.DeveloperID = userID
	}
	if set.Has(rbac.RoleCustomer) {
		filter.CustomerID = userID
	}
	if filter == (realtime.Filter{}) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no subscribable role"})
		return
	}

	events, err := h.Stream.Subscribe(c.Request.Context(), filter)
	if err != nil {
		h.Log.Error("change feed subscription failed", "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "change feed unavailable"})
		return
	}

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			w.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.Log.Warn("dropping unencodable change event", "error", err)
				continue
			}
			if _, err := w.Write([]byte("event: " + string(ev.Event) + "\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(append(payload, '\n', '\n')); err != nil {
				return
			}
			w.Flush()
		}
	}
}
