package gateway

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
	"github.com/GVMBT/seo-master-sub005/internal/notify"
)

type Handler struct {
	service    *Service
	allowlist  *Allowlist
	dispatcher notify.Dispatcher
}

func NewHandler(service *Service, allowlist *Allowlist, dispatcher notify.Dispatcher) *Handler {
	return &Handler{
		service:    service,
		allowlist:  allowlist,
		dispatcher: dispatcher,
	}
}

// originAddr extracts the delivery's source address. Behind the reverse
// proxy the gateway's address is the first entry of X-Forwarded-For.
func originAddr(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return c.ClientIP()
}

// Webhook handles POST /webhook/gateway. Responses follow the gateway's
// contract: literal "OK" body on anything delivered, 400 on unparseable
// JSON, 403 on untrusted origin.
func (h *Handler) Webhook(c *gin.Context) {
	addr := originAddr(c)
	if !h.allowlist.Contains(addr) {
		logger.Warnf("Gateway webhook from untrusted address %s rejected", addr)
		metrics.RecordWebhook("gateway", "forbidden")
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	ev, err := ParseEvent(body)
	if errors.Is(err, ErrMalformedPayload) {
		metrics.RecordWebhook("gateway", "malformed")
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	notification, err := h.service.Process(c.Request.Context(), ev)
	if err != nil {
		// Retryable: a 500 makes the gateway redeliver, and the
		// idempotency store absorbs the replay of anything already
		// applied.
		logger.Errorf("Gateway event %s (charge %s) failed: %v", ev.Name, ev.ChargeID, err)
		metrics.RecordWebhook("gateway", "error")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	if notification != nil {
		// The ledger mutation is durable by now; delivery is best-effort.
		if err := h.dispatcher.Send(c.Request.Context(), notification.UserID, notification.Kind, notification.Text); err != nil {
			logger.Errorf("Gateway notification for user %d not delivered: %v", notification.UserID, err)
		}
	}

	metrics.RecordWebhook("gateway", "ok")
	c.String(http.StatusOK, "OK")
}
