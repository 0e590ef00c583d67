package taskhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GVMBT/seo-master-sub005/internal/api"
	"github.com/GVMBT/seo-master-sub005/internal/idempotency"
	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
)

const (
	headerSignature = "Signature"
	headerMessageID = "Message-Id"
)

type Handler struct {
	service       *Service
	idem          idempotency.Store
	signingSecret string
}

func NewHandler(service *Service, idem idempotency.Store, signingSecret string) *Handler {
	return &Handler{
		service:       service,
		idem:          idem,
		signingSecret: signingSecret,
	}
}

// Notify handles POST /notify. Authentication comes first and
// touches nothing but the raw body; validation failures that redelivery
// cannot fix are answered 200 so the dispatcher drops the message.
func (h *Handler) Notify(c *gin.Context) {
	signature := c.GetHeader(headerSignature)
	if signature == "" {
		metrics.RecordWebhook("taskq", "unauthenticated")
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "missing signature"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unreadable body"})
		return
	}

	if !VerifySignature(h.signingSecret, body, signature) {
		logger.Warn("Task webhook rejected: invalid signature")
		metrics.RecordWebhook("taskq", "unauthenticated")
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid signature"})
		return
	}

	messageID := c.GetHeader(headerMessageID)
	if messageID == "" {
		metrics.RecordWebhook("taskq", "invalid")
		c.JSON(http.StatusOK, api.StatusResponse{Status: "error", Reason: "invalid_payload"})
		return
	}

	isNew, err := h.idem.RecordIfNew(c.Request.Context(), idempotency.NamespaceTaskQ, messageID)
	if err != nil {
		logger.Errorf("Task webhook %s idempotency check failed: %v", messageID, err)
		metrics.RecordWebhook("taskq", "error")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}
	if !isNew {
		logger.Infof("Duplicate task delivery %s", messageID)
		metrics.RecordWebhook("taskq", "duplicate")
		c.JSON(http.StatusOK, api.StatusResponse{Status: "duplicate"})
		return
	}

	var req NotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.RecordWebhook("taskq", "invalid")
		c.JSON(http.StatusOK, api.StatusResponse{Status: "error", Reason: "invalid_payload"})
		return
	}
	if err := h.service.Validate(&req); err != nil {
		logger.Warnf("Task delivery %s failed validation: %v", messageID, err)
		metrics.RecordWebhook("taskq", "invalid")
		c.JSON(http.StatusOK, api.StatusResponse{Status: "error", Reason: "invalid_payload"})
		return
	}

	result, err := h.service.Process(c.Request.Context(), &req)
	if err != nil {
		logger.Errorf("Task delivery %s processing failed: %v", messageID, err)
		metrics.RecordWebhook("taskq", "error")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}

	metrics.RecordWebhook("taskq", "ok")
	c.JSON(http.StatusOK, api.BroadcastResponse{
		Status: "ok",
		Type:   result.Type,
		Sent:   result.Sent,
		Failed: result.Failed,
	})
}
