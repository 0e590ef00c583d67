package bot

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
	"github.com/GVMBT/seo-master-sub005/internal/notify"
	"github.com/GVMBT/seo-master-sub005/internal/payment"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Handler struct {
	payments      *payment.Service
	dispatcher    notify.Dispatcher
	webhookSecret string
}

func NewHandler(payments *payment.Service, dispatcher notify.Dispatcher, webhookSecret string) *Handler {
	return &Handler{
		payments:      payments,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
	}
}

// Webhook handles POST /bot. Telegram echoes the configured secret token
// in a header on every delivery; anything without it is not Telegram.
func (h *Handler) Webhook(c *gin.Context) {
	if h.webhookSecret == "" || c.GetHeader(secretTokenHeader) != h.webhookSecret {
		metrics.RecordWebhook("bot", "forbidden")
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	update, err := ParseUpdate(body)
	if err != nil {
		metrics.RecordWebhook("bot", "malformed")
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	switch Classify(update) {
	case UpdatePreCheckout:
		h.handlePreCheckout(c, update.PreCheckoutQuery)
	case UpdateRefund:
		h.handleRefund(c, update)
	case UpdateSuccessfulPayment:
		h.handleSuccessfulPayment(c, update)
	default:
		// Menu traffic and other update types are the UI layer's
		// business; acknowledge so Telegram does not redeliver.
		metrics.RecordWebhook("bot", "ignored")
		c.Status(http.StatusOK)
	}
}

// handlePreCheckout answers in the webhook response itself, which
// Telegram accepts as the method call.
func (h *Handler) handlePreCheckout(c *gin.Context, q *PreCheckoutQuery) {
	result := h.payments.PreCheckout(c.Request.Context(), q.From.ID, q.InvoicePayload, q.TotalAmount)

	answer := gin.H{
		"method":                "answerPreCheckoutQuery",
		"pre_checkout_query_id": q.ID,
		"ok":                    result.OK,
	}
	if !result.OK {
		answer["error_message"] = result.ErrorMessage
	}

	metrics.RecordWebhook("bot", "pre_checkout")
	c.JSON(http.StatusOK, answer)
}

func (h *Handler) handleSuccessfulPayment(c *gin.Context, update *Update) {
	msg := update.Message
	sp := msg.SuccessfulPayment
	userID := msg.From.ID

	result, err := h.payments.SuccessfulPayment(
		c.Request.Context(),
		userID,
		sp.InvoicePayload,
		sp.TelegramPaymentChargeID,
		sp.ProviderPaymentChargeID,
		sp.TotalAmount,
	)
	if errors.Is(err, payment.ErrUnknownPackage) {
		// Redelivery cannot repair the payload; acknowledge and leave
		// the charge id in the log for reconciliation.
		metrics.RecordWebhook("bot", "invalid")
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		// Retryable: Telegram redelivers on non-2xx and the idempotency
		// store absorbs anything already applied.
		logger.Errorf("Successful-payment update for user %d failed: %v", userID, err)
		metrics.RecordWebhook("bot", "error")
		c.Status(http.StatusInternalServerError)
		return
	}

	if !result.Duplicate {
		text := fmt.Sprintf("Payment received! %d tokens credited. Your balance is now %d tokens.",
			result.TokensCredited, result.NewBalance)
		if err := h.dispatcher.Send(c.Request.Context(), userID, "payment_success", text); err != nil {
			logger.Errorf("Payment confirmation for user %d not delivered: %v", userID, err)
		}
	}

	metrics.RecordWebhook("bot", "ok")
	c.Status(http.StatusOK)
}

func (h *Handler) handleRefund(c *gin.Context, update *Update) {
	msg := update.Message
	userID := msg.From.ID
	chargeID := msg.RefundedPayment.TelegramPaymentChargeID

	result, err := h.payments.Refund(c.Request.Context(), userID, chargeID)
	if errors.Is(err, payment.ErrUnknownCharge) {
		metrics.RecordWebhook("bot", "invalid")
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		logger.Errorf("Refund update for user %d (charge %s) failed: %v", userID, chargeID, err)
		metrics.RecordWebhook("bot", "error")
		c.Status(http.StatusInternalServerError)
		return
	}

	if !result.AlreadyRefunded {
		text := fmt.Sprintf("Your payment was refunded. %d tokens were deducted; your balance is now %d tokens.",
			result.TokensDebited, result.NewBalance)
		if err := h.dispatcher.Send(c.Request.Context(), userID, "refund", text); err != nil {
			logger.Errorf("Refund notice for user %d not delivered: %v", userID, err)
		}

		if result.NewBalance < 0 {
			warning := fmt.Sprintf(
				"Warning: your balance is negative (%d tokens) because the refunded purchase was already partly spent. Please top up before generating new articles.",
				result.NewBalance)
			if err := h.dispatcher.Send(c.Request.Context(), userID, "negative_balance", warning); err != nil {
				logger.Errorf("Negative-balance warning for user %d not delivered: %v", userID, err)
			}
		}
	}

	metrics.RecordWebhook("bot", "ok")
	c.Status(http.StatusOK)
}
