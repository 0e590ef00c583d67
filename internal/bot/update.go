package bot

import "encoding/json"

// Wire shapes for the subset of Telegram updates the payment core
// consumes. Menu and command updates belong to the UI layer and are
// deliberately not modeled here.

type User struct {
	ID int64 `json:"id"`
}

type PreCheckoutQuery struct {
	ID             string `json:"id"`
	From           User   `json:"from"`
	Currency       string `json:"currency"`
	TotalAmount    int64  `json:"total_amount"`
	InvoicePayload string `json:"invoice_payload"`
}

type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	ProviderPaymentChargeID string `json:"provider_payment_charge_id"`
}

type RefundedPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

type Message struct {
	From              *User              `json:"from"`
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment"`
	RefundedPayment   *RefundedPayment   `json:"refunded_payment"`
}

type Update struct {
	UpdateID         int64             `json:"update_id"`
	Message          *Message          `json:"message"`
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query"`
}

// UpdateKind is the closed set of payment-relevant update variants.
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdatePreCheckout
	UpdateRefund
	UpdateSuccessfulPayment
)

// Classify resolves an update to exactly one variant. The order is the
// precedence: a refund is matched before a successful payment because a
// refund message is the more specific signal, and mis-reading one as a
// fresh payment would credit tokens for money the user got back.
// Payment and refund messages need a sender to attribute the money to,
// so a message without one is unknown rather than a crash later on.
func Classify(u *Update) UpdateKind {
	if u.PreCheckoutQuery != nil {
		return UpdatePreCheckout
	}
	if u.Message == nil || u.Message.From == nil {
		return UpdateUnknown
	}
	if u.Message.RefundedPayment != nil {
		return UpdateRefund
	}
	if u.Message.SuccessfulPayment != nil {
		return UpdateSuccessfulPayment
	}
	return UpdateUnknown
}

func ParseUpdate(body []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
