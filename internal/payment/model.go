package payment

import "time"

const (
	ProviderStars   = "stars"
	ProviderGateway = "gateway"
)

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

const (
	StatusSucceeded = "succeeded"
)

// Transaction is the immutable record of one applied provider event.
// (provider, external_charge_id) is unique; the refunded flag is the only
// field ever updated, and it flips exactly once.
type Transaction struct {
	ID               int64     `db:"id" json:"id"`
	Provider         string    `db:"provider" json:"provider"`
	ExternalChargeID string    `db:"external_charge_id" json:"external_charge_id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Direction        string    `db:"direction" json:"direction"`
	Payload          string    `db:"payload" json:"payload"`
	TokenAmount      int64     `db:"token_amount" json:"token_amount"`
	Status           string    `db:"status" json:"status"`
	Refunded         bool      `db:"refunded" json:"refunded"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// TokenPackage is a purchasable bundle. The invoice payload is the key
// carried through the whole Stars flow.
type TokenPackage struct {
	Payload    string `json:"payload"`
	Tokens     int64  `json:"tokens"`
	StarsPrice int64  `json:"stars_price"`
	Title      string `json:"title"`
}

var packages = map[string]TokenPackage{
	"tokens_500":   {Payload: "tokens_500", Tokens: 500, StarsPrice: 250, Title: "500 tokens"},
	"tokens_1000":  {Payload: "tokens_1000", Tokens: 1000, StarsPrice: 450, Title: "1000 tokens"},
	"tokens_5000":  {Payload: "tokens_5000", Tokens: 5000, StarsPrice: 2000, Title: "5000 tokens"},
	"tokens_10000": {Payload: "tokens_10000", Tokens: 10000, StarsPrice: 3500, Title: "10000 tokens"},
}

// ResolvePackage maps an invoice payload to its package.
func ResolvePackage(payload string) (TokenPackage, bool) {
	pkg, ok := packages[payload]
	return pkg, ok
}

// PreCheckoutResult is the answer to a pre-checkout query. On rejection
// the provider shows ErrorMessage to the user and does not charge.
type PreCheckoutResult struct {
	OK           bool   `json:"ok"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PaymentResult reports a successful-payment application.
type PaymentResult struct {
	Duplicate      bool  `json:"duplicate"`
	TokensCredited int64 `json:"tokens_credited"`
	NewBalance     int64 `json:"new_balance"`
}

// RefundResult reports a refund application. NewBalance may be negative.
type RefundResult struct {
	AlreadyRefunded bool  `json:"already_refunded"`
	TokensDebited   int64 `json:"tokens_debited"`
	NewBalance      int64 `json:"new_balance"`
}
