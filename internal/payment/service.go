package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GVMBT/seo-master-sub005/internal/idempotency"
	"github.com/GVMBT/seo-master-sub005/internal/ledger"
	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
)

var (
	ErrUnknownPackage = errors.New("unknown token package")
	ErrUnknownCharge  = errors.New("unknown charge id")
)

// duplicatePurchaseWindow guards pre-checkout against a user paying for
// the same package twice while the first invoice is still settling.
const duplicatePurchaseWindow = 2 * time.Minute

// Service is the Telegram Stars payment processor. Every operation is
// idempotent: provider callbacks can be redelivered and can race each
// other across instances.
type Service struct {
	ledger ledger.Repository
	txRepo TransactionRepository
	idem   idempotency.Store
}

func NewService(ledgerRepo ledger.Repository, txRepo TransactionRepository, idem idempotency.Store) *Service {
	return &Service{
		ledger: ledgerRepo,
		txRepo: txRepo,
		idem:   idem,
	}
}

// PreCheckout answers the provider's pre-checkout query. On rejection the
// provider does not charge the user, so every validation that can fail
// later must fail here first.
func (s *Service) PreCheckout(ctx context.Context, userID int64, payload string, totalAmount int64) PreCheckoutResult {
	pkg, ok := ResolvePackage(payload)
	if !ok {
		logger.Warnf("Pre-checkout rejected for user %d: unknown package %q", userID, payload)
		return PreCheckoutResult{OK: false, ErrorMessage: "This token package is no longer available."}
	}

	if totalAmount != pkg.StarsPrice {
		logger.Warnf("Pre-checkout rejected for user %d: amount %d does not match package %q (%d)",
			userID, totalAmount, payload, pkg.StarsPrice)
		return PreCheckoutResult{OK: false, ErrorMessage: "The invoice amount is out of date. Please start the purchase again."}
	}

	recent, err := s.txRepo.HasRecentPurchase(ctx, userID, payload, duplicatePurchaseWindow)
	if err != nil {
		logger.Errorf("Pre-checkout lookup failed for user %d: %v", userID, err)
		return PreCheckoutResult{OK: false, ErrorMessage: "Payment service is temporarily unavailable. Please try again."}
	}
	if recent {
		return PreCheckoutResult{OK: false, ErrorMessage: "This purchase was already completed a moment ago."}
	}

	return PreCheckoutResult{OK: true}
}

// SuccessfulPayment credits the purchased tokens exactly once per charge
// id. A redelivered callback returns Duplicate without touching the
// ledger.
func (s *Service) SuccessfulPayment(ctx context.Context, userID int64, payload, chargeID, providerChargeID string, totalAmount int64) (PaymentResult, error) {
	// Resolution is pure and must precede the idempotency insert: a
	// payload we cannot resolve must stay unprocessed so a corrected
	// redelivery still goes through.
	pkg, ok := ResolvePackage(payload)
	if !ok {
		logger.Errorf("Successful payment with unknown payload %q (charge %s, user %d)", payload, chargeID, userID)
		return PaymentResult{}, ErrUnknownPackage
	}

	isNew, err := s.idem.RecordIfNew(ctx, idempotency.NamespaceStars, chargeID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("idempotency check for charge %s: %w", chargeID, err)
	}
	if !isNew {
		logger.Infof("Duplicate successful-payment callback for charge %s (user %d)", chargeID, userID)
		metrics.RecordPayment(ProviderStars, "duplicate")
		return PaymentResult{Duplicate: true}, nil
	}

	newBalance, err := s.ledger.Credit(ctx, userID, pkg.Tokens)
	if err != nil {
		// Never swallowed: the charge already happened on the provider
		// side, so the caller must see this and the charge id must be
		// reconcilable from the log.
		return PaymentResult{}, fmt.Errorf("credit for charge %s (user %d): %w", chargeID, userID, err)
	}

	record := &Transaction{
		Provider:         ProviderStars,
		ExternalChargeID: chargeID,
		UserID:           userID,
		Direction:        DirectionCredit,
		Payload:          payload,
		TokenAmount:      pkg.Tokens,
		Status:           StatusSucceeded,
	}
	if err := s.txRepo.Record(ctx, record); err != nil {
		return PaymentResult{}, fmt.Errorf("record transaction for charge %s (user %d): %w", chargeID, userID, err)
	}

	logger.Infof("Credited %d tokens to user %d (charge %s, provider charge %s)",
		pkg.Tokens, userID, chargeID, providerChargeID)
	metrics.RecordPayment(ProviderStars, "succeeded")
	metrics.RecordTokensCredited(ProviderStars, pkg.Tokens)

	return PaymentResult{TokensCredited: pkg.Tokens, NewBalance: newBalance}, nil
}

// Refund debits the originally credited amount exactly once. The atomic
// refunded-flag flip is the arbiter, so redelivered refund callbacks and
// concurrent duplicates both land on AlreadyRefunded.
func (s *Service) Refund(ctx context.Context, userID int64, chargeID string) (RefundResult, error) {
	record, err := s.txRepo.GetByChargeID(ctx, ProviderStars, chargeID)
	if errors.Is(err, ErrTransactionNotFound) {
		logger.Errorf("Refund for unknown charge %s (user %d)", chargeID, userID)
		return RefundResult{}, ErrUnknownCharge
	}
	if err != nil {
		return RefundResult{}, fmt.Errorf("lookup charge %s: %w", chargeID, err)
	}

	flipped, err := s.txRepo.MarkRefunded(ctx, ProviderStars, chargeID)
	if err != nil {
		return RefundResult{}, fmt.Errorf("mark charge %s refunded: %w", chargeID, err)
	}
	if !flipped {
		logger.Infof("Duplicate refund callback for charge %s (user %d)", chargeID, userID)
		return RefundResult{AlreadyRefunded: true}, nil
	}

	newBalance, err := s.ledger.RefundDebit(ctx, userID, record.TokenAmount)
	if err != nil {
		return RefundResult{}, fmt.Errorf("refund debit for charge %s (user %d): %w", chargeID, userID, err)
	}

	logger.Infof("Refunded charge %s: debited %d tokens from user %d, balance now %d",
		chargeID, record.TokenAmount, userID, newBalance)
	metrics.RecordRefund()

	return RefundResult{TokensDebited: record.TokenAmount, NewBalance: newBalance}, nil
}
