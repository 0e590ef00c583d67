package gateway

import (
	"context"
	"fmt"

	"github.com/GVMBT/seo-master-sub005/internal/idempotency"
	"github.com/GVMBT/seo-master-sub005/internal/ledger"
	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
	"github.com/GVMBT/seo-master-sub005/internal/payment"
)

// Notification is a user-facing message produced by event processing.
// The handler delivers it best-effort after the financial state is
// already durable.
type Notification struct {
	UserID int64
	Kind   string
	Text   string
}

// Service maps parsed gateway events to ledger actions.
type Service struct {
	ledger ledger.Repository
	txRepo payment.TransactionRepository
	idem   idempotency.Store
}

func NewService(ledgerRepo ledger.Repository, txRepo payment.TransactionRepository, idem idempotency.Store) *Service {
	return &Service{
		ledger: ledgerRepo,
		txRepo: txRepo,
		idem:   idem,
	}
}

// Process applies one event. A nil notification with a nil error means
// the event was acknowledged without user-visible effect (unknown kinds,
// duplicates, events missing required fields).
func (s *Service) Process(ctx context.Context, ev Event) (*Notification, error) {
	switch ev.Kind {
	case EventPaymentSucceeded:
		return s.processSucceeded(ctx, ev)
	case EventPaymentCanceled:
		return s.processCanceled(ev)
	case EventPaymentWaitingForCapture, EventRefundSucceeded:
		// Terminal handling happens on succeeded/canceled; these are
		// informational for this flow.
		logger.Infof("Gateway event %s for charge %s acknowledged without action", ev.Name, ev.ChargeID)
		metrics.RecordWebhook("gateway", "acknowledged")
		return nil, nil
	default:
		if ev.Name != "" {
			logger.Infof("Unrecognized gateway event %q ignored", ev.Name)
		}
		metrics.RecordWebhook("gateway", "ignored")
		return nil, nil
	}
}

func (s *Service) processSucceeded(ctx context.Context, ev Event) (*Notification, error) {
	if !ev.HasUserID {
		// A recognized event with unusable contents cannot be fixed by
		// redelivery; acknowledge it and keep the charge id in the log
		// for manual reconciliation.
		logger.Errorf("Gateway payment.succeeded %s has no metadata.user_id, acknowledged without credit", ev.ChargeID)
		metrics.RecordWebhook("gateway", "invalid_metadata")
		return nil, nil
	}

	pkg, ok := payment.ResolvePackage(ev.Package)
	if !ok {
		logger.Errorf("Gateway payment.succeeded %s references unknown package %q, acknowledged without credit", ev.ChargeID, ev.Package)
		metrics.RecordWebhook("gateway", "invalid_metadata")
		return nil, nil
	}

	isNew, err := s.idem.RecordIfNew(ctx, idempotency.NamespaceGateway, ev.ChargeID)
	if err != nil {
		return nil, fmt.Errorf("idempotency check for gateway charge %s: %w", ev.ChargeID, err)
	}
	if !isNew {
		logger.Infof("Duplicate gateway delivery for charge %s", ev.ChargeID)
		metrics.RecordPayment(payment.ProviderGateway, "duplicate")
		return nil, nil
	}

	newBalance, err := s.ledger.Credit(ctx, ev.UserID, pkg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("credit for gateway charge %s (user %d): %w", ev.ChargeID, ev.UserID, err)
	}

	record := &payment.Transaction{
		Provider:         payment.ProviderGateway,
		ExternalChargeID: ev.ChargeID,
		UserID:           ev.UserID,
		Direction:        payment.DirectionCredit,
		Payload:          ev.Package,
		TokenAmount:      pkg.Tokens,
		Status:           payment.StatusSucceeded,
	}
	if err := s.txRepo.Record(ctx, record); err != nil {
		return nil, fmt.Errorf("record gateway transaction %s (user %d): %w", ev.ChargeID, ev.UserID, err)
	}

	logger.Infof("Gateway charge %s credited %d tokens to user %d", ev.ChargeID, pkg.Tokens, ev.UserID)
	metrics.RecordPayment(payment.ProviderGateway, "succeeded")
	metrics.RecordTokensCredited(payment.ProviderGateway, pkg.Tokens)

	return &Notification{
		UserID: ev.UserID,
		Kind:   "payment_success",
		Text:   fmt.Sprintf("Payment received: %d tokens credited. Your balance is now %d tokens.", pkg.Tokens, newBalance),
	}, nil
}

func (s *Service) processCanceled(ev Event) (*Notification, error) {
	if !ev.HasUserID {
		logger.Warnf("Gateway payment.canceled %s has no metadata.user_id, acknowledged", ev.ChargeID)
		metrics.RecordWebhook("gateway", "invalid_metadata")
		return nil, nil
	}

	logger.Infof("Gateway charge %s canceled for user %d", ev.ChargeID, ev.UserID)
	metrics.RecordPayment(payment.ProviderGateway, "canceled")

	return &Notification{
		UserID: ev.UserID,
		Kind:   "payment_failed",
		Text:   "Your payment was not completed. No tokens were charged. You can try again from the balance menu.",
	}, nil
}
