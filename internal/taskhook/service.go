package taskhook

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/GVMBT/seo-master-sub005/internal/ledger"
	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
	"github.com/GVMBT/seo-master-sub005/internal/notify"
)

const TypeLowBalanceBroadcast = "low_balance_broadcast"

// NotificationRequest is the typed payload of a signed task delivery.
// Type is a closed enumeration; anything else fails validation and is
// acknowledged as invalid_payload so the dispatcher stops retrying.
type NotificationRequest struct {
	Action    string `json:"action" validate:"required,eq=notify"`
	Type      string `json:"type" validate:"required,oneof=low_balance_broadcast"`
	Threshold int64  `json:"threshold" validate:"omitempty,gt=0"`
}

// Result reports what a broadcast did.
type Result struct {
	Type   string
	Sent   int
	Failed int
}

type Service struct {
	ledger           ledger.Repository
	dispatcher       notify.Dispatcher
	validate         *validator.Validate
	defaultThreshold int64
}

func NewService(ledgerRepo ledger.Repository, dispatcher notify.Dispatcher, defaultThreshold int64) *Service {
	return &Service{
		ledger:           ledgerRepo,
		dispatcher:       dispatcher,
		validate:         validator.New(),
		defaultThreshold: defaultThreshold,
	}
}

// Validate checks the request against the closed type set.
func (s *Service) Validate(req *NotificationRequest) error {
	return s.validate.Struct(req)
}

// Process executes a validated, non-duplicate request. Per-recipient
// delivery failures are counted, never propagated: one broken chat must
// not abort the rest of the broadcast.
func (s *Service) Process(ctx context.Context, req *NotificationRequest) (Result, error) {
	switch req.Type {
	case TypeLowBalanceBroadcast:
		return s.lowBalanceBroadcast(ctx, req)
	default:
		// Unreachable after Validate; kept so a new enum value cannot
		// silently no-op.
		return Result{}, fmt.Errorf("unhandled notification type %q", req.Type)
	}
}

func (s *Service) lowBalanceBroadcast(ctx context.Context, req *NotificationRequest) (Result, error) {
	threshold := req.Threshold
	if threshold == 0 {
		threshold = s.defaultThreshold
	}

	users, err := s.ledger.ListUsersBelow(ctx, threshold)
	if err != nil {
		return Result{}, fmt.Errorf("list low-balance users: %w", err)
	}

	result := Result{Type: req.Type}
	for _, u := range users {
		text := fmt.Sprintf(
			"Your token balance is running low: %d tokens left. Top up from the balance menu to keep your articles publishing.",
			u.Balance)
		if err := s.dispatcher.Send(ctx, u.UserID, "low_balance", text); err != nil {
			logger.Errorf("Low-balance notification for user %d failed: %v", u.UserID, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	logger.Infof("Low-balance broadcast done: %d sent, %d failed (threshold %d)",
		result.Sent, result.Failed, threshold)
	metrics.RecordWebhook("taskq", "broadcast")
	return result, nil
}
