package payment

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/GVMBT/seo-master-sub005/internal/idempotency"
	"github.com/GVMBT/seo-master-sub005/internal/ledger"
	"github.com/GVMBT/seo-master-sub005/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockLedgerRepo struct{ mock.Mock }
type MockTxRepo struct{ mock.Mock }
type MockIdemStore struct{ mock.Mock }

func (m *MockLedgerRepo) Charge(ctx context.Context, userID, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) RefundDebit(ctx context.Context, userID, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) ListUsersBelow(ctx context.Context, threshold int64) ([]ledger.LowBalanceUser, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.LowBalanceUser), args.Error(1)
}

func (m *MockTxRepo) Record(ctx context.Context, tx *Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTxRepo) GetByChargeID(ctx context.Context, provider, chargeID string) (*Transaction, error) {
	args := m.Called(ctx, provider, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockTxRepo) MarkRefunded(ctx context.Context, provider, chargeID string) (bool, error) {
	args := m.Called(ctx, provider, chargeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTxRepo) HasRecentPurchase(ctx context.Context, userID int64, payload string, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, payload, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockTxRepo) List(ctx context.Context, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockTxRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockIdemStore) RecordIfNew(ctx context.Context, namespace, externalID string) (bool, error) {
	args := m.Called(ctx, namespace, externalID)
	return args.Bool(0), args.Error(1)
}

func newTestService() (*Service, *MockLedgerRepo, *MockTxRepo, *MockIdemStore) {
	ledgerRepo := new(MockLedgerRepo)
	txRepo := new(MockTxRepo)
	idem := new(MockIdemStore)
	return NewService(ledgerRepo, txRepo, idem), ledgerRepo, txRepo, idem
}

func TestPreCheckout_Approves(t *testing.T) {
	svc, _, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("HasRecentPurchase", ctx, int64(42), "tokens_1000", duplicatePurchaseWindow).Return(false, nil)

	res := svc.PreCheckout(ctx, 42, "tokens_1000", 450)
	assert.True(t, res.OK)
	assert.Empty(t, res.ErrorMessage)
}

func TestPreCheckout_UnknownPackage(t *testing.T) {
	svc, _, _, _ := newTestService()

	res := svc.PreCheckout(context.Background(), 42, "tokens_999", 450)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestPreCheckout_AmountMismatch(t *testing.T) {
	svc, _, _, _ := newTestService()

	res := svc.PreCheckout(context.Background(), 42, "tokens_1000", 300)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestPreCheckout_RecentDuplicatePurchase(t *testing.T) {
	svc, _, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("HasRecentPurchase", ctx, int64(42), "tokens_1000", duplicatePurchaseWindow).Return(true, nil)

	res := svc.PreCheckout(ctx, 42, "tokens_1000", 450)
	assert.False(t, res.OK)
}

func TestPreCheckout_LookupErrorRejects(t *testing.T) {
	svc, _, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("HasRecentPurchase", ctx, int64(42), "tokens_1000", duplicatePurchaseWindow).
		Return(false, errors.New("db down"))

	res := svc.PreCheckout(ctx, 42, "tokens_1000", 450)
	assert.False(t, res.OK)
}

func TestSuccessfulPayment_CreditsOnce(t *testing.T) {
	svc, ledgerRepo, txRepo, idem := newTestService()
	ctx := context.Background()

	idem.On("RecordIfNew", ctx, idempotency.NamespaceStars, "charge_abc").Return(true, nil)
	ledgerRepo.On("Credit", ctx, int64(42), int64(1000)).Return(int64(2500), nil)
	txRepo.On("Record", ctx, mock.MatchedBy(func(tx *Transaction) bool {
		return tx.ExternalChargeID == "charge_abc" &&
			tx.Direction == DirectionCredit &&
			tx.TokenAmount == 1000
	})).Return(nil)

	res, err := svc.SuccessfulPayment(ctx, 42, "tokens_1000", "charge_abc", "prov_1", 450)
	assert.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(1000), res.TokensCredited)
	assert.Equal(t, int64(2500), res.NewBalance)
}

func TestSuccessfulPayment_SecondDeliveryIsDuplicate(t *testing.T) {
	svc, ledgerRepo, _, idem := newTestService()
	ctx := context.Background()

	idem.On("RecordIfNew", ctx, idempotency.NamespaceStars, "charge_abc").Return(false, nil)

	res, err := svc.SuccessfulPayment(ctx, 42, "tokens_1000", "charge_abc", "prov_1", 450)
	assert.NoError(t, err)
	assert.True(t, res.Duplicate)
	// The ledger must stay untouched on the duplicate path.
	ledgerRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestSuccessfulPayment_UnknownPayloadDoesNotMutate(t *testing.T) {
	svc, ledgerRepo, _, idem := newTestService()

	_, err := svc.SuccessfulPayment(context.Background(), 42, "tokens_777", "charge_x", "prov_1", 450)
	assert.ErrorIs(t, err, ErrUnknownPackage)
	idem.AssertNotCalled(t, "RecordIfNew", mock.Anything, mock.Anything, mock.Anything)
	ledgerRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestSuccessfulPayment_CreditErrorSurfaces(t *testing.T) {
	svc, ledgerRepo, _, idem := newTestService()
	ctx := context.Background()

	idem.On("RecordIfNew", ctx, idempotency.NamespaceStars, "charge_abc").Return(true, nil)
	ledgerRepo.On("Credit", ctx, int64(42), int64(1000)).Return(int64(0), errors.New("storage unavailable"))

	_, err := svc.SuccessfulPayment(ctx, 42, "tokens_1000", "charge_abc", "prov_1", 450)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "charge_abc")
}

func TestRefund_DebitsOriginalAmount(t *testing.T) {
	svc, ledgerRepo, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("GetByChargeID", ctx, ProviderStars, "charge_abc").Return(&Transaction{
		ExternalChargeID: "charge_abc",
		UserID:           42,
		TokenAmount:      1000,
	}, nil)
	txRepo.On("MarkRefunded", ctx, ProviderStars, "charge_abc").Return(true, nil)
	ledgerRepo.On("RefundDebit", ctx, int64(42), int64(1000)).Return(int64(1500), nil)

	res, err := svc.Refund(ctx, 42, "charge_abc")
	assert.NoError(t, err)
	assert.False(t, res.AlreadyRefunded)
	assert.Equal(t, int64(1000), res.TokensDebited)
	assert.Equal(t, int64(1500), res.NewBalance)
}

func TestRefund_SecondCallAlreadyRefunded(t *testing.T) {
	svc, ledgerRepo, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("GetByChargeID", ctx, ProviderStars, "charge_abc").Return(&Transaction{
		ExternalChargeID: "charge_abc",
		UserID:           42,
		TokenAmount:      1000,
		Refunded:         true,
	}, nil)
	txRepo.On("MarkRefunded", ctx, ProviderStars, "charge_abc").Return(false, nil)

	res, err := svc.Refund(ctx, 42, "charge_abc")
	assert.NoError(t, err)
	assert.True(t, res.AlreadyRefunded)
	ledgerRepo.AssertNotCalled(t, "RefundDebit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_UnknownCharge(t *testing.T) {
	svc, ledgerRepo, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("GetByChargeID", ctx, ProviderStars, "charge_zzz").Return(nil, ErrTransactionNotFound)

	_, err := svc.Refund(ctx, 42, "charge_zzz")
	assert.ErrorIs(t, err, ErrUnknownCharge)
	ledgerRepo.AssertNotCalled(t, "RefundDebit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_CanDriveBalanceNegative(t *testing.T) {
	svc, ledgerRepo, txRepo, _ := newTestService()
	ctx := context.Background()

	txRepo.On("GetByChargeID", ctx, ProviderStars, "charge_big").Return(&Transaction{
		ExternalChargeID: "charge_big",
		UserID:           42,
		TokenAmount:      2000,
	}, nil)
	txRepo.On("MarkRefunded", ctx, ProviderStars, "charge_big").Return(true, nil)
	ledgerRepo.On("RefundDebit", ctx, int64(42), int64(2000)).Return(int64(-500), nil)

	res, err := svc.Refund(ctx, 42, "charge_big")
	assert.NoError(t, err)
	assert.Equal(t, int64(-500), res.NewBalance)
}
