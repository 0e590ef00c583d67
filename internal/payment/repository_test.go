package payment

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupTxMock(t *testing.T) (TransactionRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestRecord(t *testing.T) {
	repo, mock, close := setupTxMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO transactions (provider, external_charge_id, user_id, direction, payload, token_amount, status) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`)).
		WithArgs(ProviderStars, "charge_abc", int64(42), DirectionCredit, "tokens_1000", int64(1000), StatusSucceeded).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	tx := &Transaction{
		Provider:         ProviderStars,
		ExternalChargeID: "charge_abc",
		UserID:           42,
		Direction:        DirectionCredit,
		Payload:          "tokens_1000",
		TokenAmount:      1000,
		Status:           StatusSucceeded,
	}
	err := repo.Record(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, int64(1), tx.ID)
}

func TestGetByChargeID_NotFound(t *testing.T) {
	repo, mock, close := setupTxMock(t)
	defer close()

	mock.ExpectQuery("SELECT .* FROM transactions").
		WithArgs(ProviderStars, "charge_zzz").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByChargeID(context.Background(), ProviderStars, "charge_zzz")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMarkRefunded_FirstFlip(t *testing.T) {
	repo, mock, close := setupTxMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE transactions SET refunded = TRUE WHERE provider = $1 AND external_charge_id = $2 AND refunded = FALSE`)).
		WithArgs(ProviderStars, "charge_abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.MarkRefunded(context.Background(), ProviderStars, "charge_abc")
	require.NoError(t, err)
	require.True(t, flipped)
}

func TestMarkRefunded_AlreadyFlipped(t *testing.T) {
	repo, mock, close := setupTxMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE transactions SET refunded = TRUE WHERE provider = $1 AND external_charge_id = $2 AND refunded = FALSE`)).
		WithArgs(ProviderStars, "charge_abc").
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err := repo.MarkRefunded(context.Background(), ProviderStars, "charge_abc")
	require.NoError(t, err)
	require.False(t, flipped)
}

func TestHasRecentPurchase(t *testing.T) {
	repo, mock, close := setupTxMock(t)
	defer close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42), "tokens_1000", float64(120)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasRecentPurchase(context.Background(), 42, "tokens_1000", 2*time.Minute)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestResolvePackage(t *testing.T) {
	pkg, ok := ResolvePackage("tokens_1000")
	require.True(t, ok)
	require.Equal(t, int64(1000), pkg.Tokens)
	require.Equal(t, int64(450), pkg.StarsPrice)

	_, ok = ResolvePackage("tokens_999")
	require.False(t, ok)
}
