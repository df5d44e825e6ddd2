package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return New(gdb, nil), mock
}

// TestMarkClosing_AtMostOnce reproduces spec §8's concurrency scenario: the
// first claim on an OPEN position succeeds (one row affected), and a second
// claim against the now-CLOSING row affects zero rows and surfaces
// ErrAlreadyClaimed — the conditional UPDATE is the serialization point, not
// a read-then-write race.
func TestMarkClosing_AtMostOnce(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "momentum_positions" SET "status"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.MarkClosing(context.Background(), 42)
	assert.NoError(t, err)

	mock.ExpectExec(`UPDATE "momentum_positions" SET "status"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.MarkClosing(context.Background(), 42)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeClose_RejectsWhenNotClosing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "momentum_positions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	pos := domain.Position{ID: 7}
	err := repo.FinalizeClose(context.Background(), pos)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLockBalance_SucceedsThenRejectsOverdraw mirrors TestMarkClosing_AtMostOnce:
// the first lock affects the one row with sufficient available balance, and a
// second lock for more than what remains affects zero rows and surfaces
// ErrInsufficientBalance — the conditional UPDATE is what prevents two
// concurrent locks from both succeeding against the same row (spec §3).
func TestLockBalance_SucceedsThenRejectsOverdraw(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "currency_swap_balances" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.LockBalance(context.Background(), 1, "valr", "BTC", decimal.NewFromInt(1))
	assert.NoError(t, err)

	mock.ExpectExec(`UPDATE "currency_swap_balances" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.LockBalance(context.Background(), 1, "valr", "BTC", decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUnlockBalance_SucceedsThenRejectsUnderLocked is the symmetric case for
// UnlockBalance: the first unlock affects the row holding enough locked
// balance, and a second unlock for more than what's still locked affects zero
// rows and surfaces ErrInsufficientLocked.
func TestUnlockBalance_SucceedsThenRejectsUnderLocked(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "currency_swap_balances" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UnlockBalance(context.Background(), 1, "valr", "BTC", decimal.NewFromInt(1))
	assert.NoError(t, err)

	mock.ExpectExec(`UPDATE "currency_swap_balances" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UnlockBalance(context.Background(), 1, "valr", "BTC", decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrInsufficientLocked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	repo := &Repository{credKey: []byte("0123456789012345678901234567890123456789")[:32]}
	ciphertext, err := repo.encrypt("super-secret-api-key")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("super-secret-api-key"), ciphertext)

	plaintext, err := repo.decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-api-key", plaintext)
}

func TestEncryptDecrypt_NilKeyIsPlaintextPassthrough(t *testing.T) {
	repo := &Repository{credKey: nil}
	ciphertext, err := repo.encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), ciphertext)

	plaintext, err := repo.decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "plain", plaintext)
}
