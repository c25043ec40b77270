package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

func TestClassify(t *testing.T) {
	require.NoError(t, Classify(nil))

	require.ErrorIs(t, Classify(pgx.ErrNoRows), shared.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_vouchers_bill"}
	require.ErrorIs(t, Classify(fmt.Errorf("insert: %w", unique)), shared.ErrConcurrency)
	require.ErrorIs(t, Classify(&pgconn.PgError{Code: "40001"}), shared.ErrConcurrency)
	require.ErrorIs(t, Classify(&pgconn.PgError{Code: "40P01"}), shared.ErrConcurrency)

	require.ErrorIs(t, Classify(&pgconn.PgError{Code: "08006"}), shared.ErrPersistence)
	require.ErrorIs(t, Classify(errors.New("connection refused")), shared.ErrPersistence)

	validation := shared.Validationf("amount must be positive")
	require.Equal(t, validation, Classify(validation))
	require.Equal(t, context.Canceled, Classify(context.Canceled))
}

type fakeBeginner struct {
	tx   *fakeTx
	err  error
	opts *pgx.TxOptions
}

func (b fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.opts != nil {
		*b.opts = opts
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	err := WithTx(context.Background(), fakeBeginner{tx: tx}, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	err := WithTx(context.Background(), fakeBeginner{tx: tx}, func(pgx.Tx) error {
		return shared.Validationf("bad input")
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestWithTxBeginFailureIsPersistence(t *testing.T) {
	err := WithTx(context.Background(), fakeBeginner{err: errors.New("dial tcp")}, func(pgx.Tx) error { return nil })
	require.ErrorIs(t, err, shared.ErrPersistence)
}

func TestIsolationLevels(t *testing.T) {
	var opts pgx.TxOptions
	require.NoError(t, WithTx(context.Background(), fakeBeginner{tx: &fakeTx{}, opts: &opts}, func(pgx.Tx) error { return nil }))
	require.Equal(t, pgx.RepeatableRead, opts.IsoLevel)

	tx := &fakeTx{}
	require.NoError(t, WithLockingTx(context.Background(), fakeBeginner{tx: tx, opts: &opts}, func(pgx.Tx) error { return nil }))
	require.Equal(t, pgx.ReadCommitted, opts.IsoLevel)
	require.True(t, tx.committed)
}
