package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Repository exposes account reads and a transactional write scope.
type Repository interface {
	FindAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error)
	FindAccountsByGroups(ctx context.Context, companyID, fiscalYearID int64, groups []string) ([]ledger.Account, error)
	FindGroups(ctx context.Context, companyID int64, names []string) (map[string]int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	GroupID(ctx context.Context, companyID int64, name string) (int64, error)
	InsertAccount(ctx context.Context, companyID, fiscalYearID, groupID int64, in CreateInput) (ledger.Account, error)
	LockAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error)
	CountActiveEntries(ctx context.Context, accountID, fiscalYearID int64) (int, error)
	UpsertOpening(ctx context.Context, accountID, fiscalYearID int64, ob ledger.OpeningBalance) error
	UpdateInitialOpening(ctx context.Context, accountID int64, ob ledger.OpeningBalance) error
}

// SelectSQL returns the account projection with the fiscal year bound to placeholder fyArg.
// The fiscal year opening falls back to the initial opening for the creation year, else zero.
func SelectSQL(fyArg int) string {
	return fmt.Sprintf(`SELECT a.id, a.company_id, a.name, g.name, a.initial_opening_amount, a.initial_opening_sign,
a.initial_fiscal_year_id,
COALESCE(o.amount, CASE WHEN a.initial_fiscal_year_id = $%[1]d THEN a.initial_opening_amount ELSE 0 END),
COALESCE(o.sign, CASE WHEN a.initial_fiscal_year_id = $%[1]d THEN a.initial_opening_sign ELSE 'Dr' END),
a.created_at, a.updated_at
FROM accounts a
JOIN account_groups g ON g.id = a.group_id
LEFT JOIN account_openings o ON o.account_id = a.id AND o.fiscal_year_id = $%[1]d`, fyArg)
}

// Scan reads one row selected with SelectSQL.
func Scan(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Name, &a.Group, &a.InitialOpening.Amount, &a.InitialOpening.Sign,
		&a.InitialFiscalYearID, &a.Opening.Amount, &a.Opening.Sign, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

type repository struct {
	pool db.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error) {
	row := r.pool.QueryRow(ctx, SelectSQL(1)+` WHERE a.company_id = $2 AND a.id = $3`, fiscalYearID, companyID, id)
	acc, err := Scan(row)
	if err != nil {
		return ledger.Account{}, db.Classify(fmt.Errorf("accounts: find %d: %w", id, err))
	}
	return acc, nil
}

func (r *repository) FindAccountsByGroups(ctx context.Context, companyID, fiscalYearID int64, groups []string) ([]ledger.Account, error) {
	sql := SelectSQL(1) + ` WHERE a.company_id = $2`
	args := []any{fiscalYearID, companyID}
	if len(groups) > 0 {
		sql += ` AND g.name = ANY($3)`
		args = append(args, groups)
	}
	rows, err := r.pool.Query(ctx, sql+` ORDER BY a.name ASC, a.id ASC`, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("accounts: list: %w", err))
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		acc, err := Scan(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("accounts: scan: %w", err))
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func (r *repository) FindGroups(ctx context.Context, companyID int64, names []string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM account_groups WHERE company_id = $1 AND name = ANY($2)`, companyID, names)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("accounts: groups: %w", err))
	}
	defer rows.Close()
	out := make(map[string]int64, len(names))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, db.Classify(err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithLockingTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GroupID(ctx context.Context, companyID int64, name string) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM account_groups WHERE company_id = $1 AND name = $2`, companyID, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NotFoundf("account group %q", name)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertAccount(ctx context.Context, companyID, fiscalYearID, groupID int64, in CreateInput) (ledger.Account, error) {
	acc := ledger.Account{
		CompanyID:           companyID,
		Name:                in.Name,
		Group:               in.Group,
		InitialOpening:      in.Opening,
		InitialFiscalYearID: fiscalYearID,
		Opening:             in.Opening,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO accounts (company_id, group_id, name, initial_opening_amount, initial_opening_sign, initial_fiscal_year_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		companyID, groupID, in.Name, in.Opening.Amount, in.Opening.Sign, fiscalYearID).
		Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (r *txRepository) LockAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error) {
	if _, err := r.tx.Exec(ctx, `SELECT id FROM accounts WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, id); err != nil {
		return ledger.Account{}, err
	}
	row := r.tx.QueryRow(ctx, SelectSQL(1)+` WHERE a.company_id = $2 AND a.id = $3`, fiscalYearID, companyID, id)
	acc, err := Scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, shared.NotFoundf("account %d", id)
		}
		return ledger.Account{}, err
	}
	return acc, nil
}

func (r *txRepository) CountActiveEntries(ctx context.Context, accountID, fiscalYearID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1 AND fiscal_year_id = $2 AND is_active`,
		accountID, fiscalYearID).Scan(&n)
	return n, err
}

func (r *txRepository) UpsertOpening(ctx context.Context, accountID, fiscalYearID int64, ob ledger.OpeningBalance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO account_openings (account_id, fiscal_year_id, amount, sign)
VALUES ($1,$2,$3,$4)
ON CONFLICT (account_id, fiscal_year_id) DO UPDATE SET amount = EXCLUDED.amount, sign = EXCLUDED.sign, updated_at = NOW()`,
		accountID, fiscalYearID, ob.Amount, ob.Sign)
	return err
}

func (r *txRepository) UpdateInitialOpening(ctx context.Context, accountID int64, ob ledger.OpeningBalance) error {
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET initial_opening_amount = $2, initial_opening_sign = $3, updated_at = NOW() WHERE id = $1`,
		accountID, ob.Amount, ob.Sign)
	return err
}
