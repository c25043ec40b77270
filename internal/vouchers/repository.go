package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/accounts"
	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Repository encapsulates voucher reads and the transactional write scope.
type Repository interface {
	Get(ctx context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, []ledger.Entry, error)
	List(ctx context.Context, companyID, fiscalYearID int64, filter ListFilter) ([]Voucher, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	// LockAccounts row-locks the accounts in ascending id order and loads their openings for
	// the fiscal year.
	LockAccounts(ctx context.Context, companyID, fiscalYearID int64, ids []int64) (map[int64]ledger.Account, error)
	NextBillNumber(ctx context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, prefix string) (BillNumber, error)
	// LastBalance returns the balance snapshot of the latest active entry, false when none exist.
	LastBalance(ctx context.Context, companyID, fiscalYearID, accountID int64) (decimal.Decimal, bool, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	InsertEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	GetVoucherForUpdate(ctx context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, error)
	FindByBillForUpdate(ctx context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, billNumber int64) (Voucher, error)
	DeleteEntries(ctx context.Context, voucherID int64) (int64, error)
	UpdateVoucher(ctx context.Context, v Voucher) (Voucher, error)
	// SetActive toggles the voucher and every entry carrying its bill number and type.
	SetActive(ctx context.Context, v Voucher, active bool) (Voucher, error)
	ListEntries(ctx context.Context, voucherID int64) ([]ledger.Entry, error)
	// FindIdempotent returns the voucher created under key, false when the key is unused.
	FindIdempotent(ctx context.Context, companyID int64, vt ledger.VoucherType, key string) (int64, bool, error)
	SaveIdempotent(ctx context.Context, companyID int64, vt ledger.VoucherType, key string, voucherID int64) error
}

const voucherColumns = `id, company_id, fiscal_year_id, voucher_type, bill_prefix, bill_number, reference, date, local_date,
source_account_id, target_account_id, amount, payment_mode, instrument_kind, instrument_number, instrument_date,
instrument_bank, description, status, is_active, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.CompanyID, &v.FiscalYearID, &v.Type, &v.Bill.Prefix, &v.Bill.Number, &v.Reference, &v.Date,
		&v.LocalDate, &v.SourceAccountID, &v.TargetAccountID, &v.Amount, &v.PaymentMode, &v.Instrument.Kind,
		&v.Instrument.Number, &v.Instrument.Date, &v.Instrument.BankName, &v.Description, &v.Status, &v.IsActive,
		&v.CreatedAt, &v.UpdatedAt)
	return v, err
}

type repository struct {
	pool db.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, []ledger.Entry, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE company_id=$1 AND voucher_type=$2 AND id=$3`, companyID, vt, id))
	if err != nil {
		return Voucher{}, nil, db.Classify(fmt.Errorf("vouchers: get %d: %w", id, err))
	}
	entries, err := listEntries(ctx, r.pool, id)
	if err != nil {
		return Voucher{}, nil, db.Classify(fmt.Errorf("vouchers: entries of %d: %w", id, err))
	}
	return v, entries, nil
}

func (r *repository) List(ctx context.Context, companyID, fiscalYearID int64, filter ListFilter) ([]Voucher, error) {
	clauses := []string{"company_id=$1", "fiscal_year_id=$2", "voucher_type=$3"}
	args := []any{companyID, fiscalYearID, filter.Type}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	sql := `SELECT ` + voucherColumns + ` FROM vouchers WHERE ` + strings.Join(clauses, " AND ") +
		fmt.Sprintf(` ORDER BY bill_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("vouchers: list: %w", err))
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("vouchers: scan: %w", err))
		}
		out = append(out, v)
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

// LockAccounts takes the row locks before loading, so the load sees openings committed by the
// previous lock holder.
func (r *txRepository) LockAccounts(ctx context.Context, companyID, fiscalYearID int64, ids []int64) (map[int64]ledger.Account, error) {
	if _, err := r.tx.Exec(ctx, `SELECT id FROM accounts WHERE company_id=$1 AND id = ANY($2) ORDER BY id ASC FOR UPDATE`,
		companyID, ids); err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, accounts.SelectSQL(1)+` WHERE a.company_id=$2 AND a.id = ANY($3) ORDER BY a.id ASC`,
		fiscalYearID, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]ledger.Account, len(ids))
	for rows.Next() {
		acc, err := accounts.Scan(rows)
		if err != nil {
			return nil, err
		}
		out[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, shared.NotFoundf("account %d", id)
		}
	}
	return out, nil
}

func (r *txRepository) NextBillNumber(ctx context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, prefix string) (BillNumber, error) {
	var bill BillNumber
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_sequences (company_id, fiscal_year_id, voucher_type, prefix, last_number)
VALUES ($1,$2,$3,$4,1)
ON CONFLICT (company_id, fiscal_year_id, voucher_type)
DO UPDATE SET last_number = voucher_sequences.last_number + 1, updated_at = NOW()
RETURNING prefix, last_number`, companyID, fiscalYearID, vt, prefix).Scan(&bill.Prefix, &bill.Number)
	return bill, err
}

func (r *txRepository) LastBalance(ctx context.Context, companyID, fiscalYearID, accountID int64) (decimal.Decimal, bool, error) {
	var balance decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT balance FROM ledger_entries
WHERE company_id=$1 AND fiscal_year_id=$2 AND account_id=$3 AND is_active
ORDER BY date DESC, id DESC LIMIT 1`, companyID, fiscalYearID, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return balance, true, nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (company_id, fiscal_year_id, voucher_type, bill_prefix, bill_number, reference,
date, local_date, source_account_id, target_account_id, amount, payment_mode, instrument_kind, instrument_number,
instrument_date, instrument_bank, description, status, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING id, created_at, updated_at`,
		v.CompanyID, v.FiscalYearID, v.Type, v.Bill.Prefix, v.Bill.Number, v.Reference, v.Date, v.LocalDate,
		v.SourceAccountID, v.TargetAccountID, v.Amount, v.PaymentMode, v.Instrument.Kind, v.Instrument.Number,
		v.Instrument.Date, v.Instrument.BankName, v.Description, v.Status, v.IsActive).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (company_id, fiscal_year_id, account_id, debit, credit, date, local_date,
voucher_type, voucher_id, bill_number, voucher_ref, balance, dr_cr_note_account_type, payment_mode, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id, created_at`,
		e.CompanyID, e.FiscalYearID, e.AccountID, e.Debit, e.Credit, e.Date, e.LocalDate, e.VoucherType, e.VoucherID,
		e.BillNumber, e.VoucherRef, e.Balance, e.Side, e.PaymentMode, e.IsActive).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE company_id=$1 AND voucher_type=$2 AND id=$3 FOR UPDATE`, companyID, vt, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, shared.NotFoundf("%s voucher %d", vt, id)
	}
	return v, err
}

func (r *txRepository) FindByBillForUpdate(ctx context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, billNumber int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE company_id=$1 AND fiscal_year_id=$2 AND voucher_type=$3 AND bill_number=$4 FOR UPDATE`,
		companyID, fiscalYearID, vt, billNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, shared.NotFoundf("%s bill %d", vt, billNumber)
	}
	return v, err
}

func (r *txRepository) DeleteEntries(ctx context.Context, voucherID int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM ledger_entries WHERE voucher_id=$1`, voucherID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) UpdateVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.tx.QueryRow(ctx, `UPDATE vouchers SET date=$2, local_date=$3, source_account_id=$4, target_account_id=$5, amount=$6,
payment_mode=$7, instrument_kind=$8, instrument_number=$9, instrument_date=$10, instrument_bank=$11, description=$12,
updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		v.ID, v.Date, v.LocalDate, v.SourceAccountID, v.TargetAccountID, v.Amount, v.PaymentMode, v.Instrument.Kind,
		v.Instrument.Number, v.Instrument.Date, v.Instrument.BankName, v.Description).Scan(&v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, shared.NotFoundf("voucher %d", v.ID)
	}
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) SetActive(ctx context.Context, v Voucher, active bool) (Voucher, error) {
	status := StatusCanceled
	if active {
		status = StatusActive
	}
	err := r.tx.QueryRow(ctx, `UPDATE vouchers SET status=$2, is_active=$3, updated_at=NOW() WHERE id=$1 RETURNING updated_at`,
		v.ID, status, active).Scan(&v.UpdatedAt)
	if err != nil {
		return Voucher{}, err
	}
	if _, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET is_active=$5
WHERE company_id=$1 AND fiscal_year_id=$2 AND voucher_type=$3 AND bill_number=$4`,
		v.CompanyID, v.FiscalYearID, v.Type, v.Bill.Number, active); err != nil {
		return Voucher{}, err
	}
	v.Status = status
	v.IsActive = active
	return v, nil
}

func (r *txRepository) ListEntries(ctx context.Context, voucherID int64) ([]ledger.Entry, error) {
	return listEntries(ctx, r.tx, voucherID)
}

func (r *txRepository) FindIdempotent(ctx context.Context, companyID int64, vt ledger.VoucherType, key string) (int64, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT voucher_id FROM idempotency_keys WHERE company_id=$1 AND module=$2 AND key=$3`,
		companyID, idempotencyModule(vt), key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// SaveIdempotent fails with a unique violation when a concurrent create claimed key first.
func (r *txRepository) SaveIdempotent(ctx context.Context, companyID int64, vt ledger.VoucherType, key string, voucherID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO idempotency_keys (company_id, module, key, voucher_id) VALUES ($1, $2, $3, $4)`,
		companyID, idempotencyModule(vt), key, voucherID)
	return err
}

func idempotencyModule(vt ledger.VoucherType) string {
	return "vouchers." + string(vt)
}

func listEntries(ctx context.Context, conn ledger.Querier, voucherID int64) ([]ledger.Entry, error) {
	rows, err := conn.Query(ctx, `SELECT `+ledger.EntryColumns+` FROM ledger_entries WHERE voucher_id=$1 ORDER BY id ASC`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Entry
	for rows.Next() {
		e, err := ledger.ScanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
