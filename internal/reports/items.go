package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// ItemRepository reads items and item_movements.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository constructs the repository.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// GetItem loads one item of the company.
func (r *ItemRepository) GetItem(ctx context.Context, companyID, id int64) (Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, unit, opening_qty, opening_rate FROM items WHERE company_id=$1 AND id=$2`,
		companyID, id).Scan(&it.ID, &it.CompanyID, &it.Name, &it.Unit, &it.OpeningQty, &it.OpeningRate)
	if err != nil {
		return Item{}, db.Classify(fmt.Errorf("reports: item %d: %w", id, err))
	}
	return it, nil
}

// ListMovements returns active movements ordered by date then id.
func (r *ItemRepository) ListMovements(ctx context.Context, q MovementQuery) ([]Movement, error) {
	clauses := []string{"company_id = $1", "item_id = $2", "is_active"}
	args := []any{q.CompanyID, q.ItemID}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q.Before != nil {
		add("date < $%d", *q.Before)
	}
	if q.From != nil {
		add("date >= $%d", *q.From)
	}
	if q.To != nil {
		add("date <= $%d", *q.To)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, date, local_date, voucher_type, bill_number, qty_in, qty_out, rate
FROM item_movements WHERE `+strings.Join(clauses, " AND ")+` ORDER BY date ASC, id ASC`, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("reports: movements: %w", err))
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Date, &m.LocalDate, &m.VoucherType, &m.BillNumber, &m.QtyIn, &m.QtyOut, &m.Rate); err != nil {
			return nil, db.Classify(fmt.Errorf("reports: scan movement: %w", err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

// ItemLedger builds an item's stock card over [from, to]. Opening stock is the item's opening
// quantity and value plus every movement before the window.
func (s *Service) ItemLedger(ctx context.Context, tenant shared.Tenant, itemID int64, from, to *time.Time) (ItemLedger, error) {
	if err := tenant.Validate(); err != nil {
		return ItemLedger{}, err
	}
	if s.items == nil {
		return ItemLedger{}, shared.Configurationf("item ledger not configured")
	}
	start, end, err := window(from, to)
	if err != nil {
		return ItemLedger{}, err
	}
	item, err := s.items.GetItem(ctx, tenant.CompanyID, itemID)
	if err != nil {
		return ItemLedger{}, err
	}
	before, err := s.items.ListMovements(ctx, MovementQuery{CompanyID: tenant.CompanyID, ItemID: item.ID, Before: &start})
	if err != nil {
		return ItemLedger{}, err
	}
	inWindow, err := s.items.ListMovements(ctx, MovementQuery{CompanyID: tenant.CompanyID, ItemID: item.ID, From: &start, To: &end})
	if err != nil {
		return ItemLedger{}, err
	}

	qty := item.OpeningQty
	value := item.OpeningQty.Mul(item.OpeningRate)
	for _, m := range before {
		qty = qty.Add(m.QtyIn).Sub(m.QtyOut)
		value = value.Add(m.value())
	}
	card := ItemLedger{
		Item:         item,
		From:         start,
		To:           end,
		OpeningQty:   qty,
		OpeningValue: value,
		Lines:        make([]ItemLedgerLine, 0, len(inWindow)),
		TotalIn:      decimal.Zero,
		TotalOut:     decimal.Zero,
	}
	for _, m := range inWindow {
		qty = qty.Add(m.QtyIn).Sub(m.QtyOut)
		value = value.Add(m.value())
		card.TotalIn = card.TotalIn.Add(m.QtyIn)
		card.TotalOut = card.TotalOut.Add(m.QtyOut)
		card.Lines = append(card.Lines, ItemLedgerLine{Movement: m, RunningQty: qty, RunningValue: value})
	}
	card.ClosingQty = qty
	card.ClosingValue = value
	return card, nil
}
