package persistence

import (
	"context"
	"database/sql"
	"errors"

	"MicroPaper/internal/market"
)

// marketTx implements engine.Tx over one *sql.Tx.
type marketTx struct {
	tx *sql.Tx
}

const noteColumns = `id, isin, issuer_wallet, amount, interest_rate_bps, currency,
	min_subscription_amount, offering_status, maturity_date, issued_at`

func scanNote(row *sql.Row) (*market.Note, error) {
	var n market.Note
	err := row.Scan(&n.ID, &n.ISIN, &n.IssuerWallet, &n.Amount, &n.InterestRateBps,
		&n.Currency, &n.MinSubscriptionAmount, &n.OfferingStatus, &n.MaturityDate, &n.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scan note", err)
	}
	return &n, nil
}

func (t *marketTx) GetNoteForUpdate(ctx context.Context, noteID int64) (*market.Note, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 FOR UPDATE`, noteID)
	return scanNote(row)
}

func (t *marketTx) UpdateNote(ctx context.Context, note *market.Note) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE notes
		SET offering_status = $2, maturity_date = $3
		WHERE id = $1`,
		note.ID, note.OfferingStatus, note.MaturityDate)
	if err != nil {
		return storageErr("update note", err)
	}
	return nil
}

const orderColumns = `id, note_id, investor_wallet, side, amount, price, status,
	created_at, filled_at, request_id`

func scanOrder(scan func(dest ...interface{}) error) (*market.Order, error) {
	var (
		o        market.Order
		price    sql.NullInt64
		filledAt sql.NullTime
	)
	if err := scan(&o.ID, &o.NoteID, &o.InvestorWallet, &o.Side, &o.Amount,
		&price, &o.Status, &o.CreatedAt, &filledAt, &o.RequestID); err != nil {
		return nil, err
	}
	if price.Valid {
		o.Price = &price.Int64
	}
	if filledAt.Valid {
		t := filledAt.Time
		o.FilledAt = &t
	}
	return &o, nil
}

func (t *marketTx) ListPendingOrders(ctx context.Context, noteID int64) ([]*market.Order, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE note_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC`, noteID)
	if err != nil {
		return nil, storageErr("list pending orders", err)
	}
	defer rows.Close()

	var orders []*market.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, storageErr("scan order", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (t *marketTx) CreateOrder(ctx context.Context, order *market.Order) error {
	var price sql.NullInt64
	if order.Price != nil {
		price = sql.NullInt64{Int64: *order.Price, Valid: true}
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (note_id, investor_wallet, side, amount, price, status, created_at, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		order.NoteID, order.InvestorWallet, order.Side, order.Amount,
		price, order.Status, order.CreatedAt, order.RequestID,
	).Scan(&order.ID)
	if err != nil {
		return storageErr("create order", err)
	}
	return nil
}

func (t *marketTx) UpdateOrder(ctx context.Context, order *market.Order) error {
	var filledAt sql.NullTime
	if order.FilledAt != nil {
		filledAt = sql.NullTime{Time: *order.FilledAt, Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, filled_at = $3 WHERE id = $1`,
		order.ID, order.Status, filledAt)
	if err != nil {
		return storageErr("update order", err)
	}
	return nil
}

func (t *marketTx) TradedQuantity(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM trades
		WHERE buy_order_id = $1 OR sell_order_id = $1`, orderID).Scan(&total)
	if err != nil {
		return 0, storageErr("traded quantity", err)
	}
	return total, nil
}

func (t *marketTx) CreateTrade(ctx context.Context, trade *market.Trade) error {
	var buyID, sellID sql.NullInt64
	if trade.BuyOrderID != nil {
		buyID = sql.NullInt64{Int64: *trade.BuyOrderID, Valid: true}
	}
	if trade.SellOrderID != nil {
		sellID = sql.NullInt64{Int64: *trade.SellOrderID, Valid: true}
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO trades (note_id, buyer_wallet, seller_wallet, quantity, price,
		                    buy_order_id, sell_order_id, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		trade.NoteID, trade.BuyerWallet, trade.SellerWallet, trade.Quantity,
		trade.Price, buyID, sellID, trade.ExecutedAt,
	).Scan(&trade.ID)
	if err != nil {
		return storageErr("create trade", err)
	}
	return nil
}

func (t *marketTx) ListLots(ctx context.Context, walletAddress string, noteID int64) ([]*market.Holding, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, wallet_address, note_id, quantity_held, acquisition_price, acquired_at
		FROM holdings
		WHERE wallet_address = $1 AND note_id = $2
		ORDER BY acquired_at ASC, id ASC`, walletAddress, noteID)
	if err != nil {
		return nil, storageErr("list lots", err)
	}
	defer rows.Close()

	var lots []*market.Holding
	for rows.Next() {
		var h market.Holding
		if err := rows.Scan(&h.ID, &h.WalletAddress, &h.NoteID, &h.QuantityHeld,
			&h.AcquisitionPrice, &h.AcquiredAt); err != nil {
			return nil, storageErr("scan lot", err)
		}
		lots = append(lots, &h)
	}
	return lots, rows.Err()
}

func (t *marketTx) CreateHolding(ctx context.Context, lot *market.Holding) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO holdings (wallet_address, note_id, quantity_held, acquisition_price, acquired_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		lot.WalletAddress, lot.NoteID, lot.QuantityHeld, lot.AcquisitionPrice, lot.AcquiredAt,
	).Scan(&lot.ID)
	if err != nil {
		return storageErr("create holding", err)
	}
	return nil
}

func (t *marketTx) UpdateHolding(ctx context.Context, lot *market.Holding) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE holdings SET quantity_held = $2 WHERE id = $1`,
		lot.ID, lot.QuantityHeld)
	if err != nil {
		return storageErr("update holding", err)
	}
	return nil
}

func (t *marketTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (t *marketTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storageErr("rollback", err)
	}
	return nil
}
