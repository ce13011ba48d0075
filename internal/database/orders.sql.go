package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (
	user_id, batch_id, status, packing_dry_goods, packing_fresh_goods,
	selected_items, dry_goods_items, fresh_goods_items, other_items,
	pickup_date, confirmed_pickup, details
) VALUES ($1, $2, 'PENDING', 'PENDING', 'PENDING', $3, $4, $5, $6, $7, $8, $9)
RETURNING id, user_id, batch_id, status, packing_dry_goods, packing_fresh_goods,
	selected_items, dry_goods_items, fresh_goods_items, other_items,
	pickup_date, confirmed_pickup, details, created_at, updated_at
`

type CreateOrderParams struct {
	UserID          uuid.UUID
	BatchID         pgtype.Text
	SelectedItems   []string
	DryGoodsItems   []string
	FreshGoodsItems []string
	OtherItems      pgtype.Text
	PickupDate      pgtype.Text
	ConfirmedPickup bool
	Details         []byte
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.BatchID,
		arg.SelectedItems,
		arg.DryGoodsItems,
		arg.FreshGoodsItems,
		arg.OtherItems,
		arg.PickupDate,
		arg.ConfirmedPickup,
		arg.Details,
	)
	return scanOrder(row)
}

const countOrdersByUserAndBatch = `
SELECT count(*)
FROM orders
WHERE user_id = $1 AND batch_id IS NOT DISTINCT FROM $2
`

type CountOrdersByUserAndBatchParams struct {
	UserID  uuid.UUID
	BatchID pgtype.Text
}

// CountOrdersByUserAndBatch treats a NULL batch id as its own equivalence
// class: legacy (pre-batch) orders only ever match legacy checks.
func (q *Queries) CountOrdersByUserAndBatch(ctx context.Context, arg CountOrdersByUserAndBatchParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByUserAndBatch, arg.UserID, arg.BatchID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getOrder = `
SELECT id, user_id, batch_id, status, packing_dry_goods, packing_fresh_goods,
	selected_items, dry_goods_items, fresh_goods_items, other_items,
	pickup_date, confirmed_pickup, details, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const listOrders = `
SELECT o.id, o.user_id, o.batch_id, o.status, o.packing_dry_goods, o.packing_fresh_goods,
	o.selected_items, o.dry_goods_items, o.fresh_goods_items, o.other_items,
	o.pickup_date, o.confirmed_pickup, o.details, o.created_at, o.updated_at,
	u.display_name, u.email
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE ($1::text IS NULL OR o.batch_id = $1)
  AND ($2::text IS NULL OR o.status = $2)
ORDER BY o.created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	BatchID pgtype.Text
	Status  pgtype.Text
	Limit   int32
	Offset  int32
}

type ListOrdersRow struct {
	Order
	UserName  string
	UserEmail string
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.BatchID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrdersRow
	for rows.Next() {
		var r ListOrdersRow
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.BatchID,
			&r.Status,
			&r.PackingDryGoods,
			&r.PackingFreshGoods,
			&r.SelectedItems,
			&r.DryGoodsItems,
			&r.FreshGoodsItems,
			&r.OtherItems,
			&r.PickupDate,
			&r.ConfirmedPickup,
			&r.Details,
			&r.CreatedAt,
			&r.UpdatedAt,
			&r.UserName,
			&r.UserEmail,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2,
    updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, user_id, batch_id, status, packing_dry_goods, packing_fresh_goods,
	selected_items, dry_goods_items, fresh_goods_items, other_items,
	pickup_date, confirmed_pickup, details, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	Status   string
	Status_2 string
}

// UpdateOrderStatus only succeeds when the row still carries the expected
// current status (Status_2); a concurrent change surfaces as ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2)
	return scanOrder(row)
}

const updateOrderPacking = `
UPDATE orders
SET packing_dry_goods = CASE WHEN $2 = 'DRY_GOODS' THEN $3 ELSE packing_dry_goods END,
    packing_fresh_goods = CASE WHEN $2 = 'FRESH_GOODS' THEN $3 ELSE packing_fresh_goods END,
    updated_at = now()
WHERE id = $1
RETURNING id, user_id, batch_id, status, packing_dry_goods, packing_fresh_goods,
	selected_items, dry_goods_items, fresh_goods_items, other_items,
	pickup_date, confirmed_pickup, details, created_at, updated_at
`

type UpdateOrderPackingParams struct {
	ID     uuid.UUID
	Stage  string
	Status string
}

func (q *Queries) UpdateOrderPacking(ctx context.Context, arg UpdateOrderPackingParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPacking, arg.ID, arg.Stage, arg.Status)
	return scanOrder(row)
}

const countOrders = `
SELECT count(*)
FROM orders
WHERE ($1::text IS NULL OR batch_id = $1)
`

func (q *Queries) CountOrders(ctx context.Context, batchID pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders, batchID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countOrdersByStatus = `
SELECT status, count(*)
FROM orders
WHERE ($1::text IS NULL OR batch_id = $1)
GROUP BY status
`

type CountOrdersByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, batchID pgtype.Text) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountOrdersByStatusRow
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listOrderCreationTimes = `
SELECT created_at
FROM orders
WHERE created_at >= $1
ORDER BY created_at
`

func (q *Queries) ListOrderCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := q.db.Query(ctx, listOrderCreationTimes, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.BatchID,
		&o.Status,
		&o.PackingDryGoods,
		&o.PackingFreshGoods,
		&o.SelectedItems,
		&o.DryGoodsItems,
		&o.FreshGoodsItems,
		&o.OtherItems,
		&o.PickupDate,
		&o.ConfirmedPickup,
		&o.Details,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}
