package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crateside/shop_api/internal/models"
)

// OrderRepository handles data access for the order mirror.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// UpsertResult reports what an order upsert did. WasInserted distinguishes
// a first sighting from a redelivery or update of a known order.
type UpsertResult struct {
	OrderID     int64
	WasInserted bool
}

// UpsertOrder writes one order event atomically: the order row is inserted
// or updated, the stored line set is replaced with the payload's, skipped
// lines are recorded as gaps, and gaps the new line set no longer carries
// are closed out. The row lock taken by the order upsert serializes
// concurrent events for the same order, so readers never see a half-replaced
// line set and the last event to commit wins whole.
func (r *OrderRepository) UpsertOrder(order *models.Order, items []models.OrderItem, gaps []models.OrderItemGap) (*UpsertResult, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const orderQ = `
        INSERT INTO orders (external_order_number, customer_id, total_amount, status, ordered_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (external_order_number) DO UPDATE SET
            customer_id = EXCLUDED.customer_id,
            total_amount = EXCLUDED.total_amount,
            status = EXCLUDED.status,
            ordered_at = EXCLUDED.ordered_at,
            updated_at = NOW()
        RETURNING id, (xmax = 0) AS inserted`

	var res UpsertResult
	err = tx.QueryRow(orderQ,
		order.ExternalOrderNumber, order.CustomerID, order.TotalAmount, order.Status, order.OrderedAt,
	).Scan(&res.OrderID, &res.WasInserted)
	if err != nil {
		return nil, err
	}
	order.ID = res.OrderID

	if _, err := tx.Exec(`DELETE FROM order_items WHERE order_id = $1`, res.OrderID); err != nil {
		return nil, err
	}

	const itemQ = `
        INSERT INTO order_items (order_id, item_id, quantity, price_at_purchase)
        VALUES ($1, $2, $3, $4)`
	for _, it := range items {
		if _, err := tx.Exec(itemQ, res.OrderID, it.ItemID, it.Quantity, it.PriceAtPurchase); err != nil {
			return nil, err
		}
	}

	const gapQ = `
        INSERT INTO order_item_gaps (external_order_number, item_id, quantity, price_at_purchase)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (external_order_number, item_id) WHERE resolved_at IS NULL DO NOTHING`
	gapItemIDs := make([]string, 0, len(gaps))
	for _, g := range gaps {
		if _, err := tx.Exec(gapQ, order.ExternalOrderNumber, g.ItemID, g.Quantity, g.PriceAtPurchase); err != nil {
			return nil, err
		}
		gapItemIDs = append(gapItemIDs, g.ItemID)
	}

	// The payload's line set is authoritative, so any pending gap it no
	// longer re-reports is superseded and must not be backfilled later.
	const staleQ = `
        UPDATE order_item_gaps
        SET resolved_at = NOW()
        WHERE external_order_number = $1
          AND resolved_at IS NULL
          AND item_id <> ALL($2)`
	if _, err := tx.Exec(staleQ, order.ExternalOrderNumber, pq.Array(gapItemIDs)); err != nil {
		return nil, err
	}

	return &res, tx.Commit()
}

// GetByExternalNumber returns an order by its external order number.
func (r *OrderRepository) GetByExternalNumber(orderNumber string) (*models.Order, error) {
	const q = `SELECT * FROM orders WHERE external_order_number = $1 LIMIT 1`
	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var o models.Order
	if err := stmt.Get(&o, orderNumber); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListItems returns the stored line set of an order.
func (r *OrderRepository) ListItems(orderID int64) ([]models.OrderItem, error) {
	const q = `
        SELECT id, order_id, item_id, quantity, price_at_purchase
        FROM order_items
        WHERE order_id = $1
        ORDER BY id`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var items []models.OrderItem
	if err := stmt.Select(&items, orderID); err != nil {
		return nil, err
	}
	return items, nil
}

// ListRecentWithCounts returns orders placed at or after since, newest
// first, each with its stored line count.
func (r *OrderRepository) ListRecentWithCounts(since time.Time) ([]models.OrderWithItemCount, error) {
	const q = `
        SELECT o.id, o.external_order_number, o.customer_id, o.total_amount,
               o.status, o.ordered_at, o.created_at, o.updated_at,
               COUNT(i.id) AS item_count
        FROM orders o
        LEFT JOIN order_items i ON i.order_id = o.id
        WHERE o.ordered_at >= $1
        GROUP BY o.id
        ORDER BY o.ordered_at DESC`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var orders []models.OrderWithItemCount
	if err := stmt.Select(&orders, since); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListBackfillableGaps returns pending gaps whose catalog item has since
// been mirrored, oldest first. Gaps whose parent is still missing are left
// for a later pass.
func (r *OrderRepository) ListBackfillableGaps(limit int) ([]models.OrderItemGap, error) {
	const q = `
        SELECT g.id, g.external_order_number, g.item_id, g.quantity,
               g.price_at_purchase, g.created_at, g.resolved_at
        FROM order_item_gaps g
        JOIN catalog_items c ON c.id = g.item_id
        WHERE g.resolved_at IS NULL
        ORDER BY g.created_at
        LIMIT $1`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var gaps []models.OrderItemGap
	if err := stmt.Select(&gaps, limit); err != nil {
		return nil, err
	}
	return gaps, nil
}

// BackfillGap re-adds a skipped line to its order and closes the gap. The
// insert is guarded so a line already restored by a newer order event is
// not duplicated.
func (r *OrderRepository) BackfillGap(gap *models.OrderItemGap) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insertQ = `
        INSERT INTO order_items (order_id, item_id, quantity, price_at_purchase)
        SELECT o.id, $2, $3, $4
        FROM orders o
        WHERE o.external_order_number = $1
          AND NOT EXISTS (
              SELECT 1 FROM order_items oi
              WHERE oi.order_id = o.id AND oi.item_id = $2
          )`
	if _, err := tx.Exec(insertQ, gap.ExternalOrderNumber, gap.ItemID, gap.Quantity, gap.PriceAtPurchase); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE order_item_gaps SET resolved_at = NOW() WHERE id = $1`, gap.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// CountUnresolvedGaps returns the number of pending gaps, known parent or
// not.
func (r *OrderRepository) CountUnresolvedGaps() (int, error) {
	const q = `SELECT COUNT(*) FROM order_item_gaps WHERE resolved_at IS NULL`
	stmt, err := r.db.Preparex(q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	var n int
	if err := stmt.Get(&n); err != nil {
		return 0, err
	}
	return n, nil
}
