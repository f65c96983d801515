package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/selltide/autoship/internal/catalog"
)

// SaveOrder upserts an order record observed on the wire. Later sightings
// of the same order only fill fields that are still empty, so a detailed
// order-detail event never gets clobbered by a thin reminder event.
func (s *Store) SaveOrder(ctx context.Context, o catalog.Order) error {
	if o.OrderID == "" {
		return fmt.Errorf("save order: order id is required")
	}
	if o.Status == "" {
		o.Status = "unknown"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, item_id, buyer_id, spec_name, spec_value, quantity, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			item_id    = CASE WHEN orders.item_id    = '' THEN excluded.item_id    ELSE orders.item_id    END,
			buyer_id   = CASE WHEN orders.buyer_id   = '' THEN excluded.buyer_id   ELSE orders.buyer_id   END,
			spec_name  = CASE WHEN orders.spec_name  = '' THEN excluded.spec_name  ELSE orders.spec_name  END,
			spec_value = CASE WHEN orders.spec_value = '' THEN excluded.spec_value ELSE orders.spec_value END,
			quantity   = CASE WHEN orders.quantity   = '' THEN excluded.quantity   ELSE orders.quantity   END,
			status     = CASE WHEN excluded.status != 'unknown' THEN excluded.status ELSE orders.status END
	`,
		o.OrderID, o.ItemID, o.BuyerID, o.SpecName, o.SpecValue, o.Quantity, o.Status,
	)
	if err != nil {
		return fmt.Errorf("save order %s: %w", o.OrderID, err)
	}
	return nil
}

// OrderByID reads one order. Returns ErrNotFound when the order has never
// been observed; callers treat that as "match without spec", not a failure.
func (s *Store) OrderByID(ctx context.Context, orderID string) (catalog.Order, error) {
	var o catalog.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT order_id, item_id, buyer_id, spec_name, spec_value, quantity, status
		FROM orders WHERE order_id = ?
	`, orderID).Scan(
		&o.OrderID, &o.ItemID, &o.BuyerID, &o.SpecName, &o.SpecValue,
		&o.Quantity, &o.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return catalog.Order{}, fmt.Errorf("read order %s: %w", orderID, err)
	}
	return o, nil
}
