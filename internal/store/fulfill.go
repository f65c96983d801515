package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/selltide/autoship/internal/catalog"
)

// ErrOutOfStock is returned when a data card has no non-blank stock lines
// left. The caller's idempotency key is deliberately left unmarked so a
// restock or manual retry can still succeed.
var ErrOutOfStock = errors.New("out of stock")

// TryMarkFulfilled attempts to claim the idempotency key via conditional
// insert. Returns inserted=true exactly once per key ever: the unique
// constraint on the primary key decides the winner under concurrent
// duplicate invocations.
func (s *Store) TryMarkFulfilled(ctx context.Context, key string, ruleID, cardID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fulfillments (key, rule_id, card_id)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, ruleID, cardID)
	if err != nil {
		return false, fmt.Errorf("mark fulfilled: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark fulfilled: rows affected: %w", err)
	}
	return n > 0, nil
}

// HasFulfillment reports whether the key has already been delivered.
// Read-only; the authoritative gate is the conditional insert.
func (s *Store) HasFulfillment(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fulfillments WHERE key = ?`, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fulfillment: %w", err)
	}
	return count > 0, nil
}

// PopStockLine consumes exactly one line from a data card's ordered stock,
// rewriting the remaining lines in the same transaction. Blank lines are
// trimmed. Returns ErrOutOfStock when nothing non-blank remains.
func (s *Store) PopStockLine(ctx context.Context, cardID int64) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("pop stock: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	line, err := popStockLineTx(ctx, tx, cardID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("pop stock: commit: %w", err)
	}
	return line, nil
}

// popStockLineTx does the read-pop-rewrite inside an existing transaction.
func popStockLineTx(ctx context.Context, tx *sql.Tx, cardID int64) (string, error) {
	var content string
	err := tx.QueryRowContext(ctx,
		`SELECT content FROM cards WHERE id = ? AND type = 'data'`, cardID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("pop stock: data card %d: %w", cardID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("pop stock: read card %d: %w", cardID, err)
	}

	lines := catalog.SplitStockLines(content)
	if len(lines) == 0 {
		return "", fmt.Errorf("card %d: %w", cardID, ErrOutOfStock)
	}

	first, rest := lines[0], lines[1:]
	_, err = tx.ExecContext(ctx,
		`UPDATE cards SET content = ? WHERE id = ?`,
		catalog.JoinStockLines(rest), cardID)
	if err != nil {
		return "", fmt.Errorf("pop stock: rewrite card %d: %w", cardID, err)
	}
	return first, nil
}

// StockCount returns the number of non-blank stock lines a data card holds.
func (s *Store) StockCount(ctx context.Context, cardID int64) (int, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM cards WHERE id = ? AND type = 'data'`, cardID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("stock count: data card %d: %w", cardID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("stock count: read card %d: %w", cardID, err)
	}
	return len(catalog.SplitStockLines(content)), nil
}

// IncrementDeliveryTimes bumps a rule's monotonic delivery counter.
func (s *Store) IncrementDeliveryTimes(ctx context.Context, ruleID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE delivery_rules SET delivery_times = delivery_times + 1 WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("increment delivery times: %w", err)
	}
	return nil
}

// FulfillAtomic executes the whole commit of a fulfillment in one
// transaction: claim the idempotency key, pop a stock line for data cards,
// and bump the rule counter. Either everything is persisted or nothing is.
//
// Returns:
//   - content: the delivered content (static payload, or the popped line)
//   - inserted: false when the key was already claimed (idempotent replay);
//     in that case no other write happens
//   - error: ErrOutOfStock when a data card is exhausted - the transaction
//     is rolled back so the key stays unclaimed and a retry after restock
//     can still succeed
func (s *Store) FulfillAtomic(ctx context.Context, key string, rule catalog.Rule, card catalog.Card) (content string, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("fulfill: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Step 1: claim the key (the unique constraint is the gate).
	res, err := tx.ExecContext(ctx, `
		INSERT INTO fulfillments (key, rule_id, card_id)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, rule.ID, card.ID)
	if err != nil {
		return "", false, fmt.Errorf("fulfill: claim key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("fulfill: rows affected: %w", err)
	}
	if n == 0 {
		// Already delivered - nothing more to do.
		if err := tx.Commit(); err != nil {
			return "", false, fmt.Errorf("fulfill: commit (existing): %w", err)
		}
		return "", false, nil
	}

	// Step 2: resolve content. Data cards consume stock inside the same
	// transaction; out-of-stock rolls back the claim from step 1.
	if card.Type == catalog.CardTypeData {
		content, err = popStockLineTx(ctx, tx, card.ID)
		if err != nil {
			return "", false, err
		}
	} else {
		content = card.Content
	}

	// Step 3: counter update joins the same atomic unit.
	if _, err := tx.ExecContext(ctx,
		`UPDATE delivery_rules SET delivery_times = delivery_times + 1 WHERE id = ?`,
		rule.ID); err != nil {
		return "", false, fmt.Errorf("fulfill: increment counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("fulfill: commit: %w", err)
	}
	return content, true, nil
}
