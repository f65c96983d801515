package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/selltide/autoship/internal/catalog"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RuleCard is one row of the enabled-rules join: a rule together with the
// card it delivers.
type RuleCard struct {
	Rule catalog.Rule
	Card catalog.Card
}

// SaveCard inserts the card and returns its assigned id. The card is
// validated first; invalid cards are rejected before touching the database.
func (s *Store) SaveCard(ctx context.Context, c catalog.Card) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("save card: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cards
		(name, type, enabled, delay_seconds, is_multi_spec, spec_name, spec_value, content, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Name,
		string(c.Type),
		c.Enabled,
		c.DelaySeconds,
		c.IsMultiSpec,
		c.SpecName,
		c.SpecValue,
		c.Content,
		c.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("save card: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save card: last insert id: %w", err)
	}
	return id, nil
}

// CardByID reads one card. Returns ErrNotFound when the id is unknown.
func (s *Store) CardByID(ctx context.Context, id int64) (catalog.Card, error) {
	var c catalog.Card
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, enabled, delay_seconds, is_multi_spec,
		       spec_name, spec_value, content, description
		FROM cards WHERE id = ?
	`, id).Scan(
		&c.ID, &c.Name, (*string)(&c.Type), &c.Enabled, &c.DelaySeconds,
		&c.IsMultiSpec, &c.SpecName, &c.SpecValue, &c.Content, &c.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return catalog.Card{}, fmt.Errorf("read card %d: %w", id, err)
	}
	return c, nil
}

// SaveRule inserts the rule and returns its assigned id.
//
// The keyword is stored NFKC-normalized so the byte-wise LIKE prefilter in
// EnabledRules agrees with the matcher, which normalizes before containment.
func (s *Store) SaveRule(ctx context.Context, r catalog.Rule) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("save rule: %w", err)
	}
	r.Keyword = norm.NFKC.String(r.Keyword)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_rules
		(keyword, card_id, delivery_count, enabled, delivery_times, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.Keyword,
		r.CardID,
		r.DeliveryCount,
		r.Enabled,
		r.DeliveryTimes,
		r.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("save rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save rule: last insert id: %w", err)
	}
	return id, nil
}

// RuleByID reads one rule. Returns ErrNotFound when the id is unknown.
func (s *Store) RuleByID(ctx context.Context, id int64) (catalog.Rule, error) {
	var r catalog.Rule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, keyword, card_id, delivery_count, enabled, delivery_times, description
		FROM delivery_rules WHERE id = ?
	`, id).Scan(
		&r.ID, &r.Keyword, &r.CardID, &r.DeliveryCount, &r.Enabled,
		&r.DeliveryTimes, &r.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Rule{}, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return catalog.Rule{}, fmt.Errorf("read rule %d: %w", id, err)
	}
	return r, nil
}

// SetRuleEnabled toggles a rule without touching its other fields.
func (s *Store) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE delivery_rules SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule enabled: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// EnabledRules returns the catalog snapshot for matching: every enabled
// rule joined with its enabled card, ordered by rule id for determinism.
//
// A non-empty textHint prefilters with the same bidirectional containment
// the matcher applies (the hint contains the keyword, or the keyword
// contains the hint), keeping the snapshot small for large catalogs. The
// hint is NFKC-normalized before binding, and SaveRule stores keywords
// normalized, so the byte-wise LIKE sees exactly what the matcher compares;
// the matcher still re-checks the predicate and decides the match.
func (s *Store) EnabledRules(ctx context.Context, textHint string) ([]RuleCard, error) {
	query := `
		SELECT dr.id, dr.keyword, dr.card_id, dr.delivery_count, dr.enabled,
		       dr.delivery_times, dr.description,
		       c.id, c.name, c.type, c.enabled, c.delay_seconds, c.is_multi_spec,
		       c.spec_name, c.spec_value, c.content, c.description
		FROM delivery_rules dr
		JOIN cards c ON dr.card_id = c.id
		WHERE dr.enabled = 1 AND c.enabled = 1
	`
	args := []any{}
	if textHint != "" {
		hint := norm.NFKC.String(textHint)
		query += ` AND (? LIKE '%' || dr.keyword || '%' OR dr.keyword LIKE '%' || ? || '%')`
		args = append(args, hint, hint)
	}
	query += ` ORDER BY dr.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("enabled rules: %w", err)
	}
	defer rows.Close()

	var out []RuleCard
	for rows.Next() {
		var rc RuleCard
		if err := rows.Scan(
			&rc.Rule.ID, &rc.Rule.Keyword, &rc.Rule.CardID, &rc.Rule.DeliveryCount,
			&rc.Rule.Enabled, &rc.Rule.DeliveryTimes, &rc.Rule.Description,
			&rc.Card.ID, &rc.Card.Name, (*string)(&rc.Card.Type), &rc.Card.Enabled,
			&rc.Card.DelaySeconds, &rc.Card.IsMultiSpec, &rc.Card.SpecName,
			&rc.Card.SpecValue, &rc.Card.Content, &rc.Card.Description,
		); err != nil {
			return nil, fmt.Errorf("enabled rules: scan: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enabled rules: %w", err)
	}
	return out, nil
}
