package catalog

import (
	"fmt"
	"strings"
)

// CardType identifies how a card's content is resolved at delivery time.
type CardType string

const (
	// CardTypeText delivers a static text payload.
	CardTypeText CardType = "text"

	// CardTypeImage delivers a static image URL.
	CardTypeImage CardType = "image"

	// CardTypeAPI delivers the result of triggering a configured API call.
	// The engine treats the API config as an opaque static payload; the
	// send collaborator owns the actual call.
	CardTypeAPI CardType = "api"

	// CardTypeData delivers one line from an ordered, finite stock of
	// unique lines. Each line is consumed exactly once.
	CardTypeData CardType = "data"
)

// ValidCardTypes defines the allowed card types.
var ValidCardTypes = map[CardType]bool{
	CardTypeText:  true,
	CardTypeImage: true,
	CardTypeAPI:   true,
	CardTypeData:  true,
}

// Spec is a variant dimension (e.g. color/size) distinguishing otherwise
// identical listings.
type Spec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Card is a deliverable unit.
//
// Content is type-dependent: the static payload for text/image/api cards,
// or the newline-separated stock lines for data cards. For data cards the
// engine mutates Content by popping lines; all other types are read-only.
type Card struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Type         CardType `json:"type"`
	Enabled      bool     `json:"enabled"`
	DelaySeconds int      `json:"delay_seconds"`
	IsMultiSpec  bool     `json:"is_multi_spec"`
	SpecName     string   `json:"spec_name,omitempty"`
	SpecValue    string   `json:"spec_value,omitempty"`
	Content      string   `json:"content"`
	Description  string   `json:"description,omitempty"`
}

// Validate checks the card's structural invariants.
func (c Card) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("card %d: name is required", c.ID)
	}
	if !ValidCardTypes[c.Type] {
		return fmt.Errorf("card %d: invalid type %q", c.ID, c.Type)
	}
	if c.DelaySeconds < 0 {
		return fmt.Errorf("card %d: delay_seconds must not be negative", c.ID)
	}
	if c.IsMultiSpec && (c.SpecName == "" || c.SpecValue == "") {
		return fmt.Errorf("card %d: multi-spec card requires spec name and value", c.ID)
	}
	return nil
}

// Spec returns the card's spec pair. Only meaningful when IsMultiSpec.
func (c Card) Spec() Spec {
	return Spec{Name: c.SpecName, Value: c.SpecValue}
}

// StockLines splits a data card's content into its non-blank stock lines,
// trimmed of surrounding whitespace. Order is preserved.
func (c Card) StockLines() []string {
	return SplitStockLines(c.Content)
}

// SplitStockLines splits newline-separated stock content into trimmed,
// non-blank lines.
func SplitStockLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// JoinStockLines is the inverse of SplitStockLines.
func JoinStockLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// Rule is a keyword-to-card delivery mapping configured by a seller.
// DeliveryTimes is a monotonic counter mutated only by the executor on
// successful fulfillment.
type Rule struct {
	ID            int64  `json:"id"`
	Keyword       string `json:"keyword"`
	CardID        int64  `json:"card_id"`
	DeliveryCount int    `json:"delivery_count"`
	Enabled       bool   `json:"enabled"`
	DeliveryTimes int64  `json:"delivery_times"`
	Description   string `json:"description,omitempty"`
}

// Validate checks the rule's structural invariants.
func (r Rule) Validate() error {
	if r.Keyword == "" {
		return fmt.Errorf("rule %d: keyword is required", r.ID)
	}
	if r.CardID == 0 {
		return fmt.Errorf("rule %d: card_id is required", r.ID)
	}
	if r.DeliveryCount < 1 {
		return fmt.Errorf("rule %d: delivery_count must be at least 1", r.ID)
	}
	return nil
}

// Order is the platform-side purchase record correlated to a payment event.
// The engine reads it for the item spec; it is written when order detail is
// observed on the wire.
type Order struct {
	OrderID   string `json:"order_id"`
	ItemID    string `json:"item_id,omitempty"`
	BuyerID   string `json:"buyer_id,omitempty"`
	SpecName  string `json:"spec_name,omitempty"`
	SpecValue string `json:"spec_value,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Spec returns the order's spec pair, or (Spec{}, false) when the order
// carries no spec information.
func (o Order) Spec() (Spec, bool) {
	if o.SpecName == "" || o.SpecValue == "" {
		return Spec{}, false
	}
	return Spec{Name: o.SpecName, Value: o.SpecValue}, true
}
