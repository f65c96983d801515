package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end conformance scenario: a seeded catalog,
// a sequence of inbound steps, and the expected terminal outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Cards seeds the card catalog. Rules reference cards by name.
	Cards []CardDef `yaml:"cards"`

	// Rules seeds the delivery rules.
	Rules []RuleDef `yaml:"rules"`

	// Orders seeds known orders for spec correlation.
	Orders []OrderDef `yaml:"orders,omitempty"`

	// Steps is the inbound sequence. Each step is either a platform
	// event or a buyer chat message.
	Steps []Step `yaml:"steps"`

	// Expect lists the expected outcome per step, by position. Empty
	// fields are not checked. May be omitted for golden-only scenarios.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// CardDef seeds one card.
type CardDef struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Content      string `yaml:"content,omitempty"`
	DelaySeconds int    `yaml:"delay_seconds,omitempty"`
	SpecName     string `yaml:"spec_name,omitempty"`
	SpecValue    string `yaml:"spec_value,omitempty"`
}

// RuleDef seeds one delivery rule. Card references a CardDef by name.
type RuleDef struct {
	Keyword       string `yaml:"keyword"`
	Card          string `yaml:"card"`
	DeliveryCount int    `yaml:"delivery_count,omitempty"`
	Disabled      bool   `yaml:"disabled,omitempty"`
}

// OrderDef seeds one known order.
type OrderDef struct {
	OrderID   string `yaml:"order_id"`
	ItemID    string `yaml:"item_id,omitempty"`
	BuyerID   string `yaml:"buyer_id,omitempty"`
	SpecName  string `yaml:"spec_name,omitempty"`
	SpecValue string `yaml:"spec_value,omitempty"`
	Quantity  string `yaml:"quantity,omitempty"`
	Status    string `yaml:"status,omitempty"`
}

// Step is one inbound unit of work. Exactly one of Event and Message must
// be set.
type Step struct {
	ChatID       string `yaml:"chat_id"`
	ItemID       string `yaml:"item_id"`
	BuyerChannel string `yaml:"buyer_channel,omitempty"`

	// Text is what rule keywords are matched against (the buyer's
	// message text or the listing title). For message steps it defaults
	// to Message.
	Text string `yaml:"text,omitempty"`

	// Event is a raw platform event tree.
	Event map[string]any `yaml:"event,omitempty"`

	// Message is a buyer chat message body.
	Message string `yaml:"message,omitempty"`
}

// Expectation is a subset match against one step's outcome.
type Expectation struct {
	State   string `yaml:"state"`
	Reason  string `yaml:"reason,omitempty"`
	Key     string `yaml:"key,omitempty"`
	Content string `yaml:"content,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	cards := make(map[string]bool, len(sc.Cards))
	for i, c := range sc.Cards {
		if c.Name == "" {
			return fmt.Errorf("cards[%d]: name is required", i)
		}
		if cards[c.Name] {
			return fmt.Errorf("cards[%d]: duplicate card name %q", i, c.Name)
		}
		cards[c.Name] = true
	}
	for i, r := range sc.Rules {
		if r.Keyword == "" {
			return fmt.Errorf("rules[%d]: keyword is required", i)
		}
		if !cards[r.Card] {
			return fmt.Errorf("rules[%d]: unknown card %q", i, r.Card)
		}
	}
	for i, s := range sc.Steps {
		hasEvent := len(s.Event) > 0
		hasMessage := s.Message != ""
		if hasEvent == hasMessage {
			return fmt.Errorf("steps[%d]: exactly one of event and message must be set", i)
		}
	}
	if len(sc.Expect) > 0 && len(sc.Expect) != len(sc.Steps) {
		return fmt.Errorf("expect has %d entries for %d steps", len(sc.Expect), len(sc.Steps))
	}
	return nil
}
