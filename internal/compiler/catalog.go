package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/selltide/autoship/internal/catalog"
)

// CardDef is a compiled card definition plus the label it is referenced by.
type CardDef struct {
	Label string
	Card  catalog.Card
}

// RuleDef is a compiled rule definition referencing its card by label.
type RuleDef struct {
	CardLabel string
	Rule      catalog.Rule
}

// Catalog is the compiled form of one catalog definition file.
type Catalog struct {
	Cards []CardDef
	Rules []RuleDef
}

// CompileError reports a problem in a catalog definition with its CUE
// source position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileCatalog parses a CUE value into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the catalog struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`catalog: { cards: {...}, rules: [...] }`)
//	cat, err := CompileCatalog(v.LookupPath(cue.ParsePath("catalog")))
func CompileCatalog(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{}

	cards, err := parseCards(v)
	if err != nil {
		return nil, err
	}
	cat.Cards = cards

	rules, err := parseRules(v, cards)
	if err != nil {
		return nil, err
	}
	cat.Rules = rules

	return cat, nil
}

// parseCards parses the cards struct. Labels are collected in sorted order
// so import assigns ids deterministically.
func parseCards(v cue.Value) ([]CardDef, error) {
	cardsVal := v.LookupPath(cue.ParsePath("cards"))
	if !cardsVal.Exists() {
		return nil, &CompileError{
			Field:   "cards",
			Message: "cards is required",
			Pos:     v.Pos(),
		}
	}

	byLabel := map[string]catalog.Card{}
	iter, err := cardsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		card, err := parseCard(label, iter.Value())
		if err != nil {
			return nil, err
		}
		byLabel[label] = card
	}

	if len(byLabel) == 0 {
		return nil, &CompileError{
			Field:   "cards",
			Message: "at least one card is required",
			Pos:     cardsVal.Pos(),
		}
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	defs := make([]CardDef, len(labels))
	for i, label := range labels {
		defs[i] = CardDef{Label: label, Card: byLabel[label]}
	}
	return defs, nil
}

// parseCard parses one card struct.
func parseCard(label string, v cue.Value) (catalog.Card, error) {
	card := catalog.Card{
		// Cards default to enabled; definitions opt out explicitly.
		Enabled: true,
	}

	name, err := requiredString(v, "name")
	if err != nil {
		return card, err
	}
	card.Name = name

	typ, err := requiredString(v, "type")
	if err != nil {
		return card, err
	}
	card.Type = catalog.CardType(typ)
	if !catalog.ValidCardTypes[card.Type] {
		return card, &CompileError{
			Field:   label + ".type",
			Message: fmt.Sprintf("invalid card type %q", typ),
			Pos:     v.Pos(),
		}
	}

	if s, ok, err := optionalString(v, "content"); err != nil {
		return card, err
	} else if ok {
		card.Content = s
	}
	if s, ok, err := optionalString(v, "description"); err != nil {
		return card, err
	} else if ok {
		card.Description = s
	}
	if b, ok, err := optionalBool(v, "enabled"); err != nil {
		return card, err
	} else if ok {
		card.Enabled = b
	}
	if n, ok, err := optionalInt(v, "delay_seconds"); err != nil {
		return card, err
	} else if ok {
		card.DelaySeconds = int(n)
	}

	// spec: {name: ..., value: ...} marks the card spec-specific.
	specVal := v.LookupPath(cue.ParsePath("spec"))
	if specVal.Exists() {
		specName, err := requiredString(specVal, "name")
		if err != nil {
			return card, err
		}
		specValue, err := requiredString(specVal, "value")
		if err != nil {
			return card, err
		}
		card.IsMultiSpec = true
		card.SpecName = specName
		card.SpecValue = specValue
	}

	if err := card.Validate(); err != nil {
		return card, &CompileError{
			Field:   label,
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return card, nil
}

// parseRules parses the rules list, validating card label references.
func parseRules(v cue.Value, cards []CardDef) ([]RuleDef, error) {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "rules is required",
			Pos:     v.Pos(),
		}
	}

	known := make(map[string]bool, len(cards))
	for _, c := range cards {
		known[c.Label] = true
	}

	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []RuleDef
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()

		keyword, err := requiredString(rv, "keyword")
		if err != nil {
			return nil, err
		}
		cardLabel, err := requiredString(rv, "card")
		if err != nil {
			return nil, err
		}
		if !known[cardLabel] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("rules[%d].card", i),
				Message: fmt.Sprintf("unknown card label %q", cardLabel),
				Pos:     rv.Pos(),
			}
		}

		rule := catalog.Rule{
			Keyword:       keyword,
			DeliveryCount: 1,
			Enabled:       true,
		}
		if n, ok, err := optionalInt(rv, "delivery_count"); err != nil {
			return nil, err
		} else if ok {
			rule.DeliveryCount = int(n)
		}
		if b, ok, err := optionalBool(rv, "enabled"); err != nil {
			return nil, err
		} else if ok {
			rule.Enabled = b
		}
		if s, ok, err := optionalString(rv, "description"); err != nil {
			return nil, err
		} else if ok {
			rule.Description = s
		}

		defs = append(defs, RuleDef{CardLabel: cardLabel, Rule: rule})
	}

	if len(defs) == 0 {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     rulesVal.Pos(),
		}
	}
	return defs, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optionalBool(v cue.Value, field string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false, formatCUEError(err)
	}
	return b, true, nil
}

func optionalInt(v cue.Value, field string) (int64, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return n, true, nil
}

// formatCUEError converts a CUE error into a CompileError with position
// info when available.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
