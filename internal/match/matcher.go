package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/selltide/autoship/internal/catalog"
)

// Entry pairs a rule with its card in a catalog snapshot.
type Entry struct {
	Rule catalog.Rule
	Card catalog.Card
}

// Candidate is one ranked match result.
type Candidate struct {
	Rule  catalog.Rule
	Card  catalog.Card
	Score int
}

// Match returns the eligible (rule, card) pairs for the given buyer text,
// best candidate first. An empty result is valid, not an error.
//
// Eligibility requires both the rule and its card to be enabled. With a
// spec supplied, spec-specific cards matching (name, value) exactly are
// tried first; spec-agnostic cards are the fallback only when that pass is
// empty. Cards carrying a different spec value are never returned for a
// spec-restricted query.
//
// The full ranked list is returned so callers can observe near-miss
// behavior; the executor takes the head.
func Match(snapshot []Entry, text string, spec *catalog.Spec) []Candidate {
	if text == "" {
		return nil
	}

	if spec != nil {
		exact := rank(snapshot, text, func(c catalog.Card) bool {
			return c.IsMultiSpec && c.SpecName == spec.Name && c.SpecValue == spec.Value
		})
		if len(exact) > 0 {
			return exact
		}
		// Fallback: generic cards only. Wrong-spec cards stay excluded.
		return rank(snapshot, text, func(c catalog.Card) bool {
			return !c.IsMultiSpec
		})
	}

	return rank(snapshot, text, func(catalog.Card) bool { return true })
}

// rank filters the snapshot by eligibility plus the card predicate, scores
// the survivors, and sorts them best first. Ties go to forward matches
// first (an exact substring never loses to a reverse-containment match of
// equal score), then to the lower rule id.
func rank(snapshot []Entry, text string, cardOK func(catalog.Card) bool) []Candidate {
	normText := normalize(text)

	type ranked struct {
		Candidate
		forward bool
	}
	var scored []ranked
	for _, e := range snapshot {
		if !e.Rule.Enabled || !e.Card.Enabled || !cardOK(e.Card) {
			continue
		}
		score, forward, ok := score(normText, normalize(e.Rule.Keyword))
		if !ok {
			continue
		}
		scored = append(scored, ranked{
			Candidate: Candidate{Rule: e.Rule, Card: e.Card, Score: score},
			forward:   forward,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].forward != scored[j].forward {
			return scored[i].forward
		}
		return scored[i].Rule.ID < scored[j].Rule.ID
	})

	out := make([]Candidate, len(scored))
	for i, r := range scored {
		out[i] = r.Candidate
	}
	return out
}

// score implements the bidirectional containment predicate and its ranking
// key. A keyword contained in the text scores its full rune length; a text
// contained in the keyword scores half (integer division), penalizing
// incidental reverse containment.
func score(text, keyword string) (score int, forward, ok bool) {
	if keyword == "" {
		return 0, false, false
	}
	n := utf8.RuneCountInString(keyword)
	switch {
	case strings.Contains(text, keyword):
		return n, true, true
	case strings.Contains(keyword, text):
		return n / 2, false, true
	default:
		return 0, false, false
	}
}

// normalize applies NFKC so full-width/half-width and composed/decomposed
// variants of the same keyword compare equal.
func normalize(s string) string {
	return norm.NFKC.String(s)
}
