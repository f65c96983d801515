// Package match ranks seller-configured delivery rules against buyer text.
//
// A rule matches by bidirectional containment: its keyword appears in the
// text, or the text appears in the keyword. Genuine keyword-in-text matches
// outrank incidental reverse containment, and longer keywords outrank
// shorter ones, so "手机壳" wins over "手机" for the text "有手机壳吗".
//
// Multi-variant (spec) catalogs resolve in two passes: an exact
// (name, value) pass over spec-specific cards first, then a generic pass
// over spec-agnostic cards only if the first pass is empty. A spec-
// restricted query never matches a card carrying a different spec value.
//
// Matching is a pure function over a read-only catalog snapshot and runs
// with full parallelism and no locking.
package match
