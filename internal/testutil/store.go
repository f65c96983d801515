// Package testutil provides shared fixtures for store-backed tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/store"
)

// TempStore opens a fresh SQLite store in a per-test temp directory and
// closes it when the test ends.
func TempStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "autoship.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// SeedCard saves a card and returns its id, failing the test on error.
func SeedCard(t *testing.T, st *store.Store, c catalog.Card) int64 {
	t.Helper()

	id, err := st.SaveCard(context.Background(), c)
	require.NoError(t, err)
	return id
}

// SeedRule saves a rule and returns its id, failing the test on error.
func SeedRule(t *testing.T, st *store.Store, r catalog.Rule) int64 {
	t.Helper()

	id, err := st.SaveRule(context.Background(), r)
	require.NoError(t, err)
	return id
}

// SeedOrder saves an order, failing the test on error.
func SeedOrder(t *testing.T, st *store.Store, o catalog.Order) {
	t.Helper()

	require.NoError(t, st.SaveOrder(context.Background(), o))
}
