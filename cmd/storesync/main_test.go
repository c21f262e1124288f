package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/internal/mockstore"
	"github.com/itsneelabh/storesync/internal/testutil"
)

func run(t *testing.T, b *testutil.Backend, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORESYNC_TOKEN", "")

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	base := []string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--log-output", filepath.Join(t.TempDir(), "cli.log"),
	}
	if b != nil {
		base = append(base, "--base-url", b.BaseURL)
	}
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storesync 0.1.0")
}

func TestLoginPrintsToken(t *testing.T) {
	b := testutil.NewBackend(t)

	out, err := run(t, b, "login", "--phone", mockstore.DemoPhone, "--password", mockstore.DemoPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as u-1")
	assert.Contains(t, out, "export STORESYNC_TOKEN=")
}

func TestCatalogSearch(t *testing.T) {
	b := testutil.NewBackend(t)

	out, err := run(t, b, "catalog", "--search", "basmati")
	require.NoError(t, err)
	assert.Contains(t, out, "Basmati Rice")
	assert.Contains(t, out, "120.50")
	assert.NotContains(t, out, "Banana")

	out, err = run(t, b, "catalog", "--category", "fruits")
	require.NoError(t, err)
	assert.Contains(t, out, "Banana")
	assert.NotContains(t, out, "Basmati")
}

func TestCartCommandsNeedToken(t *testing.T) {
	b := testutil.NewBackend(t)

	_, err := run(t, b, "cart")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestCartFlow(t *testing.T) {
	b := testutil.NewBackend(t)
	tok := b.Session.Token

	out, err := run(t, b, "--token", tok, "add", "p1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "committed")
	assert.Equal(t, 2, b.Store.CartQuantity(tok, "p1"))

	_, err = run(t, b, "--token", tok, "set-qty", "p1", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, b.Store.CartQuantity(tok, "p1"))

	out, err = run(t, b, "--token", tok, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:    160.00")

	out, err = run(t, b, "--token", tok, "place", "--name", "Demo", "--phone", mockstore.DemoPhone, "--address", "Road 2", "--city", "Dhaka")
	require.NoError(t, err)
	assert.Contains(t, out, "Order ORD-1001 placed, total 160.00")

	out, err = run(t, b, "--token", tok, "orders", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "ORD-1001")

	_, err = run(t, b, "--token", tok, "cancel", "ORD-1001")
	require.NoError(t, err)

	out, err = run(t, b, "--token", tok, "orders", "--status", "pending")
	require.NoError(t, err)
	assert.NotContains(t, out, "ORD-1001")
}

func TestWishlistCommands(t *testing.T) {
	b := testutil.NewBackend(t)
	tok := b.Session.Token

	out, err := run(t, b, "--token", tok, "wishlist", "add", "p6")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved (")

	out, err = run(t, b, "--token", tok, "wishlist", "add", "p6")
	require.NoError(t, err)
	assert.Contains(t, out, "Already saved (")

	out, err = run(t, b, "--token", tok, "wishlist")
	require.NoError(t, err)
	assert.Contains(t, out, "Fresh Milk")
}
