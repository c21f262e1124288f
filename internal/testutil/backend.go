package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/internal/mockstore"
)

// Backend is a running mockstore with a client and a logged-in session
// pointed at it.
type Backend struct {
	Store   *mockstore.Store
	Server  *httptest.Server
	Client  *api.Client
	Session *api.Session
	BaseURL string
}

// NewBackend starts a mockstore for the duration of the test.
func NewBackend(t testing.TB, opts ...mockstore.Option) *Backend {
	t.Helper()

	store := mockstore.New(opts...)
	srv := httptest.NewServer(store.Handler())
	t.Cleanup(srv.Close)

	base := srv.URL + mockstore.APIPrefix
	client, err := api.NewClient(
		core.APIConfig{BaseURL: base, Timeout: 2 * time.Second},
		core.AuthConfig{Timeout: 2 * time.Second},
	)
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}

	return &Backend{
		Store:   store,
		Server:  srv,
		Client:  client,
		Session: &api.Session{Token: store.IssueToken(), UserID: "u-1"},
		BaseURL: base,
	}
}
