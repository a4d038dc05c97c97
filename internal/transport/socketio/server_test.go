package socketio_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
	"github.com/edumarques81/animekun-backend/internal/transport/socketio"
)

type stubFetcher struct{}

func (stubFetcher) FetchMedia(ctx context.Context, p anilist.MediaQueryParams) (*anilist.MediaPage, error) {
	return &anilist.MediaPage{Media: []anilist.Media{}}, nil
}

func (stubFetcher) FetchAiringSchedule(ctx context.Context, p anilist.AiringQueryParams) (*anilist.AiringSchedulePage, error) {
	return &anilist.AiringSchedulePage{}, nil
}

func newServer(t *testing.T) (*socketio.Server, *favorites.Store) {
	t.Helper()
	favs := favorites.New(store.NewMemory(0))
	favs.Load()
	registry := session.NewRegistry(stubFetcher{}, favs, section.Config{})
	cal := calendar.NewService(stubFetcher{}, calendar.Config{})

	server, err := socketio.NewServer(registry, favs, cal, socketio.Options{MaxExternalClients: 2})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, favs
}

func TestNewServer(t *testing.T) {
	server, _ := newServer(t)
	if server == nil {
		t.Fatal("NewServer should return a non-nil server")
	}
	if server.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", server.ClientCount())
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close should not error: %v", err)
	}
}

func TestServerBroadcastFavoritesWithoutClients(t *testing.T) {
	server, favs := newServer(t)
	defer server.Close()

	// Toggling drives the subscribed broadcast; it must not panic without
	// clients.
	favs.Toggle(5114)
	server.BroadcastFavorites(nil)
}

func TestServerPollingHandshake(t *testing.T) {
	server, _ := newServer(t)
	defer server.Close()

	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/socket.io/?EIO=4&transport=polling")
	if err != nil {
		t.Fatalf("handshake request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "0{") || !strings.Contains(string(body), `"sid"`) {
		t.Errorf("unexpected open packet: %s", body)
	}
}
