package session_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
)

// byIDFetcher answers favorites queries with exactly the requested ids.
type byIDFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *byIDFetcher) FetchMedia(ctx context.Context, p anilist.MediaQueryParams) (*anilist.MediaPage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	media := make([]anilist.Media, 0, len(p.IDs))
	for _, id := range p.IDs {
		media = append(media, anilist.Media{ID: id})
	}
	return &anilist.MediaPage{
		PageInfo: anilist.PageInfo{Total: len(media), CurrentPage: 1, PerPage: p.PerPage},
		Media:    media,
	}, nil
}

func (f *byIDFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
}

func TestOpenReusesSession(t *testing.T) {
	r := session.NewRegistry(&byIDFetcher{}, nil, section.Config{Now: fixedNow})

	a, created := r.Open("abc", nil)
	if !created {
		t.Fatal("first Open should create")
	}
	b, created := r.Open("abc", nil)
	if created || a != b {
		t.Error("second Open should return the same session")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	if _, ok := r.Get(""); ok {
		t.Error("default session should not exist yet")
	}
	r.Open("", nil)
	if _, ok := r.Get(session.DefaultID); !ok {
		t.Error("empty id should map to the default session")
	}

	r.Close("abc")
	r.Close("abc")
	if _, ok := r.Get("abc"); ok {
		t.Error("closed session still reachable")
	}
}

func TestFavoritesChangedReloadsMyList(t *testing.T) {
	favs := favorites.New(store.NewMemory(0))
	favs.Load()
	fetcher := &byIDFetcher{}
	r := session.NewRegistry(fetcher, favs, section.Config{Now: fixedNow})
	ctx := context.Background()

	svc, _ := r.Open("s1", nil)
	if err := svc.SetView(ctx, section.ViewMyList); err != nil {
		t.Fatalf("SetView: %v", err)
	}
	if fetcher.count() != 0 {
		t.Fatalf("empty favorites should not hit the network, got %d calls", fetcher.count())
	}

	favs.Toggle(21)
	favs.Toggle(1535)
	r.FavoritesChanged(ctx)

	st, ok := svc.Section(section.IDMyList)
	if !ok {
		t.Fatal("myList section missing")
	}
	if len(st.Items) != 2 || st.Items[0].ID != 21 || st.Items[1].ID != 1535 {
		t.Errorf("items = %+v, want ids 21 and 1535", st.Items)
	}
	for _, it := range st.Items {
		if !it.IsFavorite {
			t.Errorf("item %d should be flagged favorite", it.ID)
		}
	}

	// Un-favoriting hides the entry at once, before any reload.
	favs.Toggle(21)
	st, _ = svc.Section(section.IDMyList)
	if len(st.Items) != 1 || st.Items[0].ID != 1535 {
		t.Errorf("items after removal = %+v, want only 1535", st.Items)
	}
}

// stepClock is a manually advanced time source.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type nopObserver struct{}

func (nopObserver) SectionsReplaced(section.Session, []section.State) {}
func (nopObserver) SectionUpdated(section.State)                      {}

func TestSweepReclaimsIdleSessions(t *testing.T) {
	clock := &stepClock{now: fixedNow()}
	r := session.NewRegistry(&byIDFetcher{}, nil, section.Config{Now: fixedNow},
		session.WithIdleTimeout(30*time.Minute),
		session.WithClock(clock.Now),
	)
	t.Cleanup(r.Stop)

	r.Open("kept", nil)
	r.Open("idle", nil)
	r.Open("socket-1", nopObserver{})

	clock.Advance(20 * time.Minute)
	r.Open("kept", nil)
	clock.Advance(20 * time.Minute)

	r.Sweep()

	if _, ok := r.Get("idle"); ok {
		t.Error("idle session should be reclaimed")
	}
	if _, ok := r.Get("kept"); !ok {
		t.Error("recently used session should survive")
	}
	if _, ok := r.Get("socket-1"); !ok {
		t.Error("socket-owned session must not be swept")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestMaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &stepClock{now: fixedNow()}
	r := session.NewRegistry(&byIDFetcher{}, nil, section.Config{Now: fixedNow},
		session.WithMaxSessions(3),
		session.WithClock(clock.Now),
	)
	t.Cleanup(r.Stop)

	r.Open("socket-1", nopObserver{})
	for _, id := range []string{"a", "b", "c"} {
		clock.Advance(time.Second)
		r.Open(id, nil)
	}
	clock.Advance(time.Second)
	r.Open("a", nil)

	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		r.Open("burst-"+strconv.Itoa(i), nil)
	}

	if got := r.Len(); got != 4 {
		t.Errorf("Len = %d, want 3 reclaimable + 1 socket", got)
	}
	if _, ok := r.Get("socket-1"); !ok {
		t.Error("socket-owned session must not be evicted")
	}
	for _, id := range []string{"burst-47", "burst-48", "burst-49"} {
		if _, ok := r.Get(id); !ok {
			t.Errorf("newest session %s should be open", id)
		}
	}
	if _, ok := r.Get("a"); ok {
		t.Error("old session a should have been evicted")
	}
}

func TestSweepWithoutTimeoutIsNoop(t *testing.T) {
	r := session.NewRegistry(&byIDFetcher{}, nil, section.Config{Now: fixedNow})
	r.Open("x", nil)
	if n := r.Sweep(); n != 0 || r.Len() != 1 {
		t.Errorf("Sweep = %d, Len = %d; want 0 and 1", n, r.Len())
	}
	r.Stop()
	r.Stop()
}
