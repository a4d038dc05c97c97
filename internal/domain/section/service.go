package section

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/metrics"
)

// Fetcher runs the media listing query. *anilist.Client satisfies it.
type Fetcher interface {
	FetchMedia(ctx context.Context, p anilist.MediaQueryParams) (*anilist.MediaPage, error)
}

// FavoriteSet is the live favorites membership. *favorites.Store satisfies it.
type FavoriteSet interface {
	IDs() []int
	IsFavorite(id int) bool
}

// Observer receives every published state change. Calls are serialized and
// must not call back into the Service.
type Observer interface {
	// SectionsReplaced is called when the section list of the view changes.
	SectionsReplaced(session Session, sections []State)
	// SectionUpdated is called when one section's state changes.
	SectionUpdated(state State)
}

// Config holds orchestrator tunables.
type Config struct {
	ItemsPerPage       int
	ItemsPerSection    int
	MaxConcurrentLoads int
	Now                func() time.Time
}

func (c *Config) applyDefaults() {
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = DefaultItemsPerPage
	}
	if c.ItemsPerSection <= 0 {
		c.ItemsPerSection = DefaultItemsPerSection
	}
	if c.MaxConcurrentLoads <= 0 {
		c.MaxConcurrentLoads = 10
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type entry struct {
	def      Definition
	title    string
	media    []anilist.Media
	loading  bool
	err      string
	pageInfo *PageInfo
}

type loadTask struct {
	id    string
	seq   uint64
	input ResolveInput
	more  bool
}

// Service orchestrates the sections of one view session. Every load is
// tagged with a per-section sequence number and only the latest load of a
// section may apply its result.
type Service struct {
	fetcher   Fetcher
	favorites FavoriteSet
	observer  Observer
	cfg       Config

	mu       sync.Mutex
	notifyMu sync.Mutex
	session  Session
	order    []string
	entries  map[string]*entry
	seqs     map[string]uint64
}

// NewService creates an orchestrator in the home view with default filters
// and the current broadcast season. favorites and observer may be nil.
func NewService(fetcher Fetcher, favorites FavoriteSet, observer Observer, cfg Config) *Service {
	cfg.applyDefaults()
	period := CurrentPeriod(cfg.Now())
	return &Service{
		fetcher:   fetcher,
		favorites: favorites,
		observer:  observer,
		cfg:       cfg,
		session: Session{
			View:    ViewHome,
			Filters: DefaultFilters(),
			Year:    period.Year,
			Season:  period.Season,
		},
		entries: make(map[string]*entry),
		seqs:    make(map[string]uint64),
	}
}

// Session returns the current user-driven state.
func (s *Service) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Sections returns the current section states in display order.
func (s *Service) Sections() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Section returns the state of one section.
func (s *Service) Section(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return State{}, false
	}
	return s.stateLocked(id, e), true
}

// Publish re-sends the current section list to the observer, ordered with
// every other notification.
func (s *Service) Publish() {
	s.publishAll()
}

// Refresh rebuilds the section list of the current view and loads every
// section. It returns once all loads have finished.
func (s *Service) Refresh(ctx context.Context) {
	s.reload(ctx)
}

// SetView switches the view. Switching clears the search term.
func (s *Service) SetView(ctx context.Context, v View) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, v)
	}
	s.mu.Lock()
	s.session.View = v
	s.session.Search = ""
	s.mu.Unlock()

	log.Debug().Str("view", string(v)).Msg("View changed")
	s.reload(ctx)
	return nil
}

// SetSearch sets the search term. A non-empty term replaces the view's
// sections with the search results section. Repeating the current term
// only reloads when a section failed.
func (s *Service) SetSearch(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	s.mu.Lock()
	if term == s.session.Search && len(s.order) > 0 && !s.anyFailedLocked() {
		s.mu.Unlock()
		return
	}
	s.session.Search = term
	s.mu.Unlock()

	log.Debug().Str("term", term).Msg("Search changed")
	s.reload(ctx)
}

// SetFilters replaces the global filters.
func (s *Service) SetFilters(ctx context.Context, f FilterOptions) error {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.session.Filters = f
	s.mu.Unlock()

	s.reload(ctx)
	return nil
}

// SetPeriod selects the global broadcast season.
func (s *Service) SetPeriod(ctx context.Context, p Period) error {
	if p.Year <= 0 || !ValidSeason(p.Season) {
		return fmt.Errorf("invalid period %d %s", p.Year, p.Season)
	}
	s.mu.Lock()
	s.session.Year = p.Year
	s.session.Season = p.Season
	s.mu.Unlock()

	s.reload(ctx)
	return nil
}

// FavoritesChanged reloads favorites-dependent sections. Other sections
// are republished so their favorite flags follow the live set.
func (s *Service) FavoritesChanged(ctx context.Context) {
	s.mu.Lock()
	_, dependent := s.entries[IDMyList]
	s.mu.Unlock()

	if dependent {
		s.reload(ctx)
		return
	}
	s.publishAll()
}

// LoadMore fetches the next page of a section and appends it. It is a no-op
// while the section is loading or has no next page.
func (s *Service) LoadMore(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	if e.loading || e.pageInfo == nil || !e.pageInfo.HasNextPage {
		s.mu.Unlock()
		return nil
	}

	e.loading = true
	task := loadTask{
		id:    id,
		seq:   s.nextSeqLocked(id),
		input: s.inputLocked(e.def, e.pageInfo.CurrentPage+1),
		more:  true,
	}
	state := s.stateLocked(id, e)
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.emitSection(state)
	s.notifyMu.Unlock()

	s.load(ctx, task)
	return nil
}

func (s *Service) reload(ctx context.Context) {
	s.mu.Lock()
	tasks := s.rebuildLocked()
	session := s.session
	states := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	if s.observer != nil {
		s.observer.SectionsReplaced(session, states)
	}
	s.notifyMu.Unlock()

	if len(tasks) == 0 {
		return
	}
	p := pool.New().WithMaxGoroutines(s.cfg.MaxConcurrentLoads)
	for _, t := range tasks {
		p.Go(func() {
			s.load(ctx, t)
		})
	}
	p.Wait()
}

// rebuildLocked replaces the section list for the current session and
// returns one page-1 load per section.
func (s *Service) rebuildLocked() []loadTask {
	period := Period{Year: s.session.Year, Season: s.session.Season}

	var defs []Definition
	switch {
	case s.session.Search != "":
		defs = []Definition{SearchDefinition(s.session.Search, s.cfg.ItemsPerPage)}
	case s.session.View == ViewMyList:
		defs = []Definition{MyListDefinition(s.cfg.ItemsPerPage)}
	case s.session.View == ViewCalendar:
		defs = nil
	default:
		defs = HomeDefinitions(period, s.cfg.ItemsPerSection)
	}

	s.order = make([]string, 0, len(defs))
	s.entries = make(map[string]*entry, len(defs))
	tasks := make([]loadTask, 0, len(defs))
	for _, def := range defs {
		e := &entry{
			def:     def,
			title:   Title(def, period, s.session.Filters),
			loading: true,
		}
		if def.Paginated {
			e.pageInfo = &PageInfo{CurrentPage: 0, HasNextPage: true, PerPage: def.PerPage}
		}
		s.order = append(s.order, def.ID)
		s.entries[def.ID] = e
		tasks = append(tasks, loadTask{
			id:    def.ID,
			seq:   s.nextSeqLocked(def.ID),
			input: s.inputLocked(def, 1),
		})
	}
	return tasks
}

func (s *Service) anyFailedLocked() bool {
	for _, e := range s.entries {
		if e.err != "" {
			return true
		}
	}
	return false
}

func (s *Service) nextSeqLocked(id string) uint64 {
	s.seqs[id]++
	return s.seqs[id]
}

func (s *Service) inputLocked(def Definition, page int) ResolveInput {
	in := ResolveInput{
		Definition:      def,
		Filters:         s.session.Filters,
		Search:          def.Search,
		Period:          Period{Year: s.session.Year, Season: s.session.Season},
		Favorites:       def.ID == IDMyList,
		Page:            page,
		ItemsPerPage:    s.cfg.ItemsPerPage,
		ItemsPerSection: s.cfg.ItemsPerSection,
	}
	if in.Favorites && s.favorites != nil {
		in.FavoriteIDs = s.favorites.IDs()
	}
	return in
}

// load resolves and fetches one page, then applies the outcome unless a
// newer load of the same section was issued meanwhile.
func (s *Service) load(ctx context.Context, t loadTask) {
	res := Resolve(t.input)

	var (
		page *anilist.MediaPage
		err  error
	)
	if !res.Empty {
		page, err = s.fetcher.FetchMedia(ctx, res.Params)
	}

	s.mu.Lock()
	e, ok := s.entries[t.id]
	if !ok || s.seqs[t.id] != t.seq {
		s.mu.Unlock()
		metrics.SectionLoads.WithLabelValues(t.id, "stale").Inc()
		log.Debug().Str("section", t.id).Uint64("seq", t.seq).Msg("Discarding stale section load")
		return
	}

	result := "ok"
	switch {
	case err != nil:
		result = "error"
		e.err = NormalizeError(err)
		if !t.more {
			e.media = nil
			e.pageInfo = nil
		}
		log.Warn().Err(err).Str("section", t.id).Int("page", t.input.Page).Msg("Section load failed")
	case res.Empty:
		result = "empty"
		e.err = ""
		e.media = nil
		info := res.PageInfo
		e.pageInfo = &info
	default:
		e.err = ""
		if t.more {
			e.media = append(e.media, page.Media...)
		} else {
			e.media = page.Media
		}
		e.pageInfo = pageInfoFrom(page.PageInfo)
	}
	e.loading = false
	metrics.SectionLoads.WithLabelValues(t.id, result).Inc()

	state := s.stateLocked(t.id, e)
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.emitSection(state)
	s.notifyMu.Unlock()
}

func (s *Service) publishAll() {
	s.mu.Lock()
	session := s.session
	states := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	if s.observer != nil {
		s.observer.SectionsReplaced(session, states)
	}
	s.notifyMu.Unlock()
}

func (s *Service) emitSection(state State) {
	if s.observer != nil {
		s.observer.SectionUpdated(state)
	}
}

func (s *Service) snapshotLocked() []State {
	out := make([]State, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.stateLocked(id, s.entries[id]))
	}
	return out
}

// stateLocked derives the published state. Favorites results are a snapshot
// of what was fetched, so they are intersected with the live set here.
func (s *Service) stateLocked(id string, e *entry) State {
	items := make([]Item, 0, len(e.media))
	for _, m := range e.media {
		fav := s.isFavorite(m.ID)
		if id == IDMyList && !fav {
			continue
		}
		items = append(items, Decorate(m, fav))
	}

	var info *PageInfo
	if e.pageInfo != nil {
		copied := *e.pageInfo
		info = &copied
	}
	return State{
		ID:         id,
		Title:      e.title,
		Definition: e.def,
		Items:      items,
		IsLoading:  e.loading,
		Error:      e.err,
		PageInfo:   info,
	}
}

func (s *Service) isFavorite(id int) bool {
	return s.favorites != nil && s.favorites.IsFavorite(id)
}
