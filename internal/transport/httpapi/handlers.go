package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
	"github.com/edumarques81/animekun-backend/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type handlers struct {
	sessions  *session.Registry
	favorites *favorites.Store
	calendar  *calendar.Service
	clients   func() int
	cache     store.StatsReporter
	now       func() time.Time
}

// SectionsResponse is returned by every section endpoint.
type SectionsResponse struct {
	Session  section.Session `json:"session"`
	Sections []section.State `json:"sections"`
}

// FavoritesResponse lists the favorite ids.
type FavoritesResponse struct {
	IDs []int `json:"ids"`
}

// ToggleResponse reports the membership after a toggle.
type ToggleResponse struct {
	ID         int   `json:"id"`
	IsFavorite bool  `json:"isFavorite"`
	IDs        []int `json:"ids"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status        string       `json:"status"`
	Sessions      int          `json:"sessions"`
	SocketClients int          `json:"socketClients"`
	Favorites     int          `json:"favorites"`
	Cache         *store.Stats `json:"cache,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeBody decodes the request body into dst. Fields absent from the
// body keep the values already in dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// session returns the caller's view session. A new session is loaded
// before it is returned.
func (h *handlers) session(r *http.Request) *section.Service {
	svc, created := h.sessions.Open(r.Header.Get(SessionHeader), nil)
	if created {
		svc.Refresh(r.Context())
	}
	return svc
}

func (h *handlers) respondSections(w http.ResponseWriter, svc *section.Service) {
	writeJSON(w, http.StatusOK, SectionsResponse{
		Session:  svc.Session(),
		Sections: svc.Sections(),
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	favs := 0
	if h.favorites != nil {
		favs = h.favorites.Len()
	}
	resp := HealthResponse{
		Status:    "ok",
		Sessions:  h.sessions.Len(),
		Favorites: favs,
	}
	if h.clients != nil {
		resp.SocketClients = h.clients()
	}
	if h.cache != nil {
		stats, err := h.cache.GetStats()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read cache stats")
		} else {
			resp.Cache = stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (h *handlers) options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, section.CatalogOptions(h.now()))
}

func (h *handlers) sections(w http.ResponseWriter, r *http.Request) {
	h.respondSections(w, h.session(r))
}

func (h *handlers) setView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		View section.View `json:"view"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc := h.session(r)
	if err := svc.SetView(r.Context(), body.View); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondSections(w, svc)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Term string `json:"term"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc := h.session(r)
	svc.SetSearch(r.Context(), body.Term)
	h.respondSections(w, svc)
}

func (h *handlers) setFilters(w http.ResponseWriter, r *http.Request) {
	svc := h.session(r)
	filters := svc.Session().Filters
	if err := decodeBody(w, r, &filters); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svc.SetFilters(r.Context(), filters); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondSections(w, svc)
}

func (h *handlers) setPeriod(w http.ResponseWriter, r *http.Request) {
	svc := h.session(r)
	current := svc.Session()
	period := section.Period{Year: current.Year, Season: current.Season}
	if err := decodeBody(w, r, &period); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svc.SetPeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondSections(w, svc)
}

func (h *handlers) loadMore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	svc := h.session(r)
	if err := svc.LoadMore(r.Context(), id); err != nil {
		if errors.Is(err, section.ErrSectionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, section.NormalizeError(err))
		return
	}
	state, _ := svc.Section(id)
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	ids := []int{}
	if h.favorites != nil {
		ids = h.favorites.IDs()
	}
	writeJSON(w, http.StatusOK, FavoritesResponse{IDs: ids})
}

func (h *handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid media id")
		return
	}
	if h.favorites == nil {
		writeError(w, http.StatusServiceUnavailable, "favorites unavailable")
		return
	}
	fav := h.favorites.Toggle(id)
	writeJSON(w, http.StatusOK, ToggleResponse{ID: id, IsFavorite: fav, IDs: h.favorites.IDs()})
}

func (h *handlers) weekCalendar(w http.ResponseWriter, r *http.Request) {
	if h.calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}
	week, err := h.calendar.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, section.NormalizeError(err))
		return
	}
	writeJSON(w, http.StatusOK, week)
}
