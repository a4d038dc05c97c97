// Package section resolves section definitions into media queries and
// orchestrates the loading of every section of a view session.
package section

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

// Common errors
var (
	// ErrSectionNotFound indicates a section id not present in the current view
	ErrSectionNotFound = errors.New("section not found")

	// ErrInvalidView indicates an unknown view name
	ErrInvalidView = errors.New("invalid view")
)

// View is the top-level screen a session is looking at.
type View string

const (
	ViewHome     View = "home"
	ViewMyList   View = "myList"
	ViewCalendar View = "calendar"
)

// Valid reports whether v names a known view.
func (v View) Valid() bool {
	switch v {
	case ViewHome, ViewMyList, ViewCalendar:
		return true
	}
	return false
}

// ScoreRange selects a score bucket.
type ScoreRange string

const (
	ScoreAny   ScoreRange = "any"
	Score9Plus ScoreRange = "9+"
	Score8     ScoreRange = "8-8.9"
	Score7     ScoreRange = "7-7.9"
	Score6     ScoreRange = "6-6.9"
	ScoreNone  ScoreRange = "none"
)

// StatusAny leaves the lifecycle status unconstrained.
const StatusAny = "any"

// ScoreBucket is a named inclusive sub-range of the 0-100 score scale.
type ScoreBucket struct {
	Value    ScoreRange `json:"value"`
	Label    string     `json:"label"`
	MinScore *int       `json:"minScore,omitempty"`
	MaxScore *int       `json:"maxScore,omitempty"`
}

// Bounds returns the exclusive API bounds of the bucket.
func (b ScoreBucket) Bounds() (greater, lesser *int) {
	return anilist.ScoreBounds(b.MinScore, b.MaxScore)
}

// FilterOptions is the global cross-section filter state of a session.
type FilterOptions struct {
	Genres     []string          `json:"genres" validate:"dive,required"`
	ScoreRange ScoreRange        `json:"scoreRange" validate:"oneof=any 9+ 8-8.9 7-7.9 6-6.9 none"`
	Status     string            `json:"status" validate:"oneof=any RELEASING FINISHED NOT_YET_RELEASED CANCELLED HIATUS"`
	Sort       anilist.MediaSort `json:"sort" validate:"omitempty,oneof=POPULARITY_DESC SCORE_DESC TRENDING_DESC START_DATE_DESC FAVOURITES_DESC TITLE_ROMAJI"`
}

var validate = validator.New()

// DefaultFilters returns the filters a new session starts with.
func DefaultFilters() FilterOptions {
	return FilterOptions{
		Genres:     []string{},
		ScoreRange: ScoreAny,
		Status:     StatusAny,
		Sort:       anilist.SortPopularityDesc,
	}
}

// Normalize fills empty selectors with "any" and de-duplicates genres.
func (f FilterOptions) Normalize() FilterOptions {
	if f.ScoreRange == "" {
		f.ScoreRange = ScoreAny
	}
	if f.Status == "" {
		f.Status = StatusAny
	}
	seen := make(map[string]struct{}, len(f.Genres))
	genres := make([]string, 0, len(f.Genres))
	for _, g := range f.Genres {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		genres = append(genres, g)
	}
	f.Genres = genres
	return f
}

// Validate checks every selector against its enumeration.
func (f FilterOptions) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}
	return nil
}

// Active reports whether any narrowing filter is selected. Sort does not
// count.
func (f FilterOptions) Active() bool {
	return len(f.Genres) > 0 || f.Status != StatusAny || f.ScoreRange != ScoreAny
}

// Definition is the fetch intent of one section. Zero fields leave the
// dimension to the global state.
type Definition struct {
	ID         string                `json:"id"`
	Season     anilist.MediaSeason   `json:"season,omitempty"`
	SeasonYear int                   `json:"seasonYear,omitempty"`
	Genres     []string              `json:"genres,omitempty"`
	Formats    []anilist.MediaFormat `json:"formats,omitempty"`
	Statuses   []anilist.MediaStatus `json:"statuses,omitempty"`
	Sort       []anilist.MediaSort   `json:"sort,omitempty"`
	PerPage    int                   `json:"perPage,omitempty"`
	Search     string                `json:"search,omitempty"`

	// SearchOptIn keeps the section's own constraints while a search term
	// is active.
	SearchOptIn bool `json:"searchOptIn,omitempty"`

	// Paginated sections start with an optimistic page info.
	Paginated bool `json:"paginated,omitempty"`
}

// PageInfo is the pagination state of a section.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

func pageInfoFrom(p anilist.PageInfo) *PageInfo {
	return &PageInfo{
		Total:       p.Total,
		CurrentPage: p.CurrentPage,
		HasNextPage: p.HasNextPage,
		PerPage:     p.PerPage,
	}
}

// Item is a media record decorated for display.
type Item struct {
	anilist.Media
	IsFavorite   bool   `json:"isFavorite"`
	Cover        string `json:"coverUrl"`
	StatusLabel  string `json:"statusLabel"`
	GenreText    string `json:"genreText"`
	WeekdayText  string `json:"weekdayText"`
	ProgressText string `json:"progressText"`
	Studio       string `json:"studio,omitempty"`
}

// State is the runtime record of one section.
type State struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Definition Definition `json:"definition"`
	Items      []Item     `json:"items"`
	IsLoading  bool       `json:"isLoading"`
	Error      string     `json:"error,omitempty"`
	PageInfo   *PageInfo  `json:"pageInfo"`
}

// Session is the user-driven state of one view session.
type Session struct {
	View    View                `json:"view"`
	Search  string              `json:"search"`
	Filters FilterOptions       `json:"filters"`
	Year    int                 `json:"year"`
	Season  anilist.MediaSeason `json:"season"`
}
