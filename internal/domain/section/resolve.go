package section

import (
	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

// ResolveInput is everything that decides the query of one section load.
type ResolveInput struct {
	Definition  Definition
	Filters     FilterOptions
	Search      string
	Period      Period
	Favorites   bool
	FavoriteIDs []int
	Page        int

	// ItemsPerPage is the shared paginated-list size; ItemsPerSection the
	// fallback for definitions without a page size.
	ItemsPerPage    int
	ItemsPerSection int
}

// Resolution is the outcome of Resolve. When Empty is set no query is
// needed and PageInfo describes the empty result.
type Resolution struct {
	Params   anilist.MediaQueryParams
	Empty    bool
	PageInfo PageInfo
}

// Resolve turns a section definition plus the global session state into
// query parameters. It never fails; invalid favorite ids are skipped.
func Resolve(in ResolveInput) Resolution {
	perPage := effectivePerPage(in)
	page := in.Page
	if page < 1 {
		page = 1
	}
	p := anilist.MediaQueryParams{Page: page, PerPage: perPage}

	if in.Favorites {
		ids := make([]int, 0, len(in.FavoriteIDs))
		for _, id := range in.FavoriteIDs {
			if id > 0 {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return Resolution{
				Empty:    true,
				PageInfo: PageInfo{Total: 0, CurrentPage: 1, HasNextPage: false, PerPage: perPage},
			}
		}
		// Identity-addressed: every content filter and the sort stay unset.
		p.IDs = ids
		return Resolution{Params: p}
	}

	if in.Search != "" {
		p.Search = in.Search
		if len(in.Filters.Genres) > 0 {
			p.Genres = in.Filters.Genres
		}
		if in.Definition.SearchOptIn {
			p.Season = in.Definition.Season
			p.SeasonYear = in.Definition.SeasonYear
			applySectionConstraints(&p, in.Definition)
		}
	} else {
		p.Season = in.Definition.Season
		if p.Season == "" {
			p.Season = in.Period.Season
		}
		p.SeasonYear = in.Definition.SeasonYear
		if p.SeasonYear == 0 {
			p.SeasonYear = in.Period.Year
		}
		applySectionConstraints(&p, in.Definition)
	}

	if len(p.Statuses) == 0 && in.Filters.Status != "" && in.Filters.Status != StatusAny {
		p.Statuses = []anilist.MediaStatus{anilist.MediaStatus(in.Filters.Status)}
	}

	switch in.Filters.ScoreRange {
	case ScoreNone:
		p.NoScoreOnly = true
	case ScoreAny, "":
	default:
		if bucket, ok := LookupScoreBucket(in.Filters.ScoreRange); ok {
			p.ScoreGreater, p.ScoreLesser = bucket.Bounds()
		}
	}

	if in.Search == "" && len(p.Genres) == 0 && len(in.Filters.Genres) > 0 {
		p.Genres = in.Filters.Genres
	}

	switch {
	case len(in.Definition.Sort) > 0:
		p.Sort = in.Definition.Sort[:1]
	case in.Filters.Sort != "":
		p.Sort = []anilist.MediaSort{in.Filters.Sort}
	}

	return Resolution{Params: p}
}

func applySectionConstraints(p *anilist.MediaQueryParams, def Definition) {
	if len(def.Genres) > 0 {
		p.Genres = def.Genres
	}
	if len(def.Formats) > 0 {
		p.Formats = def.Formats
	}
	if len(def.Statuses) > 0 {
		p.Statuses = def.Statuses
	}
}

func effectivePerPage(in ResolveInput) int {
	shared := in.ItemsPerPage
	if shared <= 0 {
		shared = DefaultItemsPerPage
	}
	if in.Favorites || in.Definition.ID == IDMyList || in.Definition.ID == IDSearchResults {
		return shared
	}
	if in.Definition.PerPage > 0 {
		return in.Definition.PerPage
	}
	if in.ItemsPerSection > 0 {
		return in.ItemsPerSection
	}
	return DefaultItemsPerSection
}
