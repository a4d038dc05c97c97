package anilist

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Variables is a GraphQL variable map. Only set keys constrain the query.
type Variables map[string]any

// MediaQueryParams are the typed inputs of the media listing query. Zero
// values mean "no constraint". Score bounds use the API's exclusive
// convention: ScoreGreater 79 means "score >= 80".
type MediaQueryParams struct {
	Page         int
	PerPage      int
	Search       string
	IDs          []int
	Season       MediaSeason
	SeasonYear   int
	Genres       []string
	Formats      []MediaFormat
	Statuses     []MediaStatus
	ScoreGreater *int
	ScoreLesser  *int
	Sort         []MediaSort

	// NoScoreOnly keeps only records without a positive average score after
	// the response arrives; the API cannot express it as a predicate.
	NoScoreOnly bool
}

// AiringQueryParams are the typed inputs of the airing-schedule query.
// AiringGreater and AiringLesser are exclusive epoch-second bounds.
type AiringQueryParams struct {
	Page          int
	PerPage       int
	AiringGreater *int64
	AiringLesser  *int64
	Sort          []AiringSort
}

// BuildMediaQueryVariables assembles the media query variables, omitting
// every dimension left unset.
func BuildMediaQueryVariables(p MediaQueryParams) Variables {
	page := p.Page
	if page < 1 {
		page = 1
	}
	vars := Variables{
		"page":    page,
		"perPage": p.PerPage,
	}
	if len(p.Sort) > 0 {
		vars["sort"] = p.Sort
	}
	if p.Search != "" {
		vars["search"] = p.Search
	}
	if len(p.IDs) > 0 {
		vars["id_in"] = p.IDs
	}
	if p.Season != "" {
		vars["season"] = p.Season
	}
	if p.SeasonYear != 0 {
		vars["seasonYear"] = p.SeasonYear
	}
	if len(p.Genres) > 0 {
		vars["genre_in"] = p.Genres
	}
	if len(p.Formats) > 0 {
		vars["format_in"] = p.Formats
	}
	if len(p.Statuses) > 0 {
		vars["status_in"] = p.Statuses
	}
	if p.ScoreGreater != nil {
		vars["averageScore_greater"] = *p.ScoreGreater
	}
	if p.ScoreLesser != nil {
		vars["averageScore_lesser"] = *p.ScoreLesser
	}
	return vars
}

// BuildAiringScheduleQueryVariables assembles the airing-schedule variables.
// Sort defaults to ascending airing time and perPage to 50.
func BuildAiringScheduleQueryVariables(p AiringQueryParams) Variables {
	page := p.Page
	if page < 1 {
		page = 1
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultAiringPerPage
	}
	sortOrder := p.Sort
	if len(sortOrder) == 0 {
		sortOrder = []AiringSort{AiringSortTime}
	}

	vars := Variables{
		"page":    page,
		"perPage": perPage,
		"sort":    sortOrder,
	}
	if p.AiringGreater != nil {
		vars["airingAt_greater"] = *p.AiringGreater
	}
	if p.AiringLesser != nil {
		vars["airingAt_lesser"] = *p.AiringLesser
	}

	if p.AiringGreater == nil || p.AiringLesser == nil {
		log.Warn().
			Bool("has_greater", p.AiringGreater != nil).
			Bool("has_lesser", p.AiringLesser != nil).
			Msg("Airing schedule requested without a full time window")
	}
	return vars
}

// CacheKey derives the deterministic cache key for a query. Variable keys
// are serialized in lexicographic order, so two maps with the same contents
// always produce the same key.
func CacheKey(queryID string, vars Variables) (string, error) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(CacheKeyPrefix)
	buf.WriteString(queryID)
	buf.WriteByte('_')
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		value, err := json.Marshal(vars[k])
		if err != nil {
			return "", err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}
