// Package anilist is the cache-augmented client for the AniList GraphQL API.
package anilist

import (
	"errors"

	"github.com/goccy/go-json"
)

const (
	// DefaultURL is the public AniList GraphQL endpoint
	DefaultURL = "https://graphql.anilist.co"

	// CacheKeyPrefix namespaces response cache entries
	CacheKeyPrefix = "animekun_cache_"

	// DefaultRequestsPerMinute matches AniList's documented limit
	DefaultRequestsPerMinute = 90

	// DefaultAiringPerPage is the airing-schedule page size when none is given
	DefaultAiringPerPage = 50

	// PlaceholderCoverURL is AniList's own default cover
	PlaceholderCoverURL = "https://s4.anilist.co/file/anilistcdn/media/anime/cover/large/default.jpg"
)

// Common errors
var (
	// ErrUnknownQuery indicates a query id with no registered GraphQL document
	ErrUnknownQuery = errors.New("unknown query")
)

// MediaSeason is the remote catalog's quarter-based release period.
type MediaSeason string

const (
	SeasonWinter MediaSeason = "WINTER"
	SeasonSpring MediaSeason = "SPRING"
	SeasonSummer MediaSeason = "SUMMER"
	SeasonFall   MediaSeason = "FALL"
)

// MediaSort is a media listing sort order.
type MediaSort string

const (
	SortPopularityDesc MediaSort = "POPULARITY_DESC"
	SortScoreDesc      MediaSort = "SCORE_DESC"
	SortTrendingDesc   MediaSort = "TRENDING_DESC"
	SortStartDateDesc  MediaSort = "START_DATE_DESC"
	SortTitleRomaji    MediaSort = "TITLE_ROMAJI"
	SortFavouritesDesc MediaSort = "FAVOURITES_DESC"
)

// AiringSort is an airing-schedule sort order.
type AiringSort string

const (
	AiringSortID          AiringSort = "ID"
	AiringSortIDDesc      AiringSort = "ID_DESC"
	AiringSortMediaID     AiringSort = "MEDIA_ID"
	AiringSortMediaIDDesc AiringSort = "MEDIA_ID_DESC"
	AiringSortTime        AiringSort = "TIME"
	AiringSortTimeDesc    AiringSort = "TIME_DESC"
	AiringSortEpisode     AiringSort = "EPISODE"
	AiringSortEpisodeDesc AiringSort = "EPISODE_DESC"
)

// MediaStatus is the lifecycle status of a title.
type MediaStatus string

const (
	StatusFinished       MediaStatus = "FINISHED"
	StatusReleasing      MediaStatus = "RELEASING"
	StatusNotYetReleased MediaStatus = "NOT_YET_RELEASED"
	StatusCancelled      MediaStatus = "CANCELLED"
	StatusHiatus         MediaStatus = "HIATUS"
)

// MediaFormat is the release format of a title.
type MediaFormat string

const (
	FormatTV      MediaFormat = "TV"
	FormatTVShort MediaFormat = "TV_SHORT"
	FormatMovie   MediaFormat = "MOVIE"
	FormatSpecial MediaFormat = "SPECIAL"
	FormatOVA     MediaFormat = "OVA"
	FormatONA     MediaFormat = "ONA"
	FormatMusic   MediaFormat = "MUSIC"
)

// Title holds the localized titles of a media record.
type Title struct {
	Romaji  string `json:"romaji,omitempty"`
	English string `json:"english,omitempty"`
	Native  string `json:"native,omitempty"`
}

// CoverImage holds cover URLs at several resolutions.
type CoverImage struct {
	ExtraLarge string `json:"extraLarge,omitempty"`
	Large      string `json:"large,omitempty"`
	Medium     string `json:"medium,omitempty"`
	Color      string `json:"color,omitempty"`
}

// FuzzyDate is a partial date; any component may be absent.
type FuzzyDate struct {
	Year  *int `json:"year,omitempty"`
	Month *int `json:"month,omitempty"`
	Day   *int `json:"day,omitempty"`
}

// StudioNode identifies a studio.
type StudioNode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StudioEdge associates a studio with a title.
type StudioEdge struct {
	IsMain bool       `json:"isMain"`
	Node   StudioNode `json:"node"`
}

// Studios is the studio connection of a title.
type Studios struct {
	Edges []StudioEdge `json:"edges"`
}

// NextAiringEpisode projects the next episode of an airing title.
type NextAiringEpisode struct {
	Episode         int   `json:"episode"`
	TimeUntilAiring int64 `json:"timeUntilAiring"`
	AiringAt        int64 `json:"airingAt"`
}

// Media is one anime record as returned by the API. Treated as immutable.
type Media struct {
	ID                int                `json:"id"`
	Title             Title              `json:"title"`
	CoverImage        CoverImage         `json:"coverImage"`
	Description       string             `json:"description,omitempty"`
	Genres            []string           `json:"genres"`
	AverageScore      *int               `json:"averageScore,omitempty"`
	Status            MediaStatus        `json:"status,omitempty"`
	Episodes          *int               `json:"episodes,omitempty"`
	Format            MediaFormat        `json:"format,omitempty"`
	StartDate         *FuzzyDate         `json:"startDate,omitempty"`
	Season            MediaSeason        `json:"season,omitempty"`
	SeasonYear        *int               `json:"seasonYear,omitempty"`
	Studios           Studios            `json:"studios"`
	NextAiringEpisode *NextAiringEpisode `json:"nextAiringEpisode,omitempty"`
}

// HasScore reports whether the record has a positive average score.
func (m Media) HasScore() bool {
	return m.AverageScore != nil && *m.AverageScore != 0
}

// MainStudio returns the first studio flagged as main, if any.
func (m Media) MainStudio() (StudioNode, bool) {
	for _, e := range m.Studios.Edges {
		if e.IsMain {
			return e.Node, true
		}
	}
	return StudioNode{}, false
}

// CoverURL returns the best available cover, falling back to the placeholder.
func (m Media) CoverURL() string {
	switch {
	case m.CoverImage.ExtraLarge != "":
		return m.CoverImage.ExtraLarge
	case m.CoverImage.Large != "":
		return m.CoverImage.Large
	case m.CoverImage.Medium != "":
		return m.CoverImage.Medium
	}
	return PlaceholderCoverURL
}

// PageInfo is pagination metadata.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage,omitempty"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

// MediaPage is one page of the media listing query.
type MediaPage struct {
	PageInfo PageInfo `json:"pageInfo"`
	Media    []Media  `json:"media"`
}

// AiringScheduleEntry is one scheduled episode broadcast.
type AiringScheduleEntry struct {
	ID       int   `json:"id"`
	AiringAt int64 `json:"airingAt"`
	Episode  int   `json:"episode"`
	MediaID  int   `json:"mediaId"`
	Media    Media `json:"media"`
}

// AiringSchedulePage is one page of the airing-schedule query. Schedules is
// nil when the response carried no schedule array.
type AiringSchedulePage struct {
	PageInfo  PageInfo              `json:"pageInfo"`
	Schedules []AiringScheduleEntry `json:"airingSchedules"`
}

// GraphQLError is one entry of a GraphQL error list.
type GraphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// Response is the raw envelope of a GraphQL response.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}
