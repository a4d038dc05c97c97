package section

import (
	"fmt"
	"time"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

// Section ids.
const (
	IDSelectedPeriod = "selectedPeriod"
	IDAiringNow      = "airingNowList"
	IDTrending       = "trending"
	IDTopRated       = "topRated"
	IDTearjerkers    = "tearjerkers"
	IDComedies       = "comedies"
	IDRomance        = "romance"
	IDAction         = "action"
	IDMoviesSpecials = "moviesSpecials"
	IDMyList         = "myList"
	IDSearchResults  = "searchResults"
)

const (
	// DefaultItemsPerPage is the shared paginated-list page size
	DefaultItemsPerPage = 20

	// DefaultItemsPerSection is the carousel page size
	DefaultItemsPerSection = 15

	// AiringNowPerPage is the page size of the airing-now table
	AiringNowPerPage = 50
)

const (
	titleMyList        = "マイリスト"
	titleFallback      = "セクション"
	titleSelected      = "%d年 %s の注目アニメ"
	titleSearch        = "「%s」の検索結果"
	titleSearchFilters = " (絞り込みあり)"
)

var sectionTitles = map[string]string{
	IDTrending:       "人気急上昇中",
	IDTopRated:       "高評価アニメ",
	IDTearjerkers:    "感涙まちがいなし",
	IDComedies:       "爆笑コメディ",
	IDRomance:        "胸キュン恋愛アニメ",
	IDAction:         "熱血バトルアクション",
	IDMoviesSpecials: "劇場版・スペシャル",
	IDAiringNow:      "今期放送中のアニメ一覧",
	IDMyList:         titleMyList,
}

// Option is a value/label pair offered to clients.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var seasonOptions = []Option{
	{Value: string(anilist.SeasonWinter), Label: "冬"},
	{Value: string(anilist.SeasonSpring), Label: "春"},
	{Value: string(anilist.SeasonSummer), Label: "夏"},
	{Value: string(anilist.SeasonFall), Label: "秋"},
}

// genreLabels maps AniList genre names to display labels.
var genreLabels = map[string]string{
	"Action":        "アクション",
	"Adventure":     "冒険",
	"Comedy":        "コメディ",
	"Drama":         "ドラマ",
	"Ecchi":         "エッチ",
	"Fantasy":       "ファンタジー",
	"Horror":        "ホラー",
	"Mahou Shoujo":  "魔法少女",
	"Mecha":         "メカ",
	"Music":         "音楽",
	"Mystery":       "ミステリー",
	"Psychological": "心理",
	"Romance":       "ロマンス",
	"Sci-Fi":        "SF",
	"Slice of Life": "日常",
	"Sports":        "スポーツ",
	"Supernatural":  "超自然",
	"Thriller":      "スリラー",
	"Hentai":        "ヘンタイ",
	"Boys Love":     "ボーイズラブ",
	"Girls Love":    "ガールズラブ",
	"Award Winning": "受賞作",
	"Gourmet":       "グルメ",
	"Suspense":      "サスペンス",
}

// filterGenres are the genres offered as filter chips, in display order.
var filterGenres = []string{
	"Action", "Fantasy", "Romance", "Comedy", "Drama", "Sci-Fi",
	"Slice of Life", "Sports", "Music", "Psychological", "Supernatural", "Thriller",
	"Adventure", "Mystery", "Horror", "Mahou Shoujo", "Mecha",
}

var statusLabels = map[anilist.MediaStatus]string{
	anilist.StatusReleasing:      "放送中",
	anilist.StatusFinished:       "放送終了",
	anilist.StatusNotYetReleased: "放送予定",
	anilist.StatusCancelled:      "キャンセル",
	anilist.StatusHiatus:         "休止中",
}

var statusOrder = []anilist.MediaStatus{
	anilist.StatusReleasing,
	anilist.StatusFinished,
	anilist.StatusNotYetReleased,
	anilist.StatusCancelled,
	anilist.StatusHiatus,
}

func score(v int) *int { return &v }

// ScoreBuckets is the fixed score-range enumeration.
var ScoreBuckets = []ScoreBucket{
	{Value: ScoreAny, Label: "すべて"},
	{Value: Score9Plus, Label: "9.0以上 (神作品)", MinScore: score(90)},
	{Value: Score8, Label: "8.0-8.9 (名作)", MinScore: score(80), MaxScore: score(89)},
	{Value: Score7, Label: "7.0-7.9 (良作)", MinScore: score(70), MaxScore: score(79)},
	{Value: Score6, Label: "6.0-6.9 (普通)", MinScore: score(60), MaxScore: score(69)},
	{Value: ScoreNone, Label: "評価なし"},
}

// LookupScoreBucket returns the bucket named by r.
func LookupScoreBucket(r ScoreRange) (ScoreBucket, bool) {
	for _, b := range ScoreBuckets {
		if b.Value == r {
			return b, true
		}
	}
	return ScoreBucket{}, false
}

var sortOptions = []Option{
	{Value: string(anilist.SortPopularityDesc), Label: "人気順"},
	{Value: string(anilist.SortScoreDesc), Label: "評価順"},
	{Value: string(anilist.SortTrendingDesc), Label: "トレンド順"},
	{Value: string(anilist.SortStartDateDesc), Label: "放送日順"},
	{Value: string(anilist.SortFavouritesDesc), Label: "お気に入り数順"},
	{Value: string(anilist.SortTitleRomaji), Label: "タイトル順"},
}

// Options is the option catalogue offered to clients.
type Options struct {
	Genres      []Option      `json:"genres"`
	Statuses    []Option      `json:"statuses"`
	ScoreRanges []ScoreBucket `json:"scoreRanges"`
	Sorts       []Option      `json:"sorts"`
	Seasons     []Option      `json:"seasons"`
	Years       []int         `json:"years"`
	Current     Period        `json:"current"`
}

// Period is a season of a year.
type Period struct {
	Year   int                 `json:"year"`
	Season anilist.MediaSeason `json:"season"`
}

// CatalogOptions returns the option catalogue as of now.
func CatalogOptions(now time.Time) Options {
	genres := make([]Option, 0, len(filterGenres))
	for _, g := range filterGenres {
		genres = append(genres, Option{Value: g, Label: GenreLabel(g)})
	}

	statuses := make([]Option, 0, len(statusOrder)+1)
	statuses = append(statuses, Option{Value: StatusAny, Label: "すべて"})
	for _, s := range statusOrder {
		statuses = append(statuses, Option{Value: string(s), Label: statusLabels[s]})
	}

	return Options{
		Genres:      genres,
		Statuses:    statuses,
		ScoreRanges: ScoreBuckets,
		Sorts:       sortOptions,
		Seasons:     seasonOptions,
		Years:       YearOptions(now),
		Current:     CurrentPeriod(now),
	}
}

// CurrentPeriod derives the broadcast season from the month of now.
func CurrentPeriod(now time.Time) Period {
	var season anilist.MediaSeason
	switch m := now.Month(); {
	case m <= time.March:
		season = anilist.SeasonWinter
	case m <= time.June:
		season = anilist.SeasonSpring
	case m <= time.September:
		season = anilist.SeasonSummer
	default:
		season = anilist.SeasonFall
	}
	return Period{Year: now.Year(), Season: season}
}

// YearOptions lists selectable years, newest first: two years ahead down to
// twelve years back.
func YearOptions(now time.Time) []int {
	years := make([]int, 0, 15)
	for y := now.Year() + 2; y >= now.Year()-12; y-- {
		years = append(years, y)
	}
	return years
}

// ValidSeason reports whether s is one of the four seasons.
func ValidSeason(s anilist.MediaSeason) bool {
	for _, o := range seasonOptions {
		if o.Value == string(s) {
			return true
		}
	}
	return false
}

// SeasonLabel returns the display label of a season.
func SeasonLabel(s anilist.MediaSeason) string {
	for _, o := range seasonOptions {
		if o.Value == string(s) {
			return o.Label
		}
	}
	return ""
}

// GenreLabel returns the display label of a genre, or the genre itself.
func GenreLabel(genre string) string {
	if label, ok := genreLabels[genre]; ok {
		return label
	}
	return genre
}

// StatusLabel returns the display label of a status.
func StatusLabel(s anilist.MediaStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// HomeDefinitions returns the curated sections of the home view.
func HomeDefinitions(p Period, perSection int) []Definition {
	popular := []anilist.MediaSort{anilist.SortPopularityDesc}
	return []Definition{
		{ID: IDSelectedPeriod, Season: p.Season, SeasonYear: p.Year, Sort: popular, PerPage: perSection},
		{
			ID:         IDAiringNow,
			Season:     p.Season,
			SeasonYear: p.Year,
			Statuses:   []anilist.MediaStatus{anilist.StatusReleasing},
			Sort:       popular,
			PerPage:    AiringNowPerPage,
			Paginated:  true,
		},
		{ID: IDTrending, Sort: []anilist.MediaSort{anilist.SortTrendingDesc}, PerPage: perSection},
		{ID: IDTopRated, Sort: []anilist.MediaSort{anilist.SortScoreDesc}, PerPage: perSection},
		{ID: IDTearjerkers, Genres: []string{"Drama", "Slice of Life"}, Sort: []anilist.MediaSort{anilist.SortScoreDesc}, PerPage: perSection},
		{ID: IDComedies, Genres: []string{"Comedy"}, Sort: popular, PerPage: perSection},
		{ID: IDRomance, Genres: []string{"Romance"}, Sort: popular, PerPage: perSection},
		{ID: IDAction, Genres: []string{"Action", "Adventure"}, Sort: popular, PerPage: perSection},
		{ID: IDMoviesSpecials, Formats: []anilist.MediaFormat{anilist.FormatMovie, anilist.FormatSpecial}, Sort: popular, PerPage: perSection},
	}
}

// MyListDefinition is the single section of the favorites view.
func MyListDefinition(perPage int) Definition {
	return Definition{ID: IDMyList, PerPage: perPage, Paginated: true}
}

// SearchDefinition is the single section shown while a search term is set.
func SearchDefinition(term string, perPage int) Definition {
	return Definition{ID: IDSearchResults, Search: term, PerPage: perPage, Paginated: true}
}

// Title returns the display title of a section.
func Title(def Definition, p Period, filters FilterOptions) string {
	switch def.ID {
	case IDSelectedPeriod:
		return fmt.Sprintf(titleSelected, p.Year, SeasonLabel(p.Season))
	case IDSearchResults:
		title := fmt.Sprintf(titleSearch, def.Search)
		if filters.Active() {
			title += titleSearchFilters
		}
		return title
	}
	if title, ok := sectionTitles[def.ID]; ok {
		return title
	}
	return titleFallback
}
