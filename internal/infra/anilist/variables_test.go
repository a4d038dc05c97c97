package anilist_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func TestBuildMediaQueryVariablesOmitsUnset(t *testing.T) {
	vars := anilist.BuildMediaQueryVariables(anilist.MediaQueryParams{PerPage: 15})

	want := anilist.Variables{"page": 1, "perPage": 15}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("vars = %v, want %v", vars, want)
	}
}

func TestBuildMediaQueryVariablesAllDimensions(t *testing.T) {
	greater, lesser := anilist.ScoreBounds(intPtr(80), intPtr(89))
	vars := anilist.BuildMediaQueryVariables(anilist.MediaQueryParams{
		Page:         3,
		PerPage:      20,
		Search:       "frieren",
		IDs:          []int{1, 2},
		Season:       anilist.SeasonFall,
		SeasonYear:   2026,
		Genres:       []string{"Drama"},
		Formats:      []anilist.MediaFormat{anilist.FormatMovie},
		Statuses:     []anilist.MediaStatus{anilist.StatusReleasing},
		ScoreGreater: greater,
		ScoreLesser:  lesser,
		Sort:         []anilist.MediaSort{anilist.SortScoreDesc},
	})

	checks := map[string]any{
		"page":                 3,
		"perPage":              20,
		"search":               "frieren",
		"id_in":                []int{1, 2},
		"season":               anilist.SeasonFall,
		"seasonYear":           2026,
		"genre_in":             []string{"Drama"},
		"format_in":            []anilist.MediaFormat{anilist.FormatMovie},
		"status_in":            []anilist.MediaStatus{anilist.StatusReleasing},
		"averageScore_greater": 79,
		"averageScore_lesser":  90,
		"sort":                 []anilist.MediaSort{anilist.SortScoreDesc},
	}
	for key, want := range checks {
		if got := vars[key]; !reflect.DeepEqual(got, want) {
			t.Errorf("vars[%q] = %v, want %v", key, got, want)
		}
	}
	if len(vars) != len(checks) {
		t.Errorf("len(vars) = %d, want %d", len(vars), len(checks))
	}
}

func TestScoreBoundsOpenEnds(t *testing.T) {
	greater, lesser := anilist.ScoreBounds(intPtr(90), nil)
	if greater == nil || *greater != 89 {
		t.Errorf("greater = %v, want 89", greater)
	}
	if lesser != nil {
		t.Errorf("lesser = %v, want nil", *lesser)
	}

	greater, lesser = anilist.ScoreBounds(nil, nil)
	if greater != nil || lesser != nil {
		t.Error("expected both bounds open")
	}
}

func TestBuildAiringScheduleQueryVariablesDefaults(t *testing.T) {
	vars := anilist.BuildAiringScheduleQueryVariables(anilist.AiringQueryParams{
		AiringGreater: int64Ptr(100),
		AiringLesser:  int64Ptr(200),
	})

	if vars["perPage"] != anilist.DefaultAiringPerPage {
		t.Errorf("perPage = %v, want %d", vars["perPage"], anilist.DefaultAiringPerPage)
	}
	if !reflect.DeepEqual(vars["sort"], []anilist.AiringSort{anilist.AiringSortTime}) {
		t.Errorf("sort = %v, want [TIME]", vars["sort"])
	}
	if vars["airingAt_greater"] != int64(100) || vars["airingAt_lesser"] != int64(200) {
		t.Errorf("bounds = %v/%v", vars["airingAt_greater"], vars["airingAt_lesser"])
	}
}

func TestBuildAiringScheduleQueryVariablesWithoutBounds(t *testing.T) {
	vars := anilist.BuildAiringScheduleQueryVariables(anilist.AiringQueryParams{PerPage: 10})

	if _, ok := vars["airingAt_greater"]; ok {
		t.Error("airingAt_greater should be omitted")
	}
	if _, ok := vars["airingAt_lesser"]; ok {
		t.Error("airingAt_lesser should be omitted")
	}
	if vars["perPage"] != 10 {
		t.Errorf("perPage = %v, want 10", vars["perPage"])
	}
}

func TestCacheKeyIgnoresInsertionOrder(t *testing.T) {
	a := anilist.Variables{}
	a["page"] = 1
	a["perPage"] = 15
	a["genre_in"] = []string{"Comedy"}

	b := anilist.Variables{}
	b["genre_in"] = []string{"Comedy"}
	b["perPage"] = 15
	b["page"] = 1

	keyA, err := anilist.CacheKey(anilist.QueryAnime, a)
	if err != nil {
		t.Fatalf("CacheKey failed: %v", err)
	}
	keyB, err := anilist.CacheKey(anilist.QueryAnime, b)
	if err != nil {
		t.Fatalf("CacheKey failed: %v", err)
	}

	if keyA != keyB {
		t.Errorf("keys differ:\n%s\n%s", keyA, keyB)
	}
	if !strings.HasPrefix(keyA, anilist.CacheKeyPrefix+anilist.QueryAnime+"_") {
		t.Errorf("key %q lacks namespace prefix", keyA)
	}
	want := anilist.CacheKeyPrefix + `anime_{"genre_in":["Comedy"],"page":1,"perPage":15}`
	if keyA != want {
		t.Errorf("key = %q, want %q", keyA, want)
	}
}

func TestCacheKeyDistinguishesQueries(t *testing.T) {
	vars := anilist.Variables{"page": 1}
	a, _ := anilist.CacheKey(anilist.QueryAnime, vars)
	b, _ := anilist.CacheKey(anilist.QueryAiringSchedule, vars)
	if a == b {
		t.Error("different queries produced the same key")
	}
}
