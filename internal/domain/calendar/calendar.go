// Package calendar loads the airing schedule of the current week and
// buckets it by local calendar day.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/metrics"
)

const (
	// DefaultPerPage is the airing-schedule page size
	DefaultPerPage = 50

	// DefaultMaxPages caps the pages requested per load
	DefaultMaxPages = 3

	// Title is the heading of the weekly calendar
	Title = "今週の放送カレンダー"
)

var (
	shortDayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}
	dayNames      = [...]string{"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日"}
)

// Fetcher runs the airing-schedule query. *anilist.Client satisfies it.
type Fetcher interface {
	FetchAiringSchedule(ctx context.Context, p anilist.AiringQueryParams) (*anilist.AiringSchedulePage, error)
}

// Config holds loader settings.
type Config struct {
	Location *time.Location
	PerPage  int
	MaxPages int
	Now      func() time.Time
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the epoch second ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start.Unix() && ts <= w.End.Unix()
}

// WeekWindow returns Monday 00:00:00 through Sunday 23:59:59 of the week
// containing now, in now's location.
func WeekWindow(now time.Time) Window {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	sunday := time.Date(y, m, d-offset+6, 23, 59, 59, 0, now.Location())
	return Window{Start: monday, End: sunday}
}

// Entry is one scheduled broadcast with its local airing time.
type Entry struct {
	anilist.AiringScheduleEntry
	AiringTime string `json:"airingTime"`
	CoverURL   string `json:"coverUrl"`
}

// Day holds the broadcasts of one local calendar day.
type Day struct {
	Date     string  `json:"date"`
	Label    string  `json:"label"`
	FullName string  `json:"fullName"`
	Entries  []Entry `json:"entries"`
}

// Week is the bucketed schedule, Monday first.
type Week struct {
	Title string `json:"title"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Days  []Day  `json:"days"`
	Total int    `json:"total"`
}

// Service loads weekly calendars.
type Service struct {
	fetcher Fetcher
	cfg     Config
}

// NewService creates a calendar loader.
func NewService(fetcher Fetcher, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{fetcher: fetcher, cfg: cfg}
}

// Load fetches the current week. Any page error aborts the load and
// discards the pages already fetched.
func (s *Service) Load(ctx context.Context) (*Week, error) {
	window := WeekWindow(s.cfg.Now().In(s.cfg.Location))

	// The API bounds are exclusive.
	greater := window.Start.Unix() - 1
	lesser := window.End.Unix() + 1

	var entries []anilist.AiringScheduleEntry
	for page := 1; page <= s.cfg.MaxPages; page++ {
		result, err := s.fetcher.FetchAiringSchedule(ctx, anilist.AiringQueryParams{
			Page:          page,
			PerPage:       s.cfg.PerPage,
			AiringGreater: &greater,
			AiringLesser:  &lesser,
			Sort:          []anilist.AiringSort{anilist.AiringSortTime},
		})
		if err != nil {
			metrics.CalendarLoads.WithLabelValues("error").Inc()
			log.Warn().Err(err).Int("page", page).Msg("Calendar load failed")
			return nil, fmt.Errorf("airing schedule page %d: %w", page, err)
		}
		if result.Schedules == nil {
			break
		}
		entries = append(entries, result.Schedules...)
		if !result.PageInfo.HasNextPage {
			break
		}
	}

	week := Bucket(window, entries)
	metrics.CalendarLoads.WithLabelValues("ok").Inc()
	log.Debug().
		Int("entries", week.Total).
		Time("start", window.Start).
		Msg("Calendar loaded")
	return week, nil
}

// Bucket groups entries into the seven days of window by local date and
// sorts each day by airing time. Entries outside the window are dropped.
func Bucket(window Window, entries []anilist.AiringScheduleEntry) *Week {
	loc := window.Start.Location()
	week := &Week{
		Title: Title,
		Start: window.Start.Unix(),
		End:   window.End.Unix(),
		Days:  make([]Day, 7),
	}

	y, m, d := window.Start.Date()
	for i := range week.Days {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		week.Days[i] = Day{
			Date:     day.Format("2006-01-02"),
			Label:    fmt.Sprintf("%s (%d/%d)", shortDayNames[day.Weekday()], int(day.Month()), day.Day()),
			FullName: dayNames[day.Weekday()],
			Entries:  []Entry{},
		}
	}

	for _, e := range entries {
		if !window.Contains(e.AiringAt) {
			continue
		}
		at := time.Unix(e.AiringAt, 0).In(loc)
		idx := (int(at.Weekday()) + 6) % 7
		week.Days[idx].Entries = append(week.Days[idx].Entries, Entry{
			AiringScheduleEntry: e,
			AiringTime:          at.Format("15:04"),
			CoverURL:            e.Media.CoverURL(),
		})
		week.Total++
	}

	for i := range week.Days {
		entries := week.Days[i].Entries
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].AiringAt < entries[b].AiringAt
		})
	}
	return week
}
