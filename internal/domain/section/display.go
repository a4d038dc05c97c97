package section

import (
	"fmt"
	"strings"
	"time"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayText returns the broadcast weekday derived from the start date,
// e.g. "火曜", or "未定" when the date is incomplete.
func WeekdayText(m anilist.Media) string {
	d := m.StartDate
	if d == nil || d.Year == nil || d.Month == nil || d.Day == nil {
		return "未定"
	}
	if *d.Month < 1 || *d.Month > 12 || *d.Day < 1 || *d.Day > 31 {
		return "未定"
	}
	date := time.Date(*d.Year, time.Month(*d.Month), *d.Day, 0, 0, 0, 0, time.UTC)
	return weekdays[date.Weekday()] + "曜"
}

// ProgressText describes how far a title has aired, e.g. "第3話放送 / 全12話".
func ProgressText(m anilist.Media) string {
	switch m.Format {
	case anilist.FormatMovie:
		return "劇場版"
	case anilist.FormatSpecial:
		return "スペシャル"
	case anilist.FormatMusic:
		return "ミュージックビデオ"
	case anilist.FormatOVA, anilist.FormatONA:
		if m.Episodes != nil && *m.Episodes == 1 {
			return "単発作品"
		}
		var parts []string
		if m.Status == anilist.StatusReleasing {
			parts = append(parts, "配信中")
		}
		if m.Episodes != nil && *m.Episodes > 0 {
			parts = append(parts, fmt.Sprintf("全%d話", *m.Episodes))
		}
		if len(parts) == 0 {
			return "配信作品"
		}
		return strings.Join(parts, " / ")
	}

	var text string
	switch {
	case m.Status == anilist.StatusReleasing && m.NextAiringEpisode != nil:
		if m.NextAiringEpisode.Episode > 1 {
			text = fmt.Sprintf("第%d話放送", m.NextAiringEpisode.Episode-1)
		} else {
			text = "放送開始"
		}
	case m.Status == anilist.StatusReleasing:
		text = "放送中"
	case m.Status != "":
		text = StatusLabel(m.Status)
	default:
		text = "ステータス不明"
	}

	if m.Episodes != nil && *m.Episodes > 0 {
		text += fmt.Sprintf(" / 全%d話", *m.Episodes)
	} else if m.Format == anilist.FormatTVShort {
		text += " (ショート)"
	}
	return text
}

// GenreText lists up to three genre labels.
func GenreText(m anilist.Media) string {
	if len(m.Genres) == 0 {
		return "ジャンルなし"
	}
	n := len(m.Genres)
	if n > 3 {
		n = 3
	}
	labels := make([]string, 0, n)
	for _, g := range m.Genres[:n] {
		labels = append(labels, GenreLabel(g))
	}
	text := strings.Join(labels, ", ")
	if len(m.Genres) > 3 {
		text += "..."
	}
	return text
}

// Decorate wraps a media record with its display fields.
func Decorate(m anilist.Media, favorite bool) Item {
	status := ""
	if m.Status != "" {
		status = StatusLabel(m.Status)
	}
	item := Item{
		Media:        m,
		IsFavorite:   favorite,
		Cover:        m.CoverURL(),
		StatusLabel:  status,
		GenreText:    GenreText(m),
		WeekdayText:  WeekdayText(m),
		ProgressText: ProgressText(m),
	}
	if studio, ok := m.MainStudio(); ok {
		item.Studio = studio.Name
	}
	return item
}
