package anilist

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

type mediaPageData struct {
	Page *MediaPage `json:"Page"`
}

type airingPageData struct {
	Page *AiringSchedulePage `json:"Page"`
}

// FetchMedia runs the media listing query. With NoScoreOnly set, scored
// records are dropped from the page; page info is kept as returned.
func (c *Client) FetchMedia(ctx context.Context, p MediaQueryParams) (*MediaPage, error) {
	resp, err := c.Execute(ctx, QueryAnime, BuildMediaQueryVariables(p))
	if err != nil {
		return nil, err
	}

	var data mediaPageData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.Page == nil {
		return nil, classifyMalformed(errors.New("response has no Page"))
	}

	page := data.Page
	if page.Media == nil {
		page.Media = []Media{}
	}
	if p.NoScoreOnly {
		kept := make([]Media, 0, len(page.Media))
		for _, m := range page.Media {
			if !m.HasScore() {
				kept = append(kept, m)
			}
		}
		page.Media = kept
	}
	return page, nil
}

// FetchAiringSchedule runs the airing-schedule query. A page without a
// schedule array comes back with nil Schedules.
func (c *Client) FetchAiringSchedule(ctx context.Context, p AiringQueryParams) (*AiringSchedulePage, error) {
	resp, err := c.Execute(ctx, QueryAiringSchedule, BuildAiringScheduleQueryVariables(p))
	if err != nil {
		return nil, err
	}

	var data airingPageData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.Page == nil {
		return &AiringSchedulePage{}, nil
	}
	return data.Page, nil
}

func decodeData(resp *Response, v any) error {
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return classifyMalformed(errors.New("response has no data"))
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return classifyMalformed(err)
	}
	return nil
}

// ScoreBounds converts an inclusive score range to the API's exclusive
// bounds. A nil end leaves that side open.
func ScoreBounds(minInclusive, maxInclusive *int) (greater, lesser *int) {
	if minInclusive != nil {
		g := *minInclusive - 1
		greater = &g
	}
	if maxInclusive != nil {
		l := *maxInclusive + 1
		lesser = &l
	}
	return greater, lesser
}
