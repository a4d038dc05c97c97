package socketio

import (
	"errors"
	"testing"

	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

func TestDecodeArgMergesPartialFilters(t *testing.T) {
	filters := section.DefaultFilters()
	args := []any{map[string]any{
		"genres":     []any{"Comedy", "Romance"},
		"scoreRange": "8-8.9",
	}}

	if err := decodeArg(args, &filters); err != nil {
		t.Fatalf("decodeArg: %v", err)
	}
	if len(filters.Genres) != 2 || filters.Genres[1] != "Romance" {
		t.Errorf("genres = %v", filters.Genres)
	}
	if filters.ScoreRange != section.ScoreRange("8-8.9") {
		t.Errorf("scoreRange = %q", filters.ScoreRange)
	}
	if filters.Status != section.StatusAny || filters.Sort != anilist.SortPopularityDesc {
		t.Errorf("untouched fields changed: %+v", filters)
	}
}

func TestDecodeArgMissing(t *testing.T) {
	var p section.Period
	if err := decodeArg(nil, &p); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("err = %v, want ErrMissingArgument", err)
	}
	if err := decodeArg([]any{nil}, &p); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("err = %v, want ErrMissingArgument", err)
	}
}

func TestStringArg(t *testing.T) {
	if got, err := stringArg([]any{"myList"}, "view"); err != nil || got != "myList" {
		t.Errorf("bare string: %q, %v", got, err)
	}
	if got, err := stringArg([]any{map[string]any{"term": "frieren"}}, "term"); err != nil || got != "frieren" {
		t.Errorf("object: %q, %v", got, err)
	}
	if _, err := stringArg([]any{map[string]any{"other": "x"}}, "term"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("missing key: err = %v", err)
	}
	if _, err := stringArg(nil, "term"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("no args: err = %v", err)
	}
}

func TestIntArg(t *testing.T) {
	if got, err := intArg([]any{float64(21)}, "id"); err != nil || got != 21 {
		t.Errorf("bare number: %d, %v", got, err)
	}
	if got, err := intArg([]any{map[string]any{"id": float64(1535)}}, "id"); err != nil || got != 1535 {
		t.Errorf("object: %d, %v", got, err)
	}
	if _, err := intArg([]any{"21"}, "id"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("string id: err = %v", err)
	}
	if _, err := intArg([]any{float64(1.9)}, "id"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("fractional id: err = %v", err)
	}
}

func TestMediaIDArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		want    int
		wantErr error
	}{
		{"positive", []any{map[string]any{"id": float64(21)}}, 21, nil},
		{"zero", []any{float64(0)}, 0, ErrInvalidArgument},
		{"negative", []any{map[string]any{"id": float64(-4)}}, 0, ErrInvalidArgument},
		{"fraction", []any{float64(1.9)}, 0, ErrInvalidArgument},
		{"missing", nil, 0, ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mediaIDArg(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("mediaIDArg = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestCORSOrigin(t *testing.T) {
	if got := corsOrigin(nil); got != "*" {
		t.Errorf("nil origins = %v, want *", got)
	}
	if got := corsOrigin([]string{"https://a.example", "*"}); got != "*" {
		t.Errorf("wildcard origins = %v, want *", got)
	}
	if got := corsOrigin([]string{"https://a.example"}); got != "https://a.example" {
		t.Errorf("single origin = %v", got)
	}
	list, ok := corsOrigin([]string{"https://a.example", "https://b.example"}).([]any)
	if !ok || len(list) != 2 {
		t.Errorf("multiple origins = %v", list)
	}
}
