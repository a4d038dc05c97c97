package socketio

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
)

var (
	// ErrMissingArgument is reported when an event arrives without its payload.
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidArgument is reported when a payload value is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
)

// SectionsPayload is pushed with pushSections.
type SectionsPayload struct {
	Session  section.Session `json:"session"`
	Sections []section.State `json:"sections"`
}

// FavoritesPayload is pushed with pushFavorites.
type FavoritesPayload struct {
	IDs []int `json:"ids"`
}

// CalendarPayload is pushed with pushCalendar. Week is nil while loading
// and after a failure.
type CalendarPayload struct {
	Week      *calendar.Week `json:"week"`
	IsLoading bool           `json:"isLoading"`
	Error     string         `json:"error,omitempty"`
}

// ErrorPayload is pushed with pushError when an event cannot be served.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// decodeArg re-encodes the first event argument into dst. Fields absent
// from the payload keep the values already in dst.
func decodeArg(args []any, dst any) error {
	if len(args) == 0 || args[0] == nil {
		return ErrMissingArgument
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return fmt.Errorf("encode argument: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode argument: %w", err)
	}
	return nil
}

// stringArg accepts either a bare string or an object carrying key.
func stringArg(args []any, key string) (string, error) {
	if len(args) == 0 {
		return "", ErrMissingArgument
	}
	switch v := args[0].(type) {
	case string:
		return v, nil
	case map[string]any:
		if s, ok := v[key].(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
}

// intArg accepts either a bare number or an object carrying key.
func intArg(args []any, key string) (int, error) {
	if len(args) == 0 {
		return 0, ErrMissingArgument
	}
	v := args[0]
	if m, ok := v.(map[string]any); ok {
		v = m[key]
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrInvalidArgument, key)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingArgument, key)
}

// mediaIDArg extracts a positive media id.
func mediaIDArg(args []any) (int, error) {
	id, err := intArg(args, "id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: media id %d", ErrInvalidArgument, id)
	}
	return id, nil
}
