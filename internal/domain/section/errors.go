package section

import (
	"errors"
	"strings"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
)

// MsgUnexpected is shown when an error carries no usable text.
const MsgUnexpected = "データの読み込み中に予期せぬエラーが発生しました。"

// NormalizeError turns any raw failure into display text. Classification
// belongs to the query client; this only formats.
func NormalizeError(raw any) string {
	switch v := raw.(type) {
	case nil:
		return MsgUnexpected
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case error:
		var qe *anilist.QueryError
		if errors.As(v, &qe) && qe.Message != "" {
			return qe.Message
		}
		if msg := v.Error(); strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return MsgUnexpected
}
