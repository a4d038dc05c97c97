package anilist

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Kind classifies a failed query. Every failure maps to exactly one kind.
type Kind string

const (
	KindTransport   Kind = "transport"    // request never got an HTTP response
	KindRateLimited Kind = "rate_limited" // 429 or GraphQL "too many requests"
	KindServer      Kind = "server"       // 5xx, or the client is shedding load
	KindClient      Kind = "client"       // other non-2xx
	KindGraphQL     Kind = "graphql"      // 2xx carrying an error list
	KindMalformed   Kind = "malformed"    // 2xx with an unexpected body
)

// User-facing messages. The UI is Japanese.
const (
	MsgNetwork = "ネットワーク接続に問題があるか、ブラウザのセキュリティポリシー (CORS等) によりリクエストがブロックされた可能性があります。" +
		"お使いのネットワーク環境を確認し、ブラウザの開発者コンソールで詳細なエラーを確認してください。" +
		"ローカルファイル (file://) からアクセスしている場合、Webサーバー経由でのアクセスをお試しください。"
	MsgRateLimited = "リクエストが多すぎます。しばらく時間を空けてから再度お試しください。"
	MsgMalformed   = "APIからの応答が不正です。"
	MsgUnavailable = "AniList APIへの接続が一時的に停止されています。しばらくしてからもう一度お試しください。"
	MsgUnknown     = "GraphQLデータの取得中に不明なエラーが発生しました。"

	msgServer       = "サーバー側で一時的な問題が発生しているようです (エラーコード: %d)。お手数ですが、しばらくしてからもう一度お試しください。"
	msgServerDetail = "サーバーエラー (コード: %d): %s。しばらくしてから再試行してください。"
	msgClient       = "リクエスト処理中にエラーが発生しました (コード: %d, 詳細: %s)。入力内容や権限を確認してください。"
	msgClientNoText = "不明なクライアントエラー"
	msgGraphQL      = "API処理エラー: %s。"
)

// QueryError is the uniform error shape of a failed query.
type QueryError struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for transport failures
	Message string // localized, ready for display
	Detail  string // raw diagnostic for logs
	Err     error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// classifyTransport wraps a failure to obtain any HTTP response.
func classifyTransport(err error) *QueryError {
	return &QueryError{
		Kind:    KindTransport,
		Message: MsgNetwork,
		Detail:  err.Error(),
		Err:     err,
	}
}

// classifyStatus maps a non-2xx HTTP response to a QueryError. body is the
// raw response body, statusText the reason phrase.
func classifyStatus(status int, statusText string, body []byte) *QueryError {
	serverMessages := joinedErrorMessages(body)

	qe := &QueryError{Status: status, Detail: string(body)}
	switch {
	case status == http.StatusTooManyRequests:
		qe.Kind = KindRateLimited
		qe.Message = MsgRateLimited
	case status >= 500 && status < 600:
		qe.Kind = KindServer
		qe.Message = fmt.Sprintf(msgServer, status)
		if serverMessages != "" && strings.ToLower(strings.TrimSpace(serverMessages)) != "internal server error" {
			qe.Message = fmt.Sprintf(msgServerDetail, status, serverMessages)
		}
	default:
		qe.Kind = KindClient
		detail := statusText
		if serverMessages != "" {
			detail = serverMessages
		}
		if detail == "" {
			detail = msgClientNoText
		}
		qe.Message = fmt.Sprintf(msgClient, status, detail)
	}
	return qe
}

// classifyGraphQL maps a 2xx response carrying an error list.
func classifyGraphQL(errs []GraphQLError) *QueryError {
	joined := joinMessages(errs)
	qe := &QueryError{Kind: KindGraphQL, Status: http.StatusOK, Detail: joined}
	if strings.Contains(strings.ToLower(joined), "too many requests") {
		qe.Kind = KindRateLimited
		qe.Message = MsgRateLimited
		return qe
	}
	if strings.Trim(joined, ", ") == "" {
		qe.Message = MsgUnknown
		return qe
	}
	qe.Message = fmt.Sprintf(msgGraphQL, joined)
	return qe
}

func classifyMalformed(err error) *QueryError {
	return &QueryError{Kind: KindMalformed, Status: http.StatusOK, Message: MsgMalformed, Detail: err.Error(), Err: err}
}

// joinedErrorMessages extracts the GraphQL error list from a body, if any.
func joinedErrorMessages(body []byte) string {
	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return joinMessages(envelope.Errors)
}

func joinMessages(errs []GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, ", ")
}
