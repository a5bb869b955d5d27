package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
)

// TokenParam はバックエンドに共有シークレットを渡すクエリパラメータ名。
const TokenParam = "token"

// headerKeyRequestID はリクエストIDを伝播するためのHTTPヘッダーキー。
const headerKeyRequestID = "X-Request-ID"

// ErrInvalidJSON はバックエンドのレスポンスがJSONでないことを表す。
var ErrInvalidJSON = errors.New("バックエンドのレスポンスがJSONではありません")

// Client はバックエンド呼び出し用のHTTPクライアント。
// 生成後は読み取り専用のため、複数のgoroutineから同時に使用できる。
type Client struct {
	// rest は内部で使用するrestyクライアント。
	rest *resty.Client
	// baseURL は転送先バックエンドのURL。
	baseURL *url.URL
	// token はすべてのリクエストに付与する共有シークレット。
	token string
}

// New は新しいバックエンドクライアントを生成する。
// timeoutはバックエンド呼び出し1回あたりの上限時間で、0以下の場合は30秒とする。
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("バックエンドURLの解析に失敗: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rest:    resty.New().SetTimeout(timeout),
		baseURL: u,
		token:   token,
	}, nil
}

// Timeout はバックエンド呼び出しのタイムアウトを返す。
func (c *Client) Timeout() time.Duration {
	return c.rest.GetClient().Timeout
}

// GetJSON は呼び出し元のクエリパラメータにtokenを付与してGETリクエストを送信する。
// レスポンスボディがJSONであればそのまま返す。
func (c *Client) GetJSON(ctx context.Context, query url.Values) (json.RawMessage, error) {
	req := c.newRequest(ctx).SetHeader("Accept", "application/json")
	return c.do(req, resty.MethodGet, c.URL(query))
}

// PostJSON はJSONボディをそのままPOSTする。tokenはクエリパラメータにのみ付与する。
// bodyが空の場合は空オブジェクトを送信する。
func (c *Client) PostJSON(ctx context.Context, body []byte) (json.RawMessage, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}
	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body)
	return c.do(req, resty.MethodPost, c.URL(nil))
}

// URL は転送先URLを組み立てる。
// バックエンドURL自身のクエリ、呼び出し元のクエリの順に結合し、
// 最後にtokenを設定する。呼び出し元が指定したtokenはすべて上書きされる。
func (c *Client) URL(query url.Values) string {
	merged := c.baseURL.Query()
	for k, vs := range query {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	merged.Del(TokenParam)
	merged.Set(TokenParam, c.token)

	u := *c.baseURL
	u.RawQuery = merged.Encode()
	return u.String()
}

// newRequest はコンテキストとリクエストIDを設定したリクエストを生成する。
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	req := c.rest.R().SetContext(ctx)
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok && id != "" {
		req.SetHeader(headerKeyRequestID, id)
	}
	return req
}

// do はリクエストを実行し、JSONレスポンスを検証する共通処理。
// バックエンドのステータスコードは問わず、ボディがJSONであれば成功とする。
func (c *Client) do(req *resty.Request, method, target string) (json.RawMessage, error) {
	resp, err := req.Execute(method, target)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", &redactedError{err: err, msg: c.redact(err.Error())})
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: status=%d", ErrInvalidJSON, resp.StatusCode())
	}
	return json.RawMessage(body), nil
}

// tokenPairPattern は転送先URL中のtokenクエリパラメータに一致する。
var tokenPairPattern = regexp.MustCompile(`([?&])` + TokenParam + `=[^&"'\s]*`)

// redact はエラーメッセージ中のtokenクエリパラメータの値を伏せ字にする。
// net/httpのエラーには転送先URLがそのまま含まれる。対象はtoken=の組だけ。
func (c *Client) redact(msg string) string {
	return tokenPairPattern.ReplaceAllString(msg, "${1}"+TokenParam+"=REDACTED")
}

// redactedError はシークレットを伏せ字にしたメッセージを持つエラー。
// errors.Is/Asのために元のエラーを保持する。
type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// バックエンド呼び出し時にX-Request-IDヘッダーとして伝播される。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
