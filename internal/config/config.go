package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// 環境変数のキー。
const (
	EnvPort           = "PORT"
	EnvBackendURL     = "GAS_WEBAPP_URL"
	EnvSecretToken    = "SECRET_TOKEN"
	EnvAllowedPINs    = "ALLOWED_PINS"
	EnvProxyTimeout   = "PROXY_TIMEOUT"
	EnvAllowedOrigins = "CORS_ALLOWED_ORIGINS"
)

// デフォルト値。
const (
	DefaultPort    = "3000"
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrMissingBackendURL はGAS_WEBAPP_URLが未設定であることを表す。
	ErrMissingBackendURL = errors.New("GAS_WEBAPP_URLが設定されていません")
	// ErrMissingSecretToken はSECRET_TOKENが未設定であることを表す。
	ErrMissingSecretToken = errors.New("SECRET_TOKENが設定されていません")
	// ErrInvalidBackendURL はGAS_WEBAPP_URLが絶対URLでないことを表す。
	ErrInvalidBackendURL = errors.New("GAS_WEBAPP_URLが不正です")
	// ErrInvalidPort はPORTが不正であることを表す。
	ErrInvalidPort = errors.New("PORTが不正です")
	// ErrInvalidTimeout はPROXY_TIMEOUTが不正であることを表す。
	ErrInvalidTimeout = errors.New("PROXY_TIMEOUTが不正です")
)

// Config はゲートウェイの設定。起動時に一度だけ生成され、以降は変更されない。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// BackendURL は転送先バックエンド（GAS Webアプリ）のURL。
	BackendURL string
	// SecretToken はバックエンドへの転送時に付与する共有シークレット。
	SecretToken string
	// Timeout はバックエンド呼び出し1回あたりの上限時間。
	Timeout time.Duration
	// AllowedOrigins はCORSで許可するオリジン。"*" は全オリジンを許可する。
	AllowedOrigins []string
	// allowedPINs はPOST転送を許可するPINの集合。空の場合PIN検証は無効。
	allowedPINs map[string]struct{}
}

// Load は環境変数から設定を読み込む。
// getenvにはos.Getenvを渡す。テストでは任意の関数を差し込める。
func Load(getenv func(string) string) (*Config, error) {
	backendURL := strings.TrimSpace(getenv(EnvBackendURL))
	if backendURL == "" {
		return nil, ErrMissingBackendURL
	}
	secret := strings.TrimSpace(getenv(EnvSecretToken))
	if secret == "" {
		return nil, ErrMissingSecretToken
	}

	u, err := url.Parse(backendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackendURL, backendURL)
	}

	port, err := parsePort(getenvOr(getenv, EnvPort, DefaultPort))
	if err != nil {
		return nil, err
	}

	timeout, err := parseTimeout(getenv(EnvProxyTimeout))
	if err != nil {
		return nil, err
	}

	origins := splitList(getenv(EnvAllowedOrigins))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	pins := make(map[string]struct{})
	for _, p := range splitList(getenv(EnvAllowedPINs)) {
		pins[p] = struct{}{}
	}

	return &Config{
		Port:           port,
		BackendURL:     backendURL,
		SecretToken:    secret,
		Timeout:        timeout,
		AllowedOrigins: origins,
		allowedPINs:    pins,
	}, nil
}

// PINRequired はPIN検証が有効かどうかを返す。
// ALLOWED_PINSに1件以上のPINが設定されている場合に有効となる。
func (c *Config) PINRequired() bool {
	return len(c.allowedPINs) > 0
}

// IsAllowedPIN は指定されたPINが許可リストに含まれるかを返す。
func (c *Config) IsAllowedPIN(pin string) bool {
	if pin == "" {
		return false
	}
	_, ok := c.allowedPINs[pin]
	return ok
}

// AllowedPINs は許可リストのコピーを昇順で返す。
func (c *Config) AllowedPINs() []string {
	pins := make([]string, 0, len(c.allowedPINs))
	for p := range c.allowedPINs {
		pins = append(pins, p)
	}
	sort.Strings(pins)
	return pins
}

// parsePort はポート番号を検証する。
func parsePort(raw string) (string, error) {
	n, err := parseDecimal(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPort, raw)
	}
	return cast.ToString(n), nil
}

// parseTimeout はタイムアウト値を解析する。
// 単位なしの数値は秒として扱う。未設定の場合はDefaultTimeoutを返す。
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTimeout, nil
	}

	var d time.Duration
	if secs, err := parseDecimal(raw); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		// castは単位なしの文字列をナノ秒として解釈するため、ここで弾く
		if !strings.ContainsAny(raw, "nsuµmh") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, raw)
		}
		parsed, err := cast.ToDurationE(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, raw)
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, raw)
	}
	return d, nil
}

// parseDecimal は10進数字のみの文字列を整数に変換する。
// castは基数0で解析し "010" を8進数、"0x1F90" を16進数として扱うため、
// 数字以外を含む値は弾き、先頭の0は除去してから渡す。
func parseDecimal(raw string) (int, error) {
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, fmt.Errorf("10進数ではありません: %q", raw)
	}
	trimmed := strings.TrimLeft(raw, "0")
	if trimmed == "" {
		return 0, nil
	}
	return cast.ToIntE(trimmed)
}

// splitList はカンマ区切りの文字列を分割し、前後の空白と空要素を除去する。
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getenvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getenvOr(getenv func(string) string, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}
