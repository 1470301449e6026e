package gateway

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// 省略時に使用する既定値。
const (
	defaultRateLimitWindow = 15 * time.Minute
	defaultRateLimitBudget = 100
	defaultStrictBudget    = 10
	defaultProxyTimeout    = 30 * time.Second
	defaultFrontendURL     = "http://localhost:3000"
)

// Config はgatewayの起動設定。全て環境変数から読み込む。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// JWTSecret はトークン検証用の秘密鍵。
	JWTSecret string
	// RedisURL はレートリミットカウンタを共有するRedisの接続URL。
	RedisURL string
	// IdentityServiceURL はユーザー登録・ログインサービスのベースURL。
	IdentityServiceURL *url.URL
	// PostsServiceURL は投稿サービスのベースURL。
	PostsServiceURL *url.URL
	// MediaServiceURL はメディアサービスのベースURL。
	MediaServiceURL *url.URL
	// RateLimitWindow は一般クラスの固定ウィンドウ長。
	RateLimitWindow time.Duration
	// RateLimitBudget は一般クラスのウィンドウあたり許可数。
	RateLimitBudget int
	// StrictBudget は機微ルート向けの秒間許可数。
	StrictBudget int
	// RateLimitFailOpen はストア障害時にリクエストを通すかどうか。
	// 既定はfalse（拒否）。安全側の選択であり、明示設定でのみ変更できる。
	RateLimitFailOpen bool
	// ProxyTimeout は内部サービスへの転送1回あたりのタイムアウト。
	ProxyTimeout time.Duration
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
	// DevTokenEnabled は開発用トークン発行エンドポイントを有効にするか。
	// 既定はfalseで、本番では決して有効にしないこと。
	DevTokenEnabled bool
}

// LoadConfig は環境変数から設定を読み込む。
// 必須の値が欠けている場合や不正な値の場合はエラーを返す。
// 設定ミスのまま縮退運転しないよう、呼び出し側はこのエラーで起動を中止すること。
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RateLimitWindow: defaultRateLimitWindow,
		RateLimitBudget: defaultRateLimitBudget,
		StrictBudget:    defaultStrictBudget,
		ProxyTimeout:    defaultProxyTimeout,
		FrontendURL:     defaultFrontendURL,
	}

	var err error
	if cfg.Port, err = requireEnv("PORT"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = requireEnv("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.IdentityServiceURL, err = requireURLEnv("IDENTITY_SERVICE_URL"); err != nil {
		return nil, err
	}
	if cfg.PostsServiceURL, err = requireURLEnv("POSTS_SERVICE_URL"); err != nil {
		return nil, err
	}
	if cfg.MediaServiceURL, err = requireURLEnv("MEDIA_SERVICE_URL"); err != nil {
		return nil, err
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if cfg.RateLimitWindow, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("環境変数RATE_LIMIT_WINDOWの値が不正: %w", err)
		}
	}
	if cfg.RateLimitBudget, err = intEnvOr("RATE_LIMIT_BUDGET", defaultRateLimitBudget); err != nil {
		return nil, err
	}
	if cfg.StrictBudget, err = intEnvOr("STRICT_RATE_LIMIT_BUDGET", defaultStrictBudget); err != nil {
		return nil, err
	}
	if cfg.RateLimitFailOpen, err = boolEnvOr("RATE_LIMIT_FAIL_OPEN", false); err != nil {
		return nil, err
	}
	if v := os.Getenv("PROXY_TIMEOUT"); v != "" {
		if cfg.ProxyTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("環境変数PROXY_TIMEOUTの値が不正: %w", err)
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.FrontendURL = v
	}
	if cfg.DevTokenEnabled, err = boolEnvOr("DEV_TOKEN_ENABLED", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// requireEnv は必須の環境変数を読む。未設定ならエラーを返す。
func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("必須の環境変数%sが設定されていません", key)
	}
	return v, nil
}

// requireURLEnv は必須の環境変数をURLとして読む。
func requireURLEnv(key string) (*url.URL, error) {
	v, err := requireEnv(key)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("環境変数%sの値がURLとして不正: %q", key, v)
	}
	return u, nil
}

// intEnvOr は任意の環境変数を整数として読む。未設定なら既定値を返す。
func intEnvOr(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("環境変数%sの値が整数として不正: %w", key, err)
	}
	return n, nil
}

// boolEnvOr は任意の環境変数を真偽値として読む。未設定なら既定値を返す。
func boolEnvOr(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("環境変数%sの値が真偽値として不正: %w", key, err)
	}
	return b, nil
}
