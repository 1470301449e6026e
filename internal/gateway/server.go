package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/edge/pkg/middleware"
	"github.com/nao1215/edge/pkg/ratelimit"
	"github.com/nao1215/edge/pkg/token"
)

// serviceName はヘルスチェック等で名乗るサービス名。
const serviceName = "edge-gateway"

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *Config
	// routes は静的なルートテーブル。
	routes *Table
	// verifier はBearerトークンの検証器。
	verifier *token.Verifier
	// strict は機微ルート向けの厳格なレートリミッタ。
	strict *ratelimit.Limiter
	// proxy は内部サービスへのリバースプロキシ。
	proxy *Proxy
}

// NewServer は新しいGatewayサーバーを生成する。
// 共有ストアへの疎通確認とルートテーブルの検証に失敗した場合は
// エラーを返し、呼び出し側はプロセスを終了させること。
func NewServer(cfg *Config) (*Server, error) {
	store, err := ratelimit.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("レートリミットストアの初期化に失敗: %w", err)
	}
	return newServerWithStore(cfg, store)
}

// newServerWithStore はストア実装を差し替え可能にした内部コンストラクタ。
// テストではインメモリストアを渡す。
func newServerWithStore(cfg *Config, store ratelimit.Store) (*Server, error) {
	routes, err := NewTable(defaultRules(cfg))
	if err != nil {
		return nil, fmt.Errorf("ルートテーブルの構築に失敗: %w", err)
	}

	// 一般クラス: 全リクエストをIP単位で制限し、gateway自身を保護する。
	general, err := ratelimit.New(store, ratelimit.Config{
		Budget:    cfg.RateLimitBudget,
		Window:    cfg.RateLimitWindow,
		KeyPrefix: "ratelimit:general",
		FailOpen:  cfg.RateLimitFailOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("一般レートリミッタの生成に失敗: %w", err)
	}

	// 厳格クラス: ログイン等の機微ルートを秒単位の小さな予算で制限する。
	// 同じ共有ストアを使うため、複数gatewayプロセス間でも正しく効く。
	strict, err := ratelimit.New(store, ratelimit.Config{
		Budget:    cfg.StrictBudget,
		Window:    time.Second,
		KeyPrefix: "ratelimit:strict",
		FailOpen:  cfg.RateLimitFailOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("厳格レートリミッタの生成に失敗: %w", err)
	}

	// fail-open構成ではバックストップがクライアントキーごとにエントリを
	// 持つため、プロセスの生存期間にわたって掃除ゴルーチンを走らせる。
	general.StartJanitor(context.Background())
	strict.StartJanitor(context.Background())

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.WithRequestID())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))
	// ヘルスチェックはプロセスが生きている限り200を返す契約のため、
	// 流入制限の対象から外す。
	router.Use(middleware.RateLimit(general, "/health"))

	s := &Server{
		router:   router,
		cfg:      cfg,
		routes:   routes,
		verifier: token.NewVerifier(cfg.JWTSecret),
		strict:   strict,
		proxy:    NewProxy(cfg.ProxyTimeout),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// setupRoutes はAPIルーティングを設定する。
// ルートテーブルに一致するパスは全てdispatchが処理し、プロキシ転送を行う。
func (s *Server) setupRoutes() {
	// ヘルスチェック。プロセスが応答できる限り200を返す。
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:    "ok",
			Service:   serviceName,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	// 開発用トークン発行。明示的に有効化した場合のみ公開する。
	if s.cfg.DevTokenEnabled {
		s.router.POST("/auth/dev-token", s.handleDevToken())
	}

	// 登録済みルートに一致しない全パスをルートテーブルで解決する。
	s.router.NoRoute(s.handleDispatch())
}

// handleDispatch はリクエストをルート解決・認証・転送の順で処理する
// ハンドラを返す。途中のどの段階で失敗しても、レスポンスはちょうど
// 1回だけ書き込まれる。
func (s *Server) handleDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		rule := s.routes.Resolve(c.Request.URL.Path)
		if rule == nil {
			// 未知のパスは診断しやすいようパスとメソッドを返す。500にはしない。
			c.JSON(http.StatusNotFound, errorResponse{
				Message: "リクエストされたパスは存在しません",
				Path:    c.Request.URL.Path,
				Method:  c.Request.Method,
				Code:    codeRouteNotFound,
			})
			return
		}

		if rule.Sensitive {
			dec := s.strict.Allow(c.Request.Context(), c.ClientIP())
			if !dec.Allowed {
				retryAfter := int(math.Ceil(s.strict.Window().Seconds()))
				c.Header("Retry-After", strconv.Itoa(retryAfter))
				c.JSON(http.StatusTooManyRequests, errorResponse{
					Message: "リクエスト数が上限を超えました。しばらくしてから再試行してください",
					Code:    codeRateLimitExceeded,
				})
				return
			}
		}

		var identity *token.Identity
		if rule.RequiresAuth {
			id, err := s.verifier.Verify(c.GetHeader("Authorization"))
			if err != nil {
				s.renderVerifyError(c, err)
				return
			}
			identity = id
		}

		s.proxy.Forward(c, rule, identity)
	}
}

// renderVerifyError はトークン検証の失敗をHTTPステータスに対応付ける。
// 期限切れは再ログインで解決するため401、署名不一致等は403とし、
// トークンリフレッシュへのリトライ集中を避ける。
func (s *Server) renderVerifyError(c *gin.Context, err error) {
	log.Printf("トークン検証に失敗: %s %s request_id=%s: %v",
		c.Request.Method, c.Request.URL.Path, middleware.RequestID(c), err)

	switch {
	case errors.Is(err, token.ErrMissingCredential):
		c.JSON(http.StatusUnauthorized, errorResponse{
			Message: "認証情報が必要です",
			Code:    codeMissingCredential,
		})
	case errors.Is(err, token.ErrExpired):
		c.JSON(http.StatusUnauthorized, errorResponse{
			Message: "トークンの有効期限が切れています。再度ログインしてください",
			Code:    codeCredentialExpired,
		})
	default:
		c.JSON(http.StatusForbidden, errorResponse{
			Message: "トークンが無効です",
			Code:    codeCredentialInvalid,
		})
	}
}

// handleDevToken は開発用JWTトークンを発行するハンドラを返す。
// 本番環境では無効化すべき。
func (s *Server) handleDevToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := uuid.New().String()

		signed, err := token.Generate(s.cfg.JWTSecret, userID, "dev@localhost")
		if err != nil {
			log.Printf("開発用トークンの生成に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, errorResponse{
				Message: "トークン生成に失敗しました",
			})
			return
		}

		c.JSON(http.StatusOK, devTokenResponse{Token: signed, UserID: userID})
	}
}
