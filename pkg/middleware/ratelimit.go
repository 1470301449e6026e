package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/edge/pkg/ratelimit"
)

// RateLimit はクライアントIPをキーに流入を制限するGinミドルウェアを返す。
// このチェックは認証やルート解決より前に実行し、gateway自身を保護する。
// exemptPathsに挙げたパス（ヘルスチェック等）は制限の対象外となる。
// 拒否時は429と固定のエラーエンベロープを返し、内部のカウンタ状態は
// 公開しない。
func RateLimit(limiter *ratelimit.Limiter, exemptPaths ...string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		dec := limiter.Allow(c.Request.Context(), c.ClientIP())
		if !dec.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "リクエスト数が上限を超えました。しばらくしてから再試行してください",
			})
			return
		}
		c.Next()
	}
}
