package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// headerKeyRequestID はリクエストIDを伝播するHTTPヘッダーキー。
const headerKeyRequestID = "X-Request-ID"

// contextKeyRequestID はGinコンテキストにリクエストIDを格納するキー。
const contextKeyRequestID = "request_id"

// WithRequestID は全リクエストに一意のIDを付与するGinミドルウェアを返す。
// クライアントが有効なX-Request-IDを提示した場合はそれを引き継ぎ、
// なければ新規に生成する。IDはレスポンスヘッダーにも設定する。
func WithRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerKeyRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(contextKeyRequestID, id)
		c.Header(headerKeyRequestID, id)
		c.Next()
	}
}

// RequestID はGinコンテキストからリクエストIDを取得する。
// WithRequestIDミドルウェアが適用されていない場合は空文字列を返す。
func RequestID(c *gin.Context) string {
	id, _ := c.Get(contextKeyRequestID)
	if s, ok := id.(string); ok {
		return s
	}
	return ""
}
