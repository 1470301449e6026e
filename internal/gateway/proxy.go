package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/edge/pkg/middleware"
	"github.com/nao1215/edge/pkg/token"
)

// headerKeyUserID は検証済みの呼び出し元IDを内部サービスへ伝える
// 唯一のヘッダー。内部サービスはgateway経由のリクエストに限り
// この値を信頼する。
const headerKeyUserID = "X-User-ID"

// hopByHopHeaders は転送してはならないホップ単位のヘッダー。
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy は認可済みリクエストを内部サービスへ転送するリバースプロキシ。
// リトライやサーキットブレーカは持たず、1リクエストにつき転送は1回。
type Proxy struct {
	// client は転送用のHTTPクライアント。タイムアウトを必ず持つ。
	client *http.Client
}

// NewProxy は指定タイムアウトで転送するProxyを生成する。
func NewProxy(timeout time.Duration) *Proxy {
	return &Proxy{
		client: &http.Client{Timeout: timeout},
	}
}

// Forward はリクエストをルート規則に従って内部サービスへ転送し、
// レスポンスをそのまま呼び出し元へ中継する。
// 転送先との通信失敗は502の固定エンベロープに変換し、gateway自体は
// 落とさない。呼び出し元が切断した場合はリクエストコンテキスト経由で
// 転送も中断される。
func (p *Proxy) Forward(c *gin.Context, rule *Rule, identity *token.Identity) {
	outURL := *rule.Target
	outURL.Path = rewritePath(rule, c.Request.URL.Path)
	outURL.RawQuery = c.Request.URL.RawQuery

	// ボディはバッファせずそのまま流す。マルチパートアップロードも
	// パースせずに通過する。
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, outURL.String(), c.Request.Body)
	if err != nil {
		log.Printf("プロキシリクエストの作成に失敗: url=%s, request_id=%s, error=%v",
			outURL.String(), middleware.RequestID(c), err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "内部サーバーエラーが発生しました",
		})
		return
	}
	req.ContentLength = c.Request.ContentLength

	copyForwardHeaders(req.Header, c.Request.Header)

	// boundaryパラメータを含むContent-Typeの全文を正規化されたキーで
	// 読み取り、そのまま引き継ぐ。
	if contentType := c.GetHeader("Content-Type"); contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if requestID := middleware.RequestID(c); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if identity != nil {
		req.Header.Set(headerKeyUserID, identity.Subject)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// 呼び出し元の切断による中断はダウンストリーム障害ではない。
		if errors.Is(err, context.Canceled) {
			log.Printf("呼び出し元の切断により転送を中断: url=%s, request_id=%s",
				outURL.String(), middleware.RequestID(c))
			return
		}
		log.Printf("プロキシエラー: url=%s, request_id=%s, error=%v",
			outURL.String(), middleware.RequestID(c), err)
		c.JSON(http.StatusBadGateway, errorResponse{
			Message: "内部サービスとの通信に失敗しました",
			Code:    codeDownstreamUnavailable,
		})
		return
	}
	defer resp.Body.Close()

	// バックエンド由来のレスポンスはステータスもボディも解釈せずに
	// そのまま中継する。大きなペイロードに備えてストリームで書き出す。
	relayHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// ステータス送信後のため、できるのはログを残すことだけ。
		log.Printf("レスポンス中継中にエラー: url=%s, request_id=%s, error=%v",
			outURL.String(), middleware.RequestID(c), err)
	}
}

// rewritePath は外部パスの接頭辞を内部サービス側の接頭辞に置き換える。
// 置き換えは純粋な文字列操作で、後続セグメントとクエリは変更しない。
func rewritePath(rule *Rule, path string) string {
	rest := path[len(rule.Prefix):]
	return rule.Rewrite + rest
}

// copyForwardHeaders は転送可能なリクエストヘッダーをコピーする。
// ホップ単位ヘッダーに加えて、Authorizationと呼び出し元が詐称し得る
// X-User-IDは転送しない。
func copyForwardHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	for _, key := range hopByHopHeaders {
		dst.Del(key)
	}
	dst.Del("Authorization")
	dst.Del(headerKeyUserID)
}

// relayHeaders はレスポンスヘッダーからホップ単位のものを除いてコピーする。
func relayHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	for _, key := range hopByHopHeaders {
		dst.Del(key)
	}
}
