package gateway

// errorResponse はgatewayが生成する全エラーの共通エンベロープ。
// 生のスタックトレースや内部状態は決して含めない。
type errorResponse struct {
	// Success は常にfalse。
	Success bool `json:"success"`
	// Message は利用者向けの説明。
	Message string `json:"message"`
	// Path は対象のリクエストパス（診断用、任意）。
	Path string `json:"path,omitempty"`
	// Method は対象のHTTPメソッド（診断用、任意）。
	Method string `json:"method,omitempty"`
	// Code は機械判読用のエラー種別（任意）。
	Code string `json:"code,omitempty"`
}

// エラー種別コード。HTTPステータスとの対応はdispatchで固定する。
const (
	codeMissingCredential     = "missing_credential"
	codeCredentialExpired     = "credential_expired"
	codeCredentialInvalid     = "credential_invalid"
	codeRouteNotFound         = "route_not_found"
	codeRateLimitExceeded     = "rate_limit_exceeded"
	codeDownstreamUnavailable = "downstream_unavailable"
)

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	// Status は稼働状態。プロセスが応答できる限り"ok"。
	Status string `json:"status"`
	// Service はサービス名。
	Service string `json:"service"`
	// Timestamp は応答時刻（RFC 3339）。
	Timestamp string `json:"timestamp"`
}

// devTokenResponse は開発用トークン発行のレスポンス。
type devTokenResponse struct {
	// Token は発行されたJWTトークン。
	Token string `json:"token"`
	// UserID はトークンに紐づくユーザーID。
	UserID string `json:"user_id"`
}
