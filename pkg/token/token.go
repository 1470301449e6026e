package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 検証失敗の種別。呼び出し側はerrors.Isで判別し、HTTPステータスに対応付ける。
var (
	// ErrMissingCredential はAuthorizationヘッダーが存在しない、
	// Bearerスキームでない、またはトークンが空であることを表す。
	ErrMissingCredential = errors.New("認証情報が存在しないか形式が不正")
	// ErrExpired はトークンの有効期限が切れていることを表す。
	ErrExpired = errors.New("トークンの有効期限切れ")
	// ErrInvalid は署名不一致・ペイロード不正・未対応アルゴリズムを表す。
	ErrInvalid = errors.New("トークンが無効")
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
// ユーザーID等の情報をサービス間で伝播するために使用する。
type Claims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// Identity は検証済みトークンから取り出した呼び出し元の情報。
// リクエストの生存期間だけ保持し、永続化しない。
type Identity struct {
	// Subject は呼び出し元ユーザーの一意識別子。
	Subject string
	// Email はユーザーのメールアドレス。
	Email string
}

// Verifier はBearerトークンを検証する。状態を持たず並行利用できる。
type Verifier struct {
	// secret はJWT署名検証用の秘密鍵。
	secret string
}

// NewVerifier は指定された秘密鍵で検証するVerifierを生成する。
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify はAuthorizationヘッダーの値を検証し、呼び出し元のIdentityを返す。
// ヘッダー形式の検査を署名検証より先に行い、不要な暗号計算を避ける。
// 失敗はErrMissingCredential・ErrExpired・ErrInvalidのいずれかにラップされる。
func (v *Verifier) Verify(rawHeader string) (*Identity, error) {
	raw, err := extractBearer(rawHeader)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return []byte(v.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		// 期限切れは「再ログインすれば解決する」失敗として他の無効と区別する。
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %s", ErrExpired, Redact(raw))
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalid, Redact(raw))
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, Redact(raw))
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: subjectが空", ErrInvalid)
	}

	return &Identity{Subject: subject, Email: claims.Email}, nil
}

// extractBearer はAuthorizationヘッダーからトークン部分を取り出す。
// スキーム名の大文字小文字は区別しない。
func extractBearer(rawHeader string) (string, error) {
	if strings.TrimSpace(rawHeader) == "" {
		return "", fmt.Errorf("%w: Authorizationヘッダーがありません", ErrMissingCredential)
	}

	scheme, raw, found := strings.Cut(rawHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: Bearerスキームではありません", ErrMissingCredential)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: トークンが空です", ErrMissingCredential)
	}
	return raw, nil
}

// redactLen はログに出力するトークン接頭辞の最大長。
const redactLen = 8

// Redact はトークンをログ出力用に短縮する。
// 資格情報の漏洩を防ぐため、全文は決してログに残さない。
// 接頭辞より短い入力は全文がそのまま出てしまうため、固定の伏せ字を返す。
func Redact(raw string) string {
	if len(raw) <= redactLen {
		return "..."
	}
	return raw[:redactLen] + "..."
}

// issuer は発行するトークンのissクレーム値。
const issuer = "edge-gateway"

// tokenTTL は発行するトークンの有効期間。
const tokenTTL = 24 * time.Hour

// Generate はユーザー情報からJWTトークンを生成する。
// 開発用トークン発行エンドポイントとテストで使用する。
func Generate(secret, userID, email string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}
