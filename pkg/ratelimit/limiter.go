package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"
)

// defaultStoreTimeout はストアへの1回の問い合わせに許す時間。
// これを超えた判定は保留のまま放置せず、ストア障害として扱う。
const defaultStoreTimeout = 2 * time.Second

// Config はリミッタ1クラス分の設定。
type Config struct {
	// Budget はウィンドウあたりの許可リクエスト数。
	Budget int
	// Window は固定ウィンドウの長さ。
	Window time.Duration
	// KeyPrefix はストア上のキー名の接頭辞。クラスごとに分離する。
	KeyPrefix string
	// FailOpen はストア障害時にリクエストを通すかどうか。
	// 既定はfalse（fail-closed）。障害中の無制限な流入を避けるため、
	// trueにした場合でもローカルなトークンバケットで上限を掛ける。
	FailOpen bool
	// StoreTimeout はストア問い合わせのタイムアウト。ゼロなら既定値。
	StoreTimeout time.Duration
}

// Decision はリミッタの判定結果。
// 拒否時に呼び出し元へ伝えるのは設定済みウィンドウ由来のRetryAfterのみで、
// 内部のカウンタ値は含めない。
type Decision struct {
	// Allowed はリクエストを許可するかどうか。
	Allowed bool
	// RetryAfter は拒否時に再試行まで待つべき時間。
	RetryAfter time.Duration
}

// Limiter は共有ストアを用いる固定ウィンドウリミッタ。
type Limiter struct {
	// store は判定の単一の真実となる共有カウンタストア。
	store Store
	// cfg はこのリミッタクラスの設定。
	cfg Config
	// backstop はfail-open時のローカルな上限。fail-closedならnil。
	backstop *LocalLimiter
}

// New は新しいリミッタを生成する。予算とウィンドウは正の値であること。
func New(store Store, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("ストアが指定されていません")
	}
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("予算は正の値である必要があります: %d", cfg.Budget)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("ウィンドウは正の値である必要があります: %v", cfg.Window)
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	l := &Limiter{store: store, cfg: cfg}
	if cfg.FailOpen {
		// fail-open時も無制限には通さない。ウィンドウあたりの予算を
		// 秒間レートに換算したローカルバケットで抑える。
		rps := float64(cfg.Budget) / cfg.Window.Seconds()
		l.backstop = NewLocalLimiter(rps, cfg.Budget)
	}
	return l, nil
}

// Allow はキーに対するリクエストを許可するか判定する。
// ストア障害時の動作はConfig.FailOpenに従う。エラーは返さず、
// 障害は方針どおりの判定に変換したうえでログに残す。
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	storeKey := l.cfg.KeyPrefix + ":" + key
	count, err := l.store.Increment(ctx, storeKey, l.cfg.Window)
	if err != nil {
		if l.cfg.FailOpen {
			log.Printf("レートリミットストア障害のためfail-openで判定: key=%s, error=%v", key, err)
			return Decision{Allowed: l.backstop.Allow(key), RetryAfter: l.cfg.Window}
		}
		log.Printf("レートリミットストア障害のため拒否: key=%s, error=%v", key, err)
		return Decision{Allowed: false, RetryAfter: l.cfg.Window}
	}

	if count > int64(l.cfg.Budget) {
		return Decision{Allowed: false, RetryAfter: l.cfg.Window}
	}
	return Decision{Allowed: true}
}

// Window はこのリミッタのウィンドウ長を返す。
func (l *Limiter) Window() time.Duration {
	return l.cfg.Window
}

// StartJanitor はfail-open時のバックストップのアイドルエントリを
// 定期的に掃除するゴルーチンを起動する。fail-closed構成では何もしない。
// コンテキストのキャンセルで停止する。
func (l *Limiter) StartJanitor(ctx context.Context) {
	if l.backstop == nil {
		return
	}
	l.backstop.StartJanitor(ctx)
}
