package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localIdleTTL は最後の利用からエントリを破棄するまでの時間。
const localIdleTTL = 15 * time.Minute

// localCleanupEvery はアイドルエントリの掃除間隔。
const localCleanupEvery = 2 * time.Minute

// LocalLimiter はキーごとのプロセスローカルなトークンバケット。
// 共有ストアが利用できない間のfail-open時の上限として使用する。
// プロセス間では共有されないため、通常時の判定には使わないこと。
type LocalLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	rps     rate.Limit
	burst   int
}

// localEntry はキーごとのリミッタと最終利用時刻。
type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter は秒間rpsトークン・バーストburstのローカルリミッタを生成する。
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		entries: make(map[string]*localEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow はキーに対するリクエストを今すぐ許可できるか判定する。
func (l *LocalLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &localEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	return ent.lim.Allow()
}

// cleanup はアイドルなキーのエントリを破棄する。
func (l *LocalLimiter) cleanup() {
	cutoff := time.Now().Add(-localIdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor はアイドルエントリを定期的に掃除するゴルーチンを起動する。
// コンテキストのキャンセルで停止する。
func (l *LocalLimiter) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(localCleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}
