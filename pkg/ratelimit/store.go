package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store はウィンドウ付きカウンタを保持する共有ストアの契約。
// Incrementは加算後の値を返し、ストア側でアトミックに実行される。
// キーはウィンドウ経過後に自動で失効しなければならない。
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// MemoryStore はプロセス内メモリで動作するStore実装。
// 単体テストおよび単一プロセス構成向けで、プロセス間では共有されない。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// memoryEntry はキーごとのカウンタと失効時刻。
type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryStore は新しいインメモリストアを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Increment はキーのカウンタを加算して返す。
// ウィンドウはキーの初回加算時に開き、経過後の加算でカウンタをリセットする。
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || now.After(ent.expiresAt) {
		ent = &memoryEntry{expiresAt: now.Add(window)}
		s.entries[key] = ent
	}
	ent.count++
	return ent.count, nil
}
