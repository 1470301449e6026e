package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pingTimeout は起動時のRedis疎通確認のタイムアウト。
const pingTimeout = 5 * time.Second

// RedisStore はRedisを共有カウンタストアとして使うStore実装。
type RedisStore struct {
	// client はRedisクライアント。
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore は接続URL（例: "redis://localhost:6379/0"）からストアを生成する。
// 起動時にPINGで疎通を確認し、失敗した場合はエラーを返す。
// 設定ミスのまま縮退運転しないよう、呼び出し側はこのエラーで起動を中止すること。
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("Redis接続URLの解析に失敗: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redisへの疎通確認に失敗: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Increment はINCRとEXPIRE NXをトランザクションパイプラインで実行し、
// 加算後のカウンタ値を返す。加算と判定材料の取得がRedis側で線形化される
// ため、gatewayプロセス側でread-then-writeする必要がない。
// EXPIRE NXによりウィンドウはキーの初回加算時に一度だけ開く。
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("カウンタの加算に失敗: %w", err)
	}
	return counter.Val(), nil
}

// Close はRedisクライアントを閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
