package gateway

import (
	"net/http"
	"testing"
)

// TestCopyForwardHeaders は転送ヘッダーの選別を検証する。
func TestCopyForwardHeaders(t *testing.T) {
	t.Parallel()

	t.Run("一般のヘッダーがコピーされること", func(t *testing.T) {
		t.Parallel()

		src := http.Header{}
		src.Set("Accept", "application/json")
		src.Set("User-Agent", "test-client/1.0")

		dst := http.Header{}
		copyForwardHeaders(dst, src)

		if got := dst.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want %q", got, "application/json")
		}
		if got := dst.Get("User-Agent"); got != "test-client/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "test-client/1.0")
		}
	})

	t.Run("ホップ単位のヘッダーが転送されないこと", func(t *testing.T) {
		t.Parallel()

		src := http.Header{}
		src.Set("Connection", "keep-alive")
		src.Set("Keep-Alive", "timeout=5")
		src.Set("Transfer-Encoding", "chunked")
		src.Set("Upgrade", "websocket")

		dst := http.Header{}
		copyForwardHeaders(dst, src)

		for _, key := range []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade"} {
			if got := dst.Get(key); got != "" {
				t.Errorf("%s = %q, want empty", key, got)
			}
		}
	})

	t.Run("AuthorizationとX-User-IDが転送されないこと", func(t *testing.T) {
		t.Parallel()

		src := http.Header{}
		src.Set("Authorization", "Bearer secret-token")
		src.Set("X-User-ID", "spoofed-admin")
		src.Set("Accept", "application/json")

		dst := http.Header{}
		copyForwardHeaders(dst, src)

		if got := dst.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		if got := dst.Get("X-User-ID"); got != "" {
			t.Errorf("X-User-ID = %q, want empty", got)
		}
		if got := dst.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want %q", got, "application/json")
		}
	})
}

// TestRelayHeaders はレスポンスヘッダーの中継を検証する。
func TestRelayHeaders(t *testing.T) {
	t.Parallel()

	t.Run("コンテンツ関連ヘッダーが中継されること", func(t *testing.T) {
		t.Parallel()

		src := http.Header{}
		src.Set("Content-Type", "application/json")
		src.Set("Cache-Control", "no-store")

		dst := http.Header{}
		relayHeaders(dst, src)

		if got := dst.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if got := dst.Get("Cache-Control"); got != "no-store" {
			t.Errorf("Cache-Control = %q, want %q", got, "no-store")
		}
	})

	t.Run("ホップ単位のヘッダーが中継されないこと", func(t *testing.T) {
		t.Parallel()

		src := http.Header{}
		src.Set("Connection", "close")
		src.Set("Trailer", "Expires")

		dst := http.Header{}
		relayHeaders(dst, src)

		if got := dst.Get("Connection"); got != "" {
			t.Errorf("Connection = %q, want empty", got)
		}
		if got := dst.Get("Trailer"); got != "" {
			t.Errorf("Trailer = %q, want empty", got)
		}
	})
}
