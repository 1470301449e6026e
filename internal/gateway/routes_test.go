package gateway

import (
	"net/url"
	"testing"
)

// mustParseURL はURLをパースするテストヘルパー。
func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("URLのパースに失敗: %v", err)
	}
	return u
}

// TestNewTable はNewTableの検証ロジックを確認する。
func TestNewTable(t *testing.T) {
	t.Parallel()

	t.Run("正常な規則でテーブルを生成できること", func(t *testing.T) {
		t.Parallel()

		table, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "/api/posts"},
			{Prefix: "/v1/users", Target: mustParseURL(t, "http://identity:8081"), Rewrite: "/api/users"},
		})
		if err != nil {
			t.Fatalf("NewTable()でエラーが発生: %v", err)
		}
		if got := len(table.Rules()); got != 2 {
			t.Errorf("規則数 = %d, want 2", got)
		}
	})

	t.Run("規則が空の場合エラーが返ること", func(t *testing.T) {
		t.Parallel()

		if _, err := NewTable(nil); err == nil {
			t.Error("空の規則でNewTable()がエラーを返すべき")
		}
	})

	t.Run("重なり合う接頭辞が起動時に拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "/api/posts"},
			{Prefix: "/v1/posts/drafts", Target: mustParseURL(t, "http://drafts:8083"), Rewrite: "/api/drafts"},
		})
		if err == nil {
			t.Error("重なり合う接頭辞でNewTable()がエラーを返すべき")
		}
	})

	t.Run("同一の接頭辞が拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts-a:8082"), Rewrite: "/api/posts"},
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts-b:8082"), Rewrite: "/api/posts"},
		})
		if err == nil {
			t.Error("同一の接頭辞でNewTable()がエラーを返すべき")
		}
	})

	t.Run("スラッシュで始まらない接頭辞が拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "v1/posts", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "/api/posts"},
		})
		if err == nil {
			t.Error("不正な接頭辞でNewTable()がエラーを返すべき")
		}
	})

	t.Run("スラッシュで終わる接頭辞が拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "/v1/posts/", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "/api/posts"},
		})
		if err == nil {
			t.Error("末尾スラッシュ付き接頭辞でNewTable()がエラーを返すべき")
		}
	})

	t.Run("転送先が未設定の規則が拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Rewrite: "/api/posts"},
		})
		if err == nil {
			t.Error("転送先なしでNewTable()がエラーを返すべき")
		}
	})

	t.Run("スラッシュで始まらない書き換え先が拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "api/posts"},
		})
		if err == nil {
			t.Error("不正な書き換え先でNewTable()がエラーを返すべき")
		}
	})
}

// TestTableResolve はTable.Resolveの一致判定を検証する。
func TestTableResolve(t *testing.T) {
	t.Parallel()

	newTable := func(t *testing.T) *Table {
		t.Helper()

		table, err := NewTable([]Rule{
			{Prefix: "/v1/posts", Target: mustParseURL(t, "http://posts:8082"), Rewrite: "/api/posts"},
			{Prefix: "/v1/users", Target: mustParseURL(t, "http://identity:8081"), Rewrite: "/api/users"},
		})
		if err != nil {
			t.Fatalf("NewTable()でエラーが発生: %v", err)
		}
		return table
	}

	t.Run("接頭辞と完全一致するパスが解決されること", func(t *testing.T) {
		t.Parallel()

		rule := newTable(t).Resolve("/v1/posts")
		if rule == nil {
			t.Fatal("Resolve()がnilを返した")
		}
		if rule.Prefix != "/v1/posts" {
			t.Errorf("Prefix = %q, want %q", rule.Prefix, "/v1/posts")
		}
	})

	t.Run("後続セグメントを持つパスが解決されること", func(t *testing.T) {
		t.Parallel()

		rule := newTable(t).Resolve("/v1/posts/42/comments")
		if rule == nil {
			t.Fatal("Resolve()がnilを返した")
		}
		if rule.Prefix != "/v1/posts" {
			t.Errorf("Prefix = %q, want %q", rule.Prefix, "/v1/posts")
		}
	})

	t.Run("セグメント境界を跨ぐ一致が起きないこと", func(t *testing.T) {
		t.Parallel()

		if rule := newTable(t).Resolve("/v1/postscript"); rule != nil {
			t.Errorf("Resolve() = %+v, want nil", rule)
		}
	})

	t.Run("一致しないパスでnilが返ること", func(t *testing.T) {
		t.Parallel()

		if rule := newTable(t).Resolve("/v2/albums"); rule != nil {
			t.Errorf("Resolve() = %+v, want nil", rule)
		}
	})

	t.Run("ルートパスでnilが返ること", func(t *testing.T) {
		t.Parallel()

		if rule := newTable(t).Resolve("/"); rule != nil {
			t.Errorf("Resolve() = %+v, want nil", rule)
		}
	})
}

// TestRewritePath はrewritePathの書き換えを検証する。
func TestRewritePath(t *testing.T) {
	t.Parallel()

	rule := &Rule{Prefix: "/v1/posts", Rewrite: "/api/posts"}

	t.Run("接頭辞が内部接頭辞に置き換わること", func(t *testing.T) {
		t.Parallel()

		if got := rewritePath(rule, "/v1/posts/42"); got != "/api/posts/42" {
			t.Errorf("rewritePath() = %q, want %q", got, "/api/posts/42")
		}
	})

	t.Run("完全一致のパスが内部接頭辞そのものになること", func(t *testing.T) {
		t.Parallel()

		if got := rewritePath(rule, "/v1/posts"); got != "/api/posts" {
			t.Errorf("rewritePath() = %q, want %q", got, "/api/posts")
		}
	})

	t.Run("後続セグメントがそのまま保持されること", func(t *testing.T) {
		t.Parallel()

		if got := rewritePath(rule, "/v1/posts/42/comments/7"); got != "/api/posts/42/comments/7" {
			t.Errorf("rewritePath() = %q, want %q", got, "/api/posts/42/comments/7")
		}
	})
}
