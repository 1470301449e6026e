package gateway

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Rule は外部パス接頭辞と内部サービスの対応を表す。
// 起動時に一度だけ読み込まれ、以後変更されない。
type Rule struct {
	// Prefix は外部に公開するパス接頭辞（例: "/v1/posts"）。
	Prefix string
	// Target は転送先サービスのベースURL。
	Target *url.URL
	// Rewrite は内部サービス側のパス接頭辞（例: "/api/posts"）。
	// Prefixを取り除いた残りがこの後ろに連結される。
	Rewrite string
	// RequiresAuth は認証済みリクエストのみを受け付けるかどうか。
	RequiresAuth bool
	// Sensitive は厳格なレートリミットを適用するかどうか。
	// ログインなど総当たりの標的になるルートに設定する。
	Sensitive bool
}

// Table は静的なルーティング規則の集合。
type Table struct {
	// rules は接頭辞の長い順に整列した規則。
	rules []Rule
}

// NewTable は規則を検証してルートテーブルを生成する。
// 曖昧な（重なり合う）接頭辞は黙って片方を選ぶのではなく、
// 起動時のエラーとして拒否する。
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("ルート規則が1件もありません")
	}

	for i, r := range rules {
		if !strings.HasPrefix(r.Prefix, "/") || strings.HasSuffix(r.Prefix, "/") {
			return nil, fmt.Errorf("接頭辞は\"/\"で始まり\"/\"で終わらないこと: %q", r.Prefix)
		}
		if r.Target == nil {
			return nil, fmt.Errorf("接頭辞%qの転送先が未設定", r.Prefix)
		}
		if !strings.HasPrefix(r.Rewrite, "/") {
			return nil, fmt.Errorf("接頭辞%qの書き換え先は\"/\"で始まること: %q", r.Prefix, r.Rewrite)
		}
		for _, other := range rules[i+1:] {
			if overlaps(r.Prefix, other.Prefix) {
				return nil, fmt.Errorf("接頭辞%qと%qが重なっています", r.Prefix, other.Prefix)
			}
		}
	}

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	return &Table{rules: sorted}, nil
}

// Resolve はパスに一致する規則を返す。一致しない場合はnilを返す。
// 一致はパスセグメント境界で判定する（"/v1/posts"は"/v1/postscript"に
// 一致しない）。
func (t *Table) Resolve(path string) *Rule {
	for i := range t.rules {
		if matchesPrefix(path, t.rules[i].Prefix) {
			return &t.rules[i]
		}
	}
	return nil
}

// Rules は全規則を接頭辞の長い順で返す。
func (t *Table) Rules() []Rule {
	return t.rules
}

// matchesPrefix はパスが接頭辞にセグメント境界で一致するか判定する。
func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// overlaps は2つの接頭辞が同一パスに同時に一致し得るか判定する。
func overlaps(a, b string) bool {
	return matchesPrefix(a, b) || matchesPrefix(b, a)
}

// defaultRules は設定から既定のルート規則を組み立てる。
// 各バックエンドはHTTP越しにのみ到達する外部の協調サービスである。
func defaultRules(cfg *Config) []Rule {
	return []Rule{
		// 登録・ログインは未認証で到達でき、総当たり対策として厳格な
		// レートリミットを適用する。
		{Prefix: "/v1/auth", Target: cfg.IdentityServiceURL, Rewrite: "/api/auth", Sensitive: true},
		{Prefix: "/v1/users", Target: cfg.IdentityServiceURL, Rewrite: "/api/users", RequiresAuth: true},
		{Prefix: "/v1/posts", Target: cfg.PostsServiceURL, Rewrite: "/api/posts", RequiresAuth: true},
		{Prefix: "/v1/media", Target: cfg.MediaServiceURL, Rewrite: "/api/media", RequiresAuth: true},
	}
}
