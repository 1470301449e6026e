// Package ratelimit は共有ストアを用いた分散レートリミッタを提供する。
//
// カウンタの単一の真実はRedis等の共有ストアにあり、複数のgateway
// プロセス間で同じ制限が正しく適用される。加算と判定はストア側で
// 線形化されるため、同一クライアントの並行リクエストが同時に
// 「予算内」と判定されて予算を超過することはない。
//
// ストア障害時の既定動作はfail-closed（拒否）である。fail-openを
// 明示的に設定した場合のみ、プロセスローカルなトークンバケットを
// 上限としてリクエストを通す。
package ratelimit
