// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、リクエストID付与、CORS設定、レートリミットなど、
// gatewayが全リクエストに共通して適用する処理を含む。
package middleware
