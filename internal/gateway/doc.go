// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 流入制限、Bearerトークン検証、ルート解決、内部サービスへの
// リバースプロキシ転送を担当する。外部からアクセス可能な唯一の
// サービスであり、セキュリティの境界線として機能する。検証済みの
// 呼び出し元IDはX-User-IDヘッダーとしてのみ内部サービスに伝わる。
package gateway
