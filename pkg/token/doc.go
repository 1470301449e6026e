// Package token はBearerトークンの発行と検証を提供する。
//
// gatewayサービスが認証必須ルートで提示されたJWTを検証し、
// 呼び出し元のアイデンティティを取り出すために使用する。
// 検証は署名鍵によるローカル計算のみで、外部I/Oは発生しない。
package token
