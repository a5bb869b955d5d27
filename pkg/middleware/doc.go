// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、CORS設定、リクエストIDの割り当てなど、
// ゲートウェイの全ルートで共通して使用するミドルウェアを含む。
package middleware
