// Package httpclient はバックエンド（GAS Webアプリ）へのHTTP通信を行うクライアントを提供する。
//
// 転送先URLの組み立て、共有シークレットtokenの付与、タイムアウト、
// JSONレスポンスの検証をまとめて扱う。ゲートウェイの各プロキシハンドラは
// このクライアントを経由してのみバックエンドを呼び出す。
package httpclient
