// Package config はゲートウェイの起動時設定を提供する。
//
// 環境変数から一度だけ読み込み、以降は読み取り専用の値として
// サーバーとバックエンドクライアントに明示的に渡す。
package config
