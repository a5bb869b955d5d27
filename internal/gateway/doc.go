// Package gateway はSPMミドルウェア（プロキシゲートウェイ）の内部実装を提供する。
//
// 受け取ったGET/POSTリクエストに共有シークレットtokenを付与して
// 単一のバックエンド（GAS Webアプリ）へ転送し、JSONレスポンスを中継する。
// ALLOWED_PINSが設定されている場合は、POST転送の前にボディのpinを許可リストと照合する。
// 外部からアクセス可能な唯一の窓口であり、シークレットはこのサービスの外に出ない。
package gateway
