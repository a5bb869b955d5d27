package gateway

import (
	"bytes"

	"github.com/tidwall/gjson"
)

// pinField はPOSTボディ内のPINのフィールド名。
const pinField = "pin"

// extractPIN はPOSTボディからpinフィールドを取り出す。
// 文字列と数値のみをPINとして扱い、それ以外の型や未指定の場合はfalseを返す。
// ボディはそのままバックエンドへ転送され、バックエンドは重複キーの最後の値を採用する。
// 照合した値と転送先が読む値を一致させるため、トップレベルのpinが複数ある場合もfalseを返す。
func extractPIN(body []byte) (string, bool) {
	var (
		result gjson.Result
		count  int
	)
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		if key.String() == pinField {
			result = value
			count++
		}
		return count <= 1
	})
	if count != 1 {
		return "", false
	}

	switch result.Type {
	case gjson.String:
		return result.Str, result.Str != ""
	case gjson.Number:
		return result.Raw, true
	default:
		return "", false
	}
}

// isJSONContainer はボディがJSONオブジェクトまたは配列であるかを返す。
func isJSONContainer(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	parsed := gjson.ParseBytes(body)
	return parsed.IsObject() || parsed.IsArray()
}

// isBlank はボディが空白のみで構成されているかを返す。
func isBlank(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}
