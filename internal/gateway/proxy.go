package gateway

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/spm-middleware/pkg/httpclient"
	"github.com/nao1215/spm-middleware/pkg/middleware"
)

// クライアントに返す固定メッセージ。
const (
	msgProxyGetFailed  = "Gagal proxy GET"
	msgProxyPostFailed = "Gagal proxy POST"
	msgPINRejected     = "Akses ditolak: PIN tidak valid"
	msgInvalidBody     = "Body JSON tidak valid"
	msgBodyTooLarge    = "Body terlalu besar"
)

// maxBodyBytes はPOSTボディの上限サイズ。
const maxBodyBytes = 1 << 20

// failureResponse は転送失敗時にクライアントへ返す失敗エンベロープ。
type failureResponse struct {
	// Success は常にfalse。
	Success bool `json:"success"`
	// Message は失敗の種類ごとの固定メッセージ。
	Message string `json:"message"`
	// Error は原因となったエラーの内容。PIN拒否時は含めない。
	Error string `json:"error,omitempty"`
}

// abortWithFailure は失敗エンベロープを返してリクエストを終了する。
func abortWithFailure(c *gin.Context, status int, message string, err error) {
	resp := failureResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// handleProxyGet はクエリパラメータにtokenを付与してバックエンドへGETを転送するハンドラを返す。
// 呼び出し元が指定したtokenは常に共有シークレットで上書きされる。
func (s *Server) handleProxyGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))

		body, err := s.backend.GetJSON(ctx, c.Request.URL.Query())
		if err != nil {
			log.Printf("プロキシエラー: request_id=%s method=GET error=%v", middleware.GetRequestID(c), err)
			abortWithFailure(c, http.StatusInternalServerError, msgProxyGetFailed, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// handleProxyPost はJSONボディをバックエンドへPOSTで転送するハンドラを返す。
// tokenはクエリパラメータにのみ付与する。PIN検証が有効な場合、
// pinが未指定または許可リストに無ければ403を返し、バックエンドは呼び出さない。
func (s *Server) handleProxyPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readJSONBody(c)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				abortWithFailure(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge, err)
				return
			}
			abortWithFailure(c, http.StatusBadRequest, msgInvalidBody, err)
			return
		}

		if s.cfg.PINRequired() {
			pin, ok := extractPIN(body)
			if !ok || !s.cfg.IsAllowedPIN(pin) {
				log.Printf("PIN拒否: request_id=%s remote=%s", middleware.GetRequestID(c), c.ClientIP())
				abortWithFailure(c, http.StatusForbidden, msgPINRejected, nil)
				return
			}
		}

		ctx := httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
		resp, err := s.backend.PostJSON(ctx, body)
		if err != nil {
			log.Printf("プロキシエラー: request_id=%s method=POST error=%v", middleware.GetRequestID(c), err)
			abortWithFailure(c, http.StatusInternalServerError, msgProxyPostFailed, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", resp)
	}
}

// errBodyTooLarge はPOSTボディが上限サイズを超えたことを表す。
var errBodyTooLarge = errors.New("リクエストボディが上限サイズを超えています")

// errNotJSONBody はPOSTボディがJSONオブジェクトまたは配列でないことを表す。
var errNotJSONBody = errors.New("リクエストボディはJSONオブジェクトまたは配列である必要があります")

// readJSONBody はPOSTボディを読み込む。
// Content-Typeがapplication/jsonでない場合と、ボディが空の場合は空オブジェクトとして扱う。
func readJSONBody(c *gin.Context) ([]byte, error) {
	if c.ContentType() != gin.MIMEJSON {
		return []byte("{}"), nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	if isBlank(raw) {
		return []byte("{}"), nil
	}
	if !isJSONContainer(raw) {
		return nil, errNotJSONBody
	}
	return raw, nil
}
