package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/spm-middleware/internal/config"
	"github.com/nao1215/spm-middleware/pkg/httpclient"
	"github.com/nao1215/spm-middleware/pkg/middleware"
)

// healthMessage はルートパスのヘルスチェックが返す固定メッセージ。
const healthMessage = "SPM Middleware is running."

// backendClient はバックエンド呼び出しを抽象化したインターフェース。
// *httpclient.Client が実装する。
type backendClient interface {
	// GetJSON はクエリにtokenを付与してGETし、JSONレスポンスを返す。
	GetJSON(ctx context.Context, query url.Values) (json.RawMessage, error)
	// PostJSON はボディをそのままPOSTし、JSONレスポンスを返す。
	PostJSON(ctx context.Context, body []byte) (json.RawMessage, error)
}

// Server はプロキシゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。読み取り専用。
	cfg *config.Config
	// backend はバックエンド呼び出し用のクライアント。
	backend backendClient
}

// NewServer は新しいゲートウェイサーバーを生成する。
func NewServer(cfg *config.Config) (*Server, error) {
	backend, err := httpclient.New(cfg.BackendURL, cfg.SecretToken, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("バックエンドクライアントの生成に失敗: %w", err)
	}
	return newServer(cfg, backend), nil
}

// newServer はバックエンドクライアントを指定してサーバーを組み立てる。
func newServer(cfg *config.Config, backend backendClient) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:  router,
		cfg:     cfg,
		backend: backend,
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック（認証不要）
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": healthMessage})
	})
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})

	// バックエンドへのプロキシ
	s.router.GET("/proxy", s.handleProxyGet())
	s.router.POST("/proxy", s.handleProxyPost())
}
