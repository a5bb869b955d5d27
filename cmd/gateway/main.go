// SPMミドルウェア（プロキシゲートウェイ）のエントリポイント。
// 受け取ったリクエストに共有シークレットを付与し、GAS Webアプリへ転送する。
// GAS_WEBAPP_URLとSECRET_TOKENが揃っていない場合は、ポートを開く前に終了する。
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nao1215/spm-middleware/internal/config"
	"github.com/nao1215/spm-middleware/internal/gateway"
)

func main() {
	// .envは任意。既に設定済みの環境変数は上書きされない。
	if err := godotenv.Load(); err == nil {
		log.Printf(".envを読み込みました")
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}

	if cfg.PINRequired() {
		log.Printf("PIN検証を有効化しました: 許可PIN数=%d", len(cfg.AllowedPINs()))
	}
	log.Printf("Gatewayサービスを起動します: :%s (timeout=%s)", cfg.Port, cfg.Timeout)
	if err := server.Run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}
