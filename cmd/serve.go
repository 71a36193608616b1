package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/shouni/go-webtoon-kit/internal/builder"
	"github.com/shouni/go-webtoon-kit/internal/server"
)

var listenAddr string

// serveCmd は、パネルの編集と生成を行う JSON API を起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "セッションを操作する HTTP API を起動するのだ。",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", cfg.ListenAddr, "待ち受けアドレスなのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	appCtx, err := builder.BuildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗しました: %w", err)
	}
	return server.New(ctx, appCtx).Run(ctx, listenAddr)
}
