package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-webtoon-kit/internal/config"
)

const appName = "webtoon-kit"

// cfg は環境変数から読み込んだ設定に、グローバルフラグの値を上書きしたものなのだ。
var cfg = config.LoadConfig()

var verbose bool

var rootCmd = &cobra.Command{
	Use:               appName,
	Short:             "プロンプトから縦読み漫画のパネルを生成し、1 枚の画像に結合するのだ。",
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&cfg.ImageModel, "image-model", cfg.ImageModel, "使用する Gemini 画像モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&cfg.StyleDescription, "style", cfg.StyleDescription, "全パネル共通の画風の指定なのだ。")
	rootCmd.PersistentFlags().IntVarP(&cfg.PanelCount, "panels", "p", cfg.PanelCount, "セッションのパネル数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "1 パネルあたりの生成タイムアウトなのだ（0 で無期限）。")
	rootCmd.PersistentFlags().DurationVar(&cfg.RateInterval, "rate-interval", cfg.RateInterval, "生成リクエストの最小間隔なのだ（0 で制限なし）。")

	// --- 出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "生成物を保存するディレクトリなのだ。")
	rootCmd.PersistentFlags().Float64Var(&cfg.CompositeQuality, "quality", cfg.CompositeQuality, "結合画像の JPEG 品質（0〜1）なのだ。")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、コマンド実行前にログ設定と必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Gemini を使うため、API キーかプロジェクト ID のどちらかは欠かせないのだ！
	if cfg.GeminiAPIKey == "" && cfg.ProjectID == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY（または PROJECT_ID）が設定されていません。Gemini の利用には必須なのだ")
	}
	if cfg.CompositeQuality <= 0 || cfg.CompositeQuality > 1 {
		return fmt.Errorf("--quality は 0 より大きく 1 以下で指定してください: %v", cfg.CompositeQuality)
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, generateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("コマンドの実行に失敗しました", "error", err)
		stop()
		os.Exit(1)
	}
}
