package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-webtoon-kit/internal/pipeline"
)

// generateCmd は、プロンプトファイルから全パネルを生成して結合画像を保存するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "プロンプトファイルから縦読み漫画を生成するのだ。",
	Long: `1 行を 1 パネルのプロンプトとして読み込み、全パネルを同時に生成するのだ。
空行のパネルは白紙になるのだ。生成後はパネルを縦に結合し nano-webtoon.jpg として保存するのだ。`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVarP(&cfg.Options.PromptFile, "prompt-file", "f", "", "プロンプトファイルのパス（'-' で標準入力）なのだ。")
	generateCmd.Flags().BoolVar(&cfg.Options.SavePanels, "save-panels", false, "パネル画像も個別に保存するのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	slog.Info("縦読み漫画の生成を開始するのだ！",
		"image_model", cfg.ImageModel,
		"style", cfg.StyleDescription,
		"output", cfg.OutputDir)

	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("生成処理中にエラーが発生しました: %w", err)
	}

	slog.Info("すべての工程が完了したのだ！")
	return nil
}
