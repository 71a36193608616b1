package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-webtoon-kit/internal/builder"
	"github.com/shouni/go-webtoon-kit/internal/config"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/publisher"
)

// Execute はプロンプトファイルを読み込み、全パネルの生成から結合画像の保存までを実行するのだ。
func Execute(ctx context.Context, cfg *config.Config) error {
	prompts, err := readPromptFile(cfg.Options.PromptFile)
	if err != nil {
		return err
	}
	if len(prompts) > 0 {
		cfg.PanelCount = len(prompts)
	}

	appCtx, err := builder.BuildApp(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := Run(ctx, appCtx, prompts)
	if err != nil {
		return err
	}

	slog.Info("縦読み漫画を保存したのだ", "composite", result.CompositePath, "panels", len(result.PanelPaths))
	return nil
}

// Run は組み立て済みのアプリケーションで生成から保存までを実行するのだ。
func Run(ctx context.Context, appCtx *builder.AppContext, prompts []string) (publisher.Result, error) {
	session := appCtx.Session
	for i, p := range prompts {
		if i >= session.PanelCount() {
			slog.Warn("パネル数を超えたプロンプトは無視するのだ", "panel_count", session.PanelCount(), "prompts", len(prompts))
			break
		}
		if err := session.SetPrompt(i+1, p); err != nil {
			return publisher.Result{}, fmt.Errorf("プロンプトの設定に失敗しました: %w", err)
		}
	}

	// --- Phase 1: 全パネルの生成 ---
	if err := appCtx.Orchestrator.GenerateAll(ctx, session); err != nil {
		return publisher.Result{}, fmt.Errorf("パネルの生成に失敗しました: %w", err)
	}
	panels := session.Panels()
	for _, p := range panels {
		if p.Status() == domain.StatusFailed {
			slog.Warn("生成に失敗したパネルがあるのだ", "panel_id", p.ID, "failure", p.Failure)
		}
	}

	// --- Phase 2: 結合 ---
	if err := appCtx.Preview.Refresh(ctx); err != nil {
		return publisher.Result{}, fmt.Errorf("画像の結合に失敗しました: %w", err)
	}
	composite, ok := appCtx.Preview.Latest()
	if !ok {
		return publisher.Result{}, fmt.Errorf("結合できるパネルがありません")
	}

	// --- Phase 3: 保存 ---
	return appCtx.Publisher.Publish(ctx, appCtx.Config.OutputDir, composite, panels, appCtx.Config.Options.SavePanels)
}

func readPromptFile(path string) ([]string, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, fmt.Errorf("プロンプトファイル（--prompt-file）を指定してください")
	case "-":
		r = os.Stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("プロンプトファイル '%s' の読み込みに失敗しました: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return ParsePrompts(r)
}

// ParsePrompts は 1 行を 1 パネルのプロンプトとして読み込むのだ。
// 空行は白紙パネルになり、"#" で始まる行はコメントとして読み飛ばすのだ。末尾の空行は捨てるのだ。
func ParsePrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("プロンプトの読み込みに失敗しました: %w", err)
	}
	for len(prompts) > 0 && prompts[len(prompts)-1] == "" {
		prompts = prompts[:len(prompts)-1]
	}
	return prompts, nil
}
