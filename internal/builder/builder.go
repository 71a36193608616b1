package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-webtoon-kit/internal/config"

	"github.com/shouni/go-webtoon-kit/pkg/compositor"
	"github.com/shouni/go-webtoon-kit/pkg/generator"
	"github.com/shouni/go-webtoon-kit/pkg/publisher"
	"github.com/shouni/go-webtoon-kit/pkg/workflow"
)

// BuildApp は Gemini を使う ImageGenerator を初期化し、アプリケーション全体を組み立てます。
func BuildApp(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	imgGen, err := InitializeImageGenerator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
	}
	return BuildAppWithGenerator(cfg, imgGen)
}

// BuildAppWithGenerator は与えられた ImageGenerator でアプリケーションを組み立てます。
func BuildAppWithGenerator(cfg *config.Config, imgGen generator.ImageGenerator) (*AppContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config は必須です")
	}
	wc := cfg.Workflow()

	orch, err := workflow.New(workflow.Args{Generator: imgGen, Config: wc})
	if err != nil {
		return nil, fmt.Errorf("オーケストレーターの初期化に失敗しました: %w", err)
	}

	session := workflow.NewSession(wc)
	comp := compositor.New(
		compositor.WithQuality(cfg.CompositeQuality),
		compositor.WithDecodeCacheTTL(cfg.DecodeCacheTTL),
	)

	return &AppContext{
		Config:       cfg,
		Session:      session,
		Orchestrator: orch,
		Preview:      workflow.NewPreview(session, comp),
		Publisher:    publisher.New(publisher.NewLocalWriter()),
	}, nil
}

// InitializeImageGenerator は設定に従って Gemini の ImageGenerator を初期化します。
func InitializeImageGenerator(ctx context.Context, cfg *config.Config) (generator.ImageGenerator, error) {
	return generator.NewGeminiGenerator(ctx, generator.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		ProjectID:  cfg.ProjectID,
		LocationID: cfg.LocationID,
		Model:      cfg.ImageModel,
	})
}
