package workflow

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/generator"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

const (
	// FailureBlankImage は白紙画像を作れなかったときの失敗理由です。
	FailureBlankImage = "blank image creation failed"
	// FailureTimeout は生成サービスが時間内に応答しなかったときの失敗理由です。
	FailureTimeout = "image generation timed out"
)

// Outcome は 1 回の試行の結果です。Image と Failure のどちらか一方だけが設定されます。
type Outcome struct {
	Image   *imagecodec.Buffer
	Failure string
}

// Patch は結果をパネルに書き込むための部分更新に変換します。
func (o Outcome) Patch() domain.PanelPatch {
	if o.Image != nil {
		return domain.Succeeded(*o.Image)
	}
	return domain.Failed(o.Failure)
}

// Args は Orchestrator の初期化に必要な依存です。
type Args struct {
	Generator generator.ImageGenerator
	Config    Config
}

// Orchestrator はパネル画像の生成を進め、結果をセッションに書き込みます。
type Orchestrator struct {
	generator generator.ImageGenerator
	limiter   *rate.Limiter
	timeout   time.Duration
}

// New は Orchestrator を初期化します。
func New(args Args) (*Orchestrator, error) {
	if args.Generator == nil {
		return nil, fmt.Errorf("ImageGenerator は必須です")
	}
	cfg := args.Config.normalized()

	o := &Orchestrator{
		generator: args.Generator,
		timeout:   cfg.RequestTimeout,
	}
	if cfg.RateInterval > 0 {
		o.limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst)
	}
	return o, nil
}

// GeneratePanel は 1 パネル分の画像を用意します。
// プロンプトが空なら生成サービスを呼ばずに白紙画像を返します。
func (o *Orchestrator) GeneratePanel(ctx context.Context, panel domain.Panel, cfg domain.GenerationConfig) Outcome {
	logger := slog.With("panel_id", panel.ID)

	if panel.IsBlankPrompt() {
		img, err := imagecodec.Blank(domain.PlaceholderSize, domain.PlaceholderSize, color.White)
		if err != nil {
			logger.Error("白紙画像の作成に失敗しました", "error", err)
			return Outcome{Failure: FailureBlankImage}
		}
		return Outcome{Image: &img}
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return Outcome{Failure: failureMessage(err)}
		}
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	img, err := o.generator.Generate(callCtx, generator.Request{
		SceneText:       panel.Prompt,
		StyleText:       cfg.StyleDescription,
		PanelIndex:      panel.Index(),
		ReferenceImages: cfg.ReferenceImages,
	})
	if err == nil && img.IsZero() {
		err = generator.ErrNoImagePayload
	}
	if err != nil {
		logger.Warn("パネル画像の生成に失敗しました", "error", err)
		return Outcome{Failure: failureMessage(err)}
	}

	img = img.WithMIMEType(img.MIMEType, imagecodec.MIMEPNG)
	return Outcome{Image: &img}
}

// GenerateAll は全パネルを同時に生成します。
// 各パネルの結果は終わった順にすぐ書き込まれ、全パネルが決着してから一括生成中フラグが下ります。
// 1 つのパネルの失敗は他のパネルに影響しません。
func (o *Orchestrator) GenerateAll(ctx context.Context, s *Session) error {
	run, err := o.ReserveAll(s)
	if err != nil {
		return err
	}
	run(ctx)
	return nil
}

// ReserveAll は一括生成の実行枠をその場で確保し、残りの処理を行う関数を返します。
// すでに一括生成中なら ErrGenerationInProgress を返します。
// 返された関数は 1 回だけ呼び出してください。呼ぶまでは一括生成中のままです。
func (o *Orchestrator) ReserveAll(s *Session) (run func(ctx context.Context), err error) {
	if !s.beginBatch() {
		return nil, ErrGenerationInProgress
	}
	var once sync.Once
	return func(ctx context.Context) {
		once.Do(func() { o.runBatch(ctx, s) })
	}, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, s *Session) {
	defer s.endBatch()

	cfg := s.Config()
	panels := s.Panels()

	tokens := make([]uint64, len(panels))
	for i, p := range panels {
		token, err := s.store.BeginAttempt(p.ID)
		if err != nil {
			slog.Warn("パネルの生成を開始できませんでした", "panel_id", p.ID, "error", err)
			continue
		}
		tokens[i] = token
	}

	slog.Info("全パネルの生成を開始します", "panels", len(panels), "references", len(cfg.ReferenceImages))
	startTime := time.Now()

	var eg errgroup.Group
	for i, p := range panels {
		i, p := i, p
		if tokens[i] == 0 {
			continue
		}
		eg.Go(func() error {
			o.settle(ctx, s, p, tokens[i], cfg)
			return nil
		})
	}
	_ = eg.Wait()

	counts := s.Panels().CountByStatus()
	slog.Info("全パネルの生成が完了しました",
		"duration", time.Since(startTime).Round(time.Millisecond),
		"ready", counts[domain.StatusReady],
		"failed", counts[domain.StatusFailed])
}

// Retry は 1 パネルだけを現在のプロンプトと生成設定で作り直します。
// 一括生成とは独立して動き、どちらかが後から開始した試行の結果だけが残ります。
func (o *Orchestrator) Retry(ctx context.Context, s *Session, id int) error {
	token, err := s.store.BeginAttempt(id)
	if err != nil {
		return err
	}
	panel, err := s.store.Get(id)
	if err != nil {
		return err
	}
	o.settle(ctx, s, panel, token, s.Config())
	return nil
}

// Reset はパネルを空に戻し、参照画像を消します。画風の指定は残ります。
func (o *Orchestrator) Reset(s *Session) {
	s.reset()
	slog.Info("セッションをリセットしました", "panels", s.PanelCount())
}

func (o *Orchestrator) settle(ctx context.Context, s *Session, panel domain.Panel, token uint64, cfg domain.GenerationConfig) {
	outcome := o.GeneratePanel(ctx, panel, cfg)
	applied, err := s.store.FinishAttempt(panel.ID, token, outcome.Patch())
	switch {
	case err != nil:
		slog.Warn("パネルの結果を書き込めませんでした", "panel_id", panel.ID, "error", err)
	case !applied:
		slog.Info("新しい試行があるため古い結果を破棄しました", "panel_id", panel.ID)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return err.Error()
}
