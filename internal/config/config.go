package config

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-webtoon-kit/pkg/compositor"
	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/generator"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
	"github.com/shouni/go-webtoon-kit/pkg/workflow"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel       = generator.DefaultImageModel
	DefaultListenAddr       = ":8080"
	DefaultOutputDir        = "output"
	DefaultRequestTimeout   = time.Duration(0) // 0 は無期限に待つ
	DefaultRateInterval     = time.Duration(0) // 0 は間引かない
	DefaultCompositeQuality = imagecodec.DefaultQuality
	DefaultDecodeCacheTTL   = compositor.DefaultDecodeCacheTTL
)

// Config はアプリケーション全体の環境設定（APIキーやクラウド設定）を保持する構造体なのだ。
type Config struct {
	ProjectID    string
	LocationID   string
	GeminiAPIKey string
	ImageModel   string

	StyleDescription string
	PanelCount       int
	RequestTimeout   time.Duration
	RateInterval     time.Duration

	CompositeQuality float64
	DecodeCacheTTL   time.Duration

	ListenAddr string
	OutputDir  string

	Options GenerateOptions
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	PromptFile string // --prompt-file
	SavePanels bool   // --save-panels
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		ProjectID:        envutil.GetEnv("PROJECT_ID", ""),
		LocationID:       envutil.GetEnv("REGION", ""),
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		ImageModel:       envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		StyleDescription: envutil.GetEnv("WEBTOON_STYLE", domain.DefaultStyleDescription),
		PanelCount:       envInt("WEBTOON_PANEL_COUNT", domain.DefaultPanelCount),
		RequestTimeout:   envDuration("WEBTOON_REQUEST_TIMEOUT", DefaultRequestTimeout),
		RateInterval:     envDuration("WEBTOON_RATE_INTERVAL", DefaultRateInterval),
		CompositeQuality: envFloat("WEBTOON_COMPOSITE_QUALITY", DefaultCompositeQuality),
		DecodeCacheTTL:   envDuration("WEBTOON_DECODE_CACHE_TTL", DefaultDecodeCacheTTL),
		ListenAddr:       listenAddr(envutil.GetEnv("PORT", "")),
		OutputDir:        envutil.GetEnv("WEBTOON_OUTPUT_DIR", DefaultOutputDir),
	}
}

// Workflow はセッションとオーケストレーター向けの設定に変換するのだ。
func (c *Config) Workflow() workflow.Config {
	wc := workflow.DefaultConfig()
	wc.PanelCount = c.PanelCount
	wc.StyleDescription = c.StyleDescription
	wc.RequestTimeout = c.RequestTimeout
	wc.RateInterval = c.RateInterval
	return wc
}

func listenAddr(port string) string {
	if port == "" {
		return DefaultListenAddr
	}
	return ":" + port
}

func envInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("環境変数の値が不正なので既定値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		slog.Warn("環境変数の値が不正なので既定値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		slog.Warn("環境変数の値が不正なので既定値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}
