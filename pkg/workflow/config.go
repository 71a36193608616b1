package workflow

import (
	"time"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
)

// デフォルト値の定義なのだ
const (
	DefaultRateBurst = 2
)

// Config はセッションとオーケストレーターを動作させるための基本設定なのだ。
type Config struct {
	// --- Session ---
	PanelCount       int
	StyleDescription string

	// --- Generation ---
	// RateInterval が 0 のときは生成リクエストを間引かないのだ。
	RateInterval time.Duration
	RateBurst    int
	// RequestTimeout が 0 のときは生成サービスの応答を無期限に待つのだ。
	RequestTimeout time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数なのだ。
func DefaultConfig() Config {
	return Config{
		PanelCount:       domain.DefaultPanelCount,
		StyleDescription: domain.DefaultStyleDescription,
		RateBurst:        DefaultRateBurst,
	}
}

func (c Config) normalized() Config {
	if c.PanelCount <= 0 {
		c.PanelCount = domain.DefaultPanelCount
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	return c
}
