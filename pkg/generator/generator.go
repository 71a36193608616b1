package generator

import (
	"context"
	"errors"

	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

var (
	// ErrNoImagePayload は応答に画像データが含まれていなかったことを表します。
	ErrNoImagePayload = errors.New("no image data found in response")
	// ErrTransport は生成サービスとの通信そのものに失敗したことを表します。
	ErrTransport = errors.New("image generator request failed")
)

// Request は 1 パネル分の生成リクエストです。
type Request struct {
	SceneText  string
	StyleText  string
	PanelIndex int // 0 始まり
	// ReferenceImages はヘッダを取り除いた生の画像データで、順序どおりに送られます。
	ReferenceImages []imagecodec.Buffer
}

// ImageGenerator はテキストと参照画像から画像を 1 枚生成する外部サービスです。
type ImageGenerator interface {
	Generate(ctx context.Context, req Request) (imagecodec.Buffer, error)
}

// GeneratorFunc は関数を ImageGenerator として扱うためのアダプタです。
type GeneratorFunc func(ctx context.Context, req Request) (imagecodec.Buffer, error)

// Generate は f(ctx, req) を呼びます。
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (imagecodec.Buffer, error) {
	return f(ctx, req)
}
