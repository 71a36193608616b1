package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

// DefaultImageModel はパネル生成に使う既定のモデルです。
const DefaultImageModel = "gemini-2.5-flash-image"

// contentGenerator は genai.Models のうち、ここで使うメソッドだけを切り出したものです。
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig は Gemini クライアントの接続設定です。
// ProjectID が設定されていれば Vertex AI、なければ API キーで Gemini API に接続します。
type GeminiConfig struct {
	APIKey     string
	ProjectID  string
	LocationID string
	Model      string
}

// GeminiGenerator は Gemini の画像生成モデルを使う ImageGenerator です。
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

// NewGeminiGenerator は genai クライアントを初期化して GeminiGenerator を返します。
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.ProjectID != "" {
		clientConfig = &genai.ClientConfig{
			Project:  cfg.ProjectID,
			Location: cfg.LocationID,
			Backend:  genai.BackendVertexAI,
		}
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIキーまたはプロジェクトIDは必須です")
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("genaiクライアントの初期化に失敗しました: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg.Model), nil
}

func newGeminiGenerator(models contentGenerator, model string) *GeminiGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	return &GeminiGenerator{models: models, model: model}
}

// Generate は参照画像とプロンプトを送り、応答に含まれる最初の画像を返します。
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (imagecodec.Buffer, error) {
	parts := make([]*genai.Part, 0, len(req.ReferenceImages)+1)
	for _, ref := range req.ReferenceImages {
		if ref.IsZero() {
			continue
		}
		mimeType := ref.MIMEType
		if mimeType == "" {
			mimeType = imagecodec.MIMEPNG
		}
		parts = append(parts, genai.NewPartFromBytes(ref.Data, mimeType))
	}
	parts = append(parts, genai.NewPartFromText(BuildPanelPrompt(req)))

	logger := slog.With("panel_index", req.PanelIndex+1, "model", g.model, "references", len(parts)-1)
	logger.Info("パネル画像の生成を開始します")
	startTime := time.Now()

	resp, err := g.models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	)
	if err != nil {
		return imagecodec.Buffer{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	img, err := extractImage(resp)
	if err != nil {
		return imagecodec.Buffer{}, err
	}
	logger.Info("パネル画像の生成が完了しました", "duration", time.Since(startTime).Round(time.Millisecond), "mime_type", img.MIMEType)
	return img, nil
}

// extractImage は最初の候補から、データを持つ最初のインライン画像を取り出します。
func extractImage(resp *genai.GenerateContentResponse) (imagecodec.Buffer, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return imagecodec.Buffer{}, ErrNoImagePayload
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return imagecodec.Buffer{}, ErrNoImagePayload
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		buf := imagecodec.Buffer{Data: part.InlineData.Data}
		return buf.WithMIMEType(part.InlineData.MIMEType, imagecodec.MIMEPNG), nil
	}
	return imagecodec.Buffer{}, ErrNoImagePayload
}
