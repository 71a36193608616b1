package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-webtoon-kit/pkg/asset"
	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

// OutputWriter は生成物を保存先に書き込みます。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// Result は保存したファイルのパスです。
type Result struct {
	CompositePath string
	PanelPaths    []string
}

// Publisher は結合画像とパネル画像を保存します。
type Publisher struct {
	writer OutputWriter
}

// New は Publisher を作ります。
func New(writer OutputWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Publish は結合画像を保存し、savePanels が true ならパネル画像も個別に保存します。
func (p *Publisher) Publish(ctx context.Context, outputDir string, composite imagecodec.Buffer, panels domain.Panels, savePanels bool) (Result, error) {
	result := Result{}

	compositePath, err := p.PublishComposite(ctx, outputDir, composite)
	if err != nil {
		return result, err
	}
	result.CompositePath = compositePath

	if savePanels {
		paths, err := p.PublishPanels(ctx, outputDir, panels)
		if err != nil {
			return result, err
		}
		result.PanelPaths = paths
	}
	return result, nil
}

// PublishComposite は結合画像をダウンロード名で保存し、そのパスを返します。
func (p *Publisher) PublishComposite(ctx context.Context, outputDir string, composite imagecodec.Buffer) (string, error) {
	if composite.IsZero() {
		return "", fmt.Errorf("結合画像が空です")
	}
	fullPath, err := asset.ResolveOutputPath(outputDir, asset.DownloadFileNameFor(composite.MIMEType))
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, fullPath, bytes.NewReader(composite.Data), composite.MIMEType); err != nil {
		return "", fmt.Errorf("結合画像の書き込みに失敗しました %s: %w", fullPath, err)
	}
	slog.Info("結合画像を保存しました", "path", fullPath, "bytes", len(composite.Data))
	return fullPath, nil
}

// PublishPanels は画像を持つパネルを panel_<id>.<ext> として保存します。
func (p *Publisher) PublishPanels(ctx context.Context, outputDir string, panels domain.Panels) ([]string, error) {
	panelDir, err := asset.ResolveOutputPath(outputDir, asset.DefaultPanelDir)
	if err != nil {
		return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	var paths []string
	for _, panel := range panels {
		if !panel.HasImage() {
			continue
		}
		fullPath, err := asset.PanelPath(panelDir, panel.ID, panel.Image.MIMEType)
		if err != nil {
			return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(panel.Image.Data), panel.Image.MIMEType); err != nil {
			return nil, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		paths = append(paths, fullPath)
	}
	return paths, nil
}
