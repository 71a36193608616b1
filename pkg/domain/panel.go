package domain

import (
	"strings"

	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

const (
	// DefaultPanelCount はセッション開始時およびリセット時に用意するパネル数です。
	DefaultPanelCount = 20
	// PlaceholderSize はプロンプトが空のパネルに使う白紙画像の一辺の長さです。
	PlaceholderSize = 1024
)

// PanelStatus はパネルの現在の状態です。
type PanelStatus string

const (
	StatusIdle    PanelStatus = "idle"
	StatusPending PanelStatus = "pending"
	StatusFailed  PanelStatus = "failed"
	StatusReady   PanelStatus = "ready"
)

// Panel は縦読み漫画の 1 コマを表します。
// ID は 1 始まりでセッション中に再利用されません。
type Panel struct {
	ID      int                `json:"id"`
	Prompt  string             `json:"prompt"`
	Image   *imagecodec.Buffer `json:"-"`
	Pending bool               `json:"pending"`
	Failure string             `json:"failure,omitempty"`
}

// Status は Pending、Failure、Image の組み合わせから状態を導きます。
func (p Panel) Status() PanelStatus {
	switch {
	case p.Pending:
		return StatusPending
	case p.Failure != "":
		return StatusFailed
	case p.Image != nil:
		return StatusReady
	default:
		return StatusIdle
	}
}

// HasImage は生成済み画像を持っているかどうかを返します。
func (p Panel) HasImage() bool {
	return p.Image != nil && !p.Image.IsZero()
}

// IsBlankPrompt は前後の空白を除いたプロンプトが空かどうかを返します。
func (p Panel) IsBlankPrompt() bool {
	return strings.TrimSpace(p.Prompt) == ""
}

// Index はパネルの 0 始まりの位置です。
func (p Panel) Index() int {
	return p.ID - 1
}

// Clone は画像データも含めて複製したパネルを返します。
func (p Panel) Clone() Panel {
	if p.Image != nil {
		img := p.Image.Clone()
		p.Image = &img
	}
	return p
}

// NewPanels は 1 から count までの ID を持つ空のパネル列を作ります。
func NewPanels(count int) []Panel {
	panels := make([]Panel, count)
	for i := range panels {
		panels[i] = Panel{ID: i + 1}
	}
	return panels
}

// Panels はパネルの並びです。
type Panels []Panel

// ReadyImages は画像を持つパネルの画像だけをパネル順に返します。
func (ps Panels) ReadyImages() []imagecodec.Buffer {
	images := make([]imagecodec.Buffer, 0, len(ps))
	for _, p := range ps {
		if p.HasImage() {
			images = append(images, *p.Image)
		}
	}
	return images
}

// CountByStatus は状態ごとのパネル数を数えます。
func (ps Panels) CountByStatus() map[PanelStatus]int {
	counts := make(map[PanelStatus]int, 4)
	for _, p := range ps {
		counts[p.Status()]++
	}
	return counts
}
