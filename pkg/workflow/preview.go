package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

// Stitcher は画像列を 1 枚に結合します。
type Stitcher interface {
	StitchVertically(images []imagecodec.Buffer) (imagecodec.Buffer, error)
}

// Preview はセッションの変更を監視し、生成済みパネルを結合した画像を最新に保ちます。
// 結合は同時に 1 つだけ実行され、実行中に届いた要求はまとめて 1 回の再実行になります。
type Preview struct {
	session  *Session
	stitcher Stitcher

	mu      sync.Mutex
	running bool
	dirty   bool
	latest  *imagecodec.Buffer
	lastErr error
}

// NewPreview は Preview を作ります。監視を始めるには Watch を呼びます。
func NewPreview(s *Session, stitcher Stitcher) *Preview {
	return &Preview{session: s, stitcher: stitcher}
}

// Watch はセッションの変更のたびに、一括生成中でなければ結合をやり直します。
func (p *Preview) Watch(ctx context.Context) (stop func()) {
	return p.session.Subscribe(func() {
		if p.session.Generating() || ctx.Err() != nil {
			return
		}
		go func() {
			if err := p.Refresh(ctx); err != nil {
				slog.WarnContext(ctx, "プレビュー画像の更新に失敗しました", "error", err)
			}
		}()
	})
}

// Refresh は結合を実行します。別の結合が実行中なら再実行を予約してすぐに戻ります。
func (p *Preview) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.dirty = true
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	for {
		ran, err := p.stitchOnce()

		p.mu.Lock()
		if ran {
			p.lastErr = err
		}
		if !p.dirty || ctx.Err() != nil {
			p.running = false
			p.dirty = false
			p.mu.Unlock()
			return err
		}
		p.dirty = false
		p.mu.Unlock()
	}
}

// stitchOnce は結合を 1 回行います。ran が false なら何もしていません。
func (p *Preview) stitchOnce() (ran bool, err error) {
	// 一括生成の途中では結合しない。終了時に改めて呼ばれる
	if p.session.Generating() {
		return false, nil
	}

	images := p.session.Panels().ReadyImages()
	if len(images) == 0 {
		p.mu.Lock()
		p.latest = nil
		p.mu.Unlock()
		return true, nil
	}

	out, err := p.stitcher.StitchVertically(images)
	if err != nil {
		// 直前の結合結果はそのまま残す
		return true, err
	}

	p.mu.Lock()
	p.latest = &out
	p.mu.Unlock()
	slog.Debug("プレビュー画像を更新しました", "panels", len(images), "bytes", len(out.Data))
	return true, nil
}

// Latest は最新の結合画像を返します。まだ一度も結合できていなければ false を返します。
func (p *Preview) Latest() (imagecodec.Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return imagecodec.Buffer{}, false
	}
	return *p.latest, true
}

// LastError は直近の結合で発生したエラーを返します。
func (p *Preview) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
