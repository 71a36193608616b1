package workflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
	"github.com/shouni/go-webtoon-kit/pkg/store"
)

var (
	// ErrGenerationInProgress は一括生成の実行中に、もう一度一括生成が要求されたことを表します。
	ErrGenerationInProgress = errors.New("generation already in progress")
	// ErrPanelBusy は生成中のパネルのプロンプトを変更しようとしたことを表します。
	ErrPanelBusy = errors.New("panel is being generated")
	// ErrReferenceIndex は存在しない参照画像の位置が指定されたことを表します。
	ErrReferenceIndex = errors.New("reference image index out of range")
)

// Session は 1 人のユーザーの作業状態です。パネル、生成設定、一括生成中フラグを持ちます。
type Session struct {
	store      *store.PanelStore
	panelCount int

	mu         sync.RWMutex
	config     domain.GenerationConfig
	generating bool

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewSession は空のパネルと既定の生成設定でセッションを作ります。
func NewSession(cfg Config) *Session {
	cfg = cfg.normalized()
	gc := domain.NewGenerationConfig()
	if cfg.StyleDescription != "" {
		gc.StyleDescription = cfg.StyleDescription
	}
	return &Session{
		store:      store.New(cfg.PanelCount),
		panelCount: cfg.PanelCount,
		config:     gc,
		listeners:  make(map[int]func()),
	}
}

// Store はパネルを保持するストアを返します。
func (s *Session) Store() *store.PanelStore {
	return s.store
}

// PanelCount はリセット時に作り直すパネル数です。
func (s *Session) PanelCount() int {
	return s.panelCount
}

// Panels は全パネルの複製を返します。
func (s *Session) Panels() domain.Panels {
	return s.store.Snapshot()
}

// Panel は ID のパネルの複製を返します。
func (s *Session) Panel(id int) (domain.Panel, error) {
	return s.store.Get(id)
}

// Config は生成設定の複製を返します。
func (s *Session) Config() domain.GenerationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// Generating は一括生成が進行中かどうかを返します。
func (s *Session) Generating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generating
}

// SetPrompt はパネルのプロンプトを書き換えます。生成中のパネルは変更できません。
func (s *Session) SetPrompt(id int, prompt string) error {
	notPending := func(p domain.Panel) error {
		if p.Pending {
			return fmt.Errorf("%w: id=%d", ErrPanelBusy, id)
		}
		return nil
	}
	return s.store.UpdateIf(id, notPending, domain.SetPrompt(prompt))
}

// SetStyleDescription は画風の指定を書き換えます。
func (s *Session) SetStyleDescription(style string) {
	s.mu.Lock()
	s.config.StyleDescription = style
	s.mu.Unlock()
}

// AddReferenceImages は参照画像を末尾に追加します。
func (s *Session) AddReferenceImages(images ...imagecodec.Buffer) {
	s.mu.Lock()
	for _, img := range images {
		if img.IsZero() {
			continue
		}
		s.config.ReferenceImages = append(s.config.ReferenceImages, img.Clone())
	}
	s.mu.Unlock()
}

// RemoveReferenceImage は index 番目の参照画像を取り除きます。残りの順序は保たれます。
func (s *Session) RemoveReferenceImage(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.config.ReferenceImages
	if index < 0 || index >= len(refs) {
		return fmt.Errorf("%w: %d", ErrReferenceIndex, index)
	}
	s.config.ReferenceImages = append(refs[:index:index], refs[index+1:]...)
	return nil
}

// Subscribe はパネルの変更と一括生成の終了を通知する関数を登録します。
func (s *Session) Subscribe(fn func()) (cancel func()) {
	cancelStore := s.store.Subscribe(fn)

	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		cancelStore()
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Session) beginBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return false
	}
	s.generating = true
	return true
}

func (s *Session) endBatch() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()

	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// reset はパネルを作り直し、参照画像を消します。画風の指定は残ります。
func (s *Session) reset() {
	s.mu.Lock()
	s.config.ReferenceImages = nil
	s.mu.Unlock()
	s.store.Reset(s.panelCount)
}
