package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
)

// ErrPanelNotFound は存在しない ID が指定されたことを表します。
var ErrPanelNotFound = errors.New("panel not found")

// PanelStore は順序付きのパネル集合を保持します。
// パネルへの書き込みはすべてここを通り、並び順は変わりません。
type PanelStore struct {
	mu       sync.RWMutex
	panels   []domain.Panel
	index    map[int]int
	attempts map[int]uint64

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
}

// New は count 個の空パネルを持つストアを作ります。
func New(count int) *PanelStore {
	s := &PanelStore{subscribers: make(map[int]func())}
	s.reset(count)
	return s
}

func (s *PanelStore) reset(count int) {
	s.panels = domain.NewPanels(count)
	s.index = make(map[int]int, count)
	for i, p := range s.panels {
		s.index[p.ID] = i
	}
	s.attempts = make(map[int]uint64, count)
}

// Reset はパネルを count 個の空パネルに作り直します。
// 進行中の試行の結果は、試行番号が一致しなくなるため書き込まれません。
func (s *PanelStore) Reset(count int) {
	s.mu.Lock()
	// 古い試行番号を引き継がないと、作り直し前の結果が後から書き込まれてしまう
	prev := s.attempts
	s.reset(count)
	for id, n := range prev {
		if _, ok := s.index[id]; ok {
			s.attempts[id] = n + 1
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Len はパネル数を返します。
func (s *PanelStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.panels)
}

// Snapshot は現在のパネル列の複製を返します。
func (s *PanelStore) Snapshot() domain.Panels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.Panels, len(s.panels))
	for i, p := range s.panels {
		out[i] = p.Clone()
	}
	return out
}

// Get は ID に対応するパネルの複製を返します。
func (s *PanelStore) Get(id int) (domain.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Panel{}, fmt.Errorf("%w: id=%d", ErrPanelNotFound, id)
	}
	return s.panels[i].Clone(), nil
}

// Update は ID のパネルに patches を適用します。指定されていないフィールドは変わりません。
func (s *PanelStore) Update(id int, patches ...domain.PanelPatch) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: id=%d", ErrPanelNotFound, id)
	}
	s.panels[i] = s.panels[i].Apply(patches...)
	s.mu.Unlock()

	s.notify()
	return nil
}

// UpdateIf は check がエラーを返さなかったときだけ patches を適用します。
// 判定と書き込みは同じロックの中で行われます。
func (s *PanelStore) UpdateIf(id int, check func(domain.Panel) error, patches ...domain.PanelPatch) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: id=%d", ErrPanelNotFound, id)
	}
	if check != nil {
		if err := check(s.panels[i]); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.panels[i] = s.panels[i].Apply(patches...)
	s.mu.Unlock()

	s.notify()
	return nil
}

// BeginAttempt は新しい試行を開始し、その試行番号を返します。
// パネルは処理中になり、画像と失敗理由は消えます。
func (s *PanelStore) BeginAttempt(id int) (uint64, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: id=%d", ErrPanelNotFound, id)
	}
	s.attempts[id]++
	token := s.attempts[id]
	s.panels[i] = s.panels[i].Apply(domain.BeginAttempt())
	s.mu.Unlock()

	s.notify()
	return token, nil
}

// FinishAttempt は試行の結果を書き込みます。
// token がそのパネルの最新の試行でなければ何もせず false を返します。
func (s *PanelStore) FinishAttempt(id int, token uint64, patches ...domain.PanelPatch) (bool, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: id=%d", ErrPanelNotFound, id)
	}
	if s.attempts[id] != token {
		s.mu.Unlock()
		return false, nil
	}
	s.panels[i] = s.panels[i].Apply(patches...)
	s.mu.Unlock()

	s.notify()
	return true, nil
}

// Subscribe は変更通知を受け取る関数を登録し、解除用の関数を返します。
// 通知はロックの外で同期的に呼ばれます。
func (s *PanelStore) Subscribe(fn func()) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *PanelStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
