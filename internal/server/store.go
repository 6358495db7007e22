package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/generator"
)

// View は表示中のシナリオ 1 枚分なのだ。シナリオを差し替えると、前の画像取得は無効になるのだ。
type View struct {
	ID        string
	CreatedAt time.Time

	scheduler *generator.SegmentScheduler

	mu       sync.RWMutex
	scenario *domain.NarrativeResult
	batch    *generator.Batch
}

// Replace はシナリオをまるごと差し替えて、新しい画像取得を開始するのだ。
func (v *View) Replace(ctx context.Context, result *domain.NarrativeResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	batch, err := v.scheduler.Schedule(ctx, result)
	if err != nil {
		return fmt.Errorf("画像取得の開始に失敗したのだ: %w", err)
	}
	v.scenario = result
	v.batch = batch
	return nil
}

// Snapshot は現在のシナリオとカットごとの状態を返すのだ。
func (v *View) Snapshot() (*domain.NarrativeResult, [domain.SegmentCount]domain.SegmentImageState, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var states [domain.SegmentCount]domain.SegmentImageState
	var gen uint64
	if v.batch != nil {
		states = v.batch.States()
		gen = v.batch.Generation()
	}
	return v.scenario, states, gen
}

// Reset は画像取得を止めるのだ。
func (v *View) Reset() {
	v.scheduler.Reset()
}

// ViewStore は View をメモリ上に TTL 付きで保持するのだ。期限切れや削除で画像取得も止まるのだ。
type ViewStore struct {
	items    *cache.Cache
	newSched func() *generator.SegmentScheduler
}

// NewViewStore は ViewStore を作るのだ。
func NewViewStore(ttl, cleanup time.Duration, newScheduler func() *generator.SegmentScheduler) *ViewStore {
	s := &ViewStore{
		items:    cache.New(ttl, cleanup),
		newSched: newScheduler,
	}
	s.items.OnEvicted(func(id string, item interface{}) {
		if v, ok := item.(*View); ok {
			v.Reset()
			slog.Debug("ビューを破棄したのだ", "view_id", id)
		}
	})
	return s
}

// Create は新しい View を登録して、画像取得を開始するのだ。
func (s *ViewStore) Create(ctx context.Context, result *domain.NarrativeResult) (*View, error) {
	v := &View{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		scheduler: s.newSched(),
	}
	if err := v.Replace(ctx, result); err != nil {
		return nil, err
	}
	s.items.Set(v.ID, v, cache.DefaultExpiration)
	return v, nil
}

// Get は ID に対応する View を返すのだ。
func (s *ViewStore) Get(id string) (*View, bool) {
	item, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := item.(*View)
	return v, ok
}

// Touch は View の有効期限を延ばすのだ。すでに期限切れで消えた View は戻さないのだ。
func (s *ViewStore) Touch(v *View) bool {
	return s.items.Replace(v.ID, v, cache.DefaultExpiration) == nil
}

// Delete は View を取り除くのだ。OnEvicted 経由で画像取得も止まるのだ。
func (s *ViewStore) Delete(id string) bool {
	if _, ok := s.items.Get(id); !ok {
		return false
	}
	s.items.Delete(id)
	return true
}

// Close は全 View の画像取得を止めて空にするのだ。
func (s *ViewStore) Close() {
	for _, item := range s.items.Items() {
		if v, ok := item.Object.(*View); ok {
			v.Reset()
		}
	}
	s.items.Flush()
}

// Count は保持している View の数なのだ。
func (s *ViewStore) Count() int {
	return s.items.ItemCount()
}
