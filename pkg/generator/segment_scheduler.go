package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shouni/go-scenario-kit/pkg/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"

	"golang.org/x/sync/errgroup"
)

// ImageRequester はカット画像を 1 枚要求する契約です。*client.Client が満たします。
type ImageRequester interface {
	RequestSegmentImage(ctx context.Context, seg domain.Segment, useFallbackStyle bool) (domain.ImageReference, error)
}

// SegmentUpdate は 1 回の状態遷移の通知なのだ。
type SegmentUpdate struct {
	Index int
	State domain.SegmentImageState
}

// SegmentScheduler は表示中のシナリオ 1 つにつき 4 つの画像取得タスクを管理します。
// 新しいシナリオを Schedule すると、前のバッチは無効化されます。
type SegmentScheduler struct {
	requester        ImageRequester
	staggerDelay     time.Duration
	fallbackCooldown time.Duration

	mu         sync.Mutex
	generation atomic.Uint64
	current    *Batch
}

// NewSegmentScheduler は SegmentScheduler の新しいインスタンスを初期化します。
func NewSegmentScheduler(requester ImageRequester, cfg config.Config) *SegmentScheduler {
	cfg = cfg.WithDefaults()
	return &SegmentScheduler{
		requester:        requester,
		staggerDelay:     cfg.StaggerDelay,
		fallbackCooldown: cfg.FallbackCooldown,
	}
}

// Schedule は 4 つのカットそれぞれに独立した取得タスクを起動するのだ。
// カット i の初回リクエストは i * StaggerDelay 後に始まるのだ。
func (s *SegmentScheduler) Schedule(ctx context.Context, result *domain.NarrativeResult) (*Batch, error) {
	if result == nil {
		return nil, fmt.Errorf("segment_scheduler: narrative result is nil なのだ")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 置き換え前のバッチは、ここで戻るまでに確実に無効化しておくのだ
	if s.current != nil {
		s.current.Invalidate()
	}

	token := s.generation.Add(1)
	batchCtx, cancel := context.WithCancel(ctx)
	b := &Batch{
		scheduler: s,
		token:     token,
		ctx:       batchCtx,
		cancel:    cancel,
		updates:   make(chan SegmentUpdate, domain.SegmentCount*2),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	s.current = b

	// 親の context が終わった場合（画面の破棄など）も無効化扱いなのだ
	stop := context.AfterFunc(batchCtx, b.Invalidate)

	slog.Info("カット画像の取得を開始するのだ",
		"generation", token,
		"count", domain.SegmentCount,
		"stagger", s.staggerDelay,
	)

	for i, seg := range result.Segments {
		delay := time.Duration(i) * s.staggerDelay
		b.eg.Go(func() error {
			b.runSegment(batchCtx, token, i, seg, delay)
			return nil
		})
	}

	go func() {
		_ = b.eg.Wait()
		stop()
		cancel()
		close(b.updates)
		close(b.done)
	}()

	return b, nil
}

// Reset は現在のバッチを無効化するのだ（画面のリセット時など）。
func (s *SegmentScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Invalidate()
		s.current = nil
	}
}

// Current は最後に Schedule したバッチを返します。Reset 後は nil です。
func (s *SegmentScheduler) Current() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// isCurrent は token が最新の世代かどうかを返すのだ。
func (s *SegmentScheduler) isCurrent(token uint64) bool {
	return s.generation.Load() == token
}

// Batch は 1 つのシナリオに対する 4 つのタスクと、その状態を保持します。
// 各タスクは自分のインデックスの状態だけを書き換えます。
type Batch struct {
	scheduler *SegmentScheduler
	token     uint64
	eg        errgroup.Group
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time

	mu          sync.RWMutex
	invalidated bool
	states      [domain.SegmentCount]domain.SegmentImageState

	updates chan SegmentUpdate
	done    chan struct{}
}

// runSegment は 1 カット分の状態機械なのだ。primary → (cooldown) → fallback の 2 段だけで、
// それ以上のリトライは無いのだ。
func (b *Batch) runSegment(ctx context.Context, token uint64, index int, seg domain.Segment, delay time.Duration) {
	logger := slog.With("segment", index+1, "scene", seg.Title, "generation", token)

	if !sleep(ctx, delay) {
		return
	}

	startTime := time.Now()
	logger.Debug("カット画像の取得を開始", "attempt", domain.AttemptPrimary, "offset", startTime.Sub(b.startedAt).Round(time.Millisecond))

	img, err := b.scheduler.requester.RequestSegmentImage(ctx, seg, false)
	if err == nil {
		if b.transition(token, index, domain.SegmentImageState{Phase: domain.SegmentLoaded, Attempt: domain.AttemptPrimary, Image: img}) {
			logger.Info("カット画像の取得に成功したのだ", "attempt", domain.AttemptPrimary, "duration", time.Since(startTime).Round(time.Millisecond))
		}
		return
	}
	logger.Warn("カット画像の取得に失敗したので、フォールバックを試すのだ", "error", err)

	if !b.transition(token, index, domain.SegmentImageState{Phase: domain.SegmentPending, Attempt: domain.AttemptFallback}) {
		return
	}
	if !sleep(ctx, b.scheduler.fallbackCooldown) {
		return
	}

	img, err = b.scheduler.requester.RequestSegmentImage(ctx, seg, true)
	if err != nil {
		if b.transition(token, index, domain.SegmentImageState{Phase: domain.SegmentFailed, Attempt: domain.AttemptFallback}) {
			logger.Error("フォールバックも失敗したのだ", "error", err)
		}
		return
	}
	if b.transition(token, index, domain.SegmentImageState{Phase: domain.SegmentLoaded, Attempt: domain.AttemptFallback, Image: img}) {
		logger.Info("フォールバックでカット画像を取得したのだ", "duration", time.Since(startTime).Round(time.Millisecond))
	}
}

// transition は「このタスクはまだ有効か」を書き込みの直前にロック下で確認してから状態を更新するのだ。
// 無効化済み、または世代が古い場合は何もせず false を返すのだ。
func (b *Batch) transition(token uint64, index int, next domain.SegmentImageState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 親 context のキャンセルは AfterFunc より先にタスクへ届くことがあるので、ここでも見るのだ
	if b.invalidated || b.ctx.Err() != nil || token != b.token || !b.scheduler.isCurrent(token) {
		return false
	}
	if !domain.CanTransition(b.states[index], next) {
		slog.Warn("不正な状態遷移を無視したのだ", "segment", index+1, "from", b.states[index], "to", next)
		return false
	}
	b.states[index] = next

	// バッファは 1 カットあたりの最大遷移数ぶん確保してあるので詰まらないのだ
	select {
	case b.updates <- SegmentUpdate{Index: index, State: next}:
	default:
	}
	return true
}

// Invalidate は無効化シグナルを上げるのだ。戻った後、このバッチの状態は二度と変わらないのだ。
func (b *Batch) Invalidate() {
	b.mu.Lock()
	already := b.invalidated
	b.invalidated = true
	b.mu.Unlock()

	b.cancel()
	if !already {
		slog.Debug("カット画像のバッチを無効化したのだ", "generation", b.token)
	}
}

// Invalidated は無効化済みかどうかを返します。
func (b *Batch) Invalidated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.invalidated
}

// Generation はこのバッチの世代番号なのだ。
func (b *Batch) Generation() uint64 {
	return b.token
}

// States は全カットの状態のスナップショットを返すのだ。
func (b *Batch) States() [domain.SegmentCount]domain.SegmentImageState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.states
}

// State はカット index（0 始まり）の状態を返すのだ。
func (b *Batch) State(index int) (domain.SegmentImageState, error) {
	if index < 0 || index >= domain.SegmentCount {
		return domain.SegmentImageState{}, fmt.Errorf("segment index %d out of range", index)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.states[index], nil
}

// Updates は状態遷移の通知チャネルです。全タスクが終わると閉じられます。
func (b *Batch) Updates() <-chan SegmentUpdate {
	return b.updates
}

// Done は全タスクが終わると閉じられるチャネルを返すのだ。
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait は全タスクの終了を待ってから、最終状態のスナップショットを返すのだ。
func (b *Batch) Wait(ctx context.Context) ([domain.SegmentCount]domain.SegmentImageState, error) {
	select {
	case <-b.done:
		return b.States(), nil
	case <-ctx.Done():
		return b.States(), ctx.Err()
	}
}

// sleep は context が終わるまでの間だけ d 待つのだ。待ち切れたら true。
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
