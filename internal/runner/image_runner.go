package runner

import (
	"context"
	"log/slog"

	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/generator"
)

// ImageRunner は、シナリオの 4 カットの画像を取得するためのインターフェース。
type ImageRunner interface {
	// Run は全カットの取得が終わるまで待ち、最終状態を返す。
	// 個々のカットの失敗はエラーではなく failed 状態として返る。
	Run(ctx context.Context, result *domain.NarrativeResult) ([domain.SegmentCount]domain.SegmentImageState, error)
}

// SegmentImageRunner は SegmentScheduler を使ってカット画像を並行取得する実体。
type SegmentImageRunner struct {
	scheduler *generator.SegmentScheduler
}

// NewSegmentImageRunner は、SegmentImageRunner の新しいインスタンスを生成して返す。
func NewSegmentImageRunner(scheduler *generator.SegmentScheduler) *SegmentImageRunner {
	return &SegmentImageRunner{scheduler: scheduler}
}

// Run はバッチを起動し、状態遷移をログに流しながら完了を待つのだ。
// ctx がキャンセルされるとバッチは無効化され、その時点のスナップショットとエラーを返すのだ。
func (ir *SegmentImageRunner) Run(ctx context.Context, result *domain.NarrativeResult) ([domain.SegmentCount]domain.SegmentImageState, error) {
	var empty [domain.SegmentCount]domain.SegmentImageState

	batch, err := ir.scheduler.Schedule(ctx, result)
	if err != nil {
		return empty, err
	}

	for u := range batch.Updates() {
		slog.DebugContext(ctx, "カットの状態が変わったのだ", "segment", u.Index+1, "state", u.State, "display", u.State.Display())
	}

	states, err := batch.Wait(ctx)
	if err != nil {
		return states, err
	}
	if err := ctx.Err(); err != nil {
		return states, err
	}

	loaded := 0
	for _, st := range states {
		if st.Phase == domain.SegmentLoaded {
			loaded++
		}
	}
	slog.InfoContext(ctx, "カット画像の取得が終わったのだ", "loaded", loaded, "failed", domain.SegmentCount-loaded)
	return states, nil
}
