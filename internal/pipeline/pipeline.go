package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-scenario-kit/internal/builder"
	"github.com/shouni/go-scenario-kit/internal/config"
	"github.com/shouni/go-scenario-kit/internal/runner"
	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/publisher"
)

// ExecuteScenario は、シナリオ生成 → 画像取得 → 書き出しの全フェーズを実行するのだ。
func ExecuteScenario(ctx context.Context, cfg *config.Config) (publisher.PublishResult, error) {
	appCtx, err := builder.NewAppContextFromConfig(cfg)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	// --- Phase 1: Scenario Phase (シナリオ生成) ---
	slog.Info("Phase 1: シナリオ生成を開始するのだ...")
	result, err := builder.BuildScenarioRunner(appCtx).Run(ctx)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	return runImageAndPublish(ctx, appCtx, result)
}

// ExecuteImageOnly は、書き出し済みの scenario.json を読み込み、
// 画像取得と書き出し（Phase 2 & 3）を実行するのだ。
func ExecuteImageOnly(ctx context.Context, cfg *config.Config) (publisher.PublishResult, error) {
	appCtx, err := builder.NewAppContextFromConfig(cfg)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	result, err := runner.LoadScenarioFile(ctx, appCtx.Reader, cfg.Options.ScriptFile)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	return runImageAndPublish(ctx, appCtx, result)
}

// ExecuteIdea は、アイデアカードを生成して書き出すのだ。
func ExecuteIdea(ctx context.Context, cfg *config.Config) (publisher.IdeaPublishResult, error) {
	appCtx, err := builder.NewAppContextFromConfig(cfg)
	if err != nil {
		return publisher.IdeaPublishResult{}, err
	}

	cards, err := builder.BuildIdeaRunner(appCtx).Run(ctx)
	if err != nil {
		return publisher.IdeaPublishResult{}, err
	}

	res, err := builder.BuildPublisherRunner(appCtx).RunIdeas(ctx, cards)
	if err != nil {
		return res, fmt.Errorf("アイデアカードの書き出しに失敗したのだ: %w", err)
	}
	return res, nil
}

func runImageAndPublish(ctx context.Context, appCtx *builder.AppContext, result *domain.NarrativeResult) (publisher.PublishResult, error) {
	// --- Phase 2: Image Phase (カット画像の取得) ---
	slog.Info("Phase 2: カット画像の取得を開始するのだ...", "segments", domain.SegmentCount)
	states, err := builder.BuildImageRunner(appCtx).Run(ctx, result)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("カット画像の取得が中断されたのだ: %w", err)
	}

	// --- Phase 3: Publish Phase (書き出し) ---
	slog.Info("Phase 3: 書き出しを開始するのだ...")
	res, err := builder.BuildPublisherRunner(appCtx).Run(ctx, result, states)
	if err != nil {
		return res, fmt.Errorf("書き出しに失敗したのだ: %w", err)
	}

	slog.Info("シナリオカードが完成したのだ！", "markdown", res.MarkdownPath)
	return res, nil
}
