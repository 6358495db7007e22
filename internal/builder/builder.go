package builder

import (
	"fmt"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-scenario-kit/internal/config"
	"github.com/shouni/go-scenario-kit/internal/runner"
	"github.com/shouni/go-scenario-kit/pkg/client"
	"github.com/shouni/go-scenario-kit/pkg/generator"
	"github.com/shouni/go-scenario-kit/pkg/publisher"
)

// BuildScenarioRunner はシナリオ生成を担当する Runner を構築します。
func BuildScenarioRunner(appCtx *AppContext) runner.ScenarioRunner {
	return runner.NewDefaultScenarioRunner(appCtx.Options, appCtx.Client)
}

// BuildImageRunner はカット画像の並行取得を担当する Runner を構築します。
func BuildImageRunner(appCtx *AppContext) runner.ImageRunner {
	return runner.NewSegmentImageRunner(BuildScheduler(appCtx))
}

// BuildScheduler は設定済みの SegmentScheduler を返すのだ。
func BuildScheduler(appCtx *AppContext) *generator.SegmentScheduler {
	return generator.NewSegmentScheduler(appCtx.Client, appCtx.Config.Library())
}

// BuildPublisherRunner はコンテンツ保存を行う Runner を構築します。
func BuildPublisherRunner(appCtx *AppContext) runner.PublisherRunner {
	return runner.NewDefaultPublisherRunner(appCtx.Config.ResolvedOutputDir(), publisher.NewCardPublisher(appCtx.Writer))
}

// BuildIdeaRunner はアイデアカード生成を担当する Runner を構築します。
func BuildIdeaRunner(appCtx *AppContext) runner.IdeaRunner {
	return runner.NewDefaultIdeaRunner(appCtx.Options, appCtx.Client)
}

// InitializeClient はワーカークライアントを初期化します。
func InitializeClient(cfg *config.Config) (*client.Client, error) {
	lib := cfg.Library()
	c, err := client.New(lib.WorkerBaseURL, client.WithTimeout(lib.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("ワーカークライアントの初期化に失敗しました: %w", err)
	}
	return c, nil
}

// NewAppContextFromConfig はクライアントと Reader/Writer を組み立てて AppContext を返すのだ。
// GCS/S3 のクライアントは渡さないので、入出力はローカルパスだけが対象なのだ。
func NewAppContextFromConfig(cfg *config.Config) (*AppContext, error) {
	c, err := InitializeClient(cfg)
	if err != nil {
		return nil, err
	}
	appCtx := NewAppContext(cfg, c,
		remoteio.NewUniversalInputReader(nil, nil),
		remoteio.NewUniversalIOWriter(nil, nil),
	)
	return &appCtx, nil
}
