package runner

import (
	"context"

	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/publisher"
)

// PublisherRunner はパブリッシュ処理のインターフェースです。
type PublisherRunner interface {
	Run(ctx context.Context, result *domain.NarrativeResult, states [domain.SegmentCount]domain.SegmentImageState) (publisher.PublishResult, error)
	RunIdeas(ctx context.Context, cards []domain.IdeaCard) (publisher.IdeaPublishResult, error)
}

// DefaultPublisherRunner は pkg/publisher を利用した標準実装です。
type DefaultPublisherRunner struct {
	outputDir string
	publisher *publisher.CardPublisher
}

func NewDefaultPublisherRunner(outputDir string, pub *publisher.CardPublisher) *DefaultPublisherRunner {
	return &DefaultPublisherRunner{
		outputDir: outputDir,
		publisher: pub,
	}
}

func (pr *DefaultPublisherRunner) Run(ctx context.Context, result *domain.NarrativeResult, states [domain.SegmentCount]domain.SegmentImageState) (publisher.PublishResult, error) {
	return pr.publisher.Publish(ctx, result, states, publisher.Options{OutputDir: pr.outputDir})
}

func (pr *DefaultPublisherRunner) RunIdeas(ctx context.Context, cards []domain.IdeaCard) (publisher.IdeaPublishResult, error) {
	return pr.publisher.PublishIdeas(ctx, cards, publisher.Options{OutputDir: pr.outputDir})
}
