package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-scenario-kit/internal/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

// IdeaRequester はアイデアカードを要求するクライアントの契約なのだ。
type IdeaRequester interface {
	RequestIdeas(ctx context.Context, req domain.IdeaRequest) ([]domain.IdeaCard, error)
}

// IdeaRunner は業務コンテキストからアイデアカードを得るインターフェースなのだ。
type IdeaRunner interface {
	Run(ctx context.Context) ([]domain.IdeaCard, error)
}

// DefaultIdeaRunner は CLI フラグから IdeaRequest を組み立てる標準実装なのだ。
type DefaultIdeaRunner struct {
	options config.GenerateOptions
	client  IdeaRequester
}

func NewDefaultIdeaRunner(options config.GenerateOptions, client IdeaRequester) *DefaultIdeaRunner {
	return &DefaultIdeaRunner{options: options, client: client}
}

func (r *DefaultIdeaRunner) Run(ctx context.Context) ([]domain.IdeaCard, error) {
	req := domain.IdeaRequest{
		BusinessArea: r.options.BusinessArea,
		PainPoints:   r.options.PainPoints,
		Expectations: r.options.Expectations,
	}
	cards, err := r.client.RequestIdeas(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("アイデアカードの生成に失敗したのだ: %w", err)
	}
	slog.InfoContext(ctx, "アイデアカードを受け取ったのだ", "cards", len(cards))
	return cards, nil
}
