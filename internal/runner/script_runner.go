package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-scenario-kit/internal/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

// NarrativeRequester はシナリオを要求するクライアントの契約なのだ。*client.Client が満たすのだ。
type NarrativeRequester interface {
	RequestNarrative(ctx context.Context, req domain.NarrativeRequest) (*domain.NarrativeResult, error)
}

// ScenarioRunner は、フォーム入力から検証済みの 4 コマシナリオを得るためのインターフェースなのだ。
type ScenarioRunner interface {
	// Run はバックエンドにシナリオを要求し、検証済みの結果を返すのだ。
	Run(ctx context.Context) (*domain.NarrativeResult, error)
}

// DefaultScenarioRunner は CLI フラグからリクエストを組み立てる標準実装なのだ。
type DefaultScenarioRunner struct {
	options config.GenerateOptions
	client  NarrativeRequester
}

// NewDefaultScenarioRunner は、DefaultScenarioRunner の新しいインスタンスを生成して返すのだ。
func NewDefaultScenarioRunner(options config.GenerateOptions, client NarrativeRequester) *DefaultScenarioRunner {
	return &DefaultScenarioRunner{
		options: options,
		client:  client,
	}
}

// Run は、リクエストの組み立て、バックエンド呼び出し、結果の検証を一気に行うのだ。
func (sr *DefaultScenarioRunner) Run(ctx context.Context) (*domain.NarrativeResult, error) {
	req, err := domain.NewNarrativeRequest(sr.options.IdeaName, sr.options.IdeaOverview, sr.options.Cuts[:]...)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "シナリオの生成を開始するのだ", "idea", req.IdeaName)
	result, err := sr.client.RequestNarrative(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("シナリオの生成に失敗したのだ: %w", err)
	}

	slog.InfoContext(ctx, "シナリオを受け取ったのだ",
		"role", result.Role,
		"classification", result.Role.Classification(),
		"child_roles", len(result.ChildRoles),
	)
	return result, nil
}

// LoadScenarioFile は書き出し済みの scenario.json を reader 経由で読み込み、検証付きでパースするのだ。
func LoadScenarioFile(ctx context.Context, reader remoteio.InputReader, path string) (*domain.NarrativeResult, error) {
	f, err := reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("JSONファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("JSONファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	if !json.Valid(raw) {
		slog.Warn("JSONとして不正なので、本文から抽出を試みるのだ", "path", path)
	}

	result, err := domain.ParseNarrativeResult(raw)
	if err != nil {
		return nil, fmt.Errorf("JSONファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	return result, nil
}
