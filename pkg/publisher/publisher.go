package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-scenario-kit/pkg/asset"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string                      // 生成された <role>_scenario.md のパス
	JSONPath     string                      // 生成された scenario.json のパス
	ImagePaths   [domain.SegmentCount]string // 保存されたカット画像のパス（取得できなかったカットは空）
}

// IdeaPublishResult はアイデアカード書き出しの結果なのだ。
type IdeaPublishResult struct {
	MarkdownPath string
	JSONPath     string
}

// CardPublisher はシナリオカードの永続化とフォーマット変換を担います。
type CardPublisher struct {
	writer remoteio.OutputWriter
}

// NewCardPublisher は指定された writer で CardPublisher を作るのだ。
func NewCardPublisher(writer remoteio.OutputWriter) *CardPublisher {
	return &CardPublisher{writer: writer}
}

// Publish は画像の保存、Markdown の構築、JSON の書き出しを一括して実行するのだ！
// 画像が取得できていないカット、保存に失敗したカットはプレースホルダーになるだけで、エラーにはしないのだ。
func (p *CardPublisher) Publish(ctx context.Context, result *domain.NarrativeResult, states [domain.SegmentCount]domain.SegmentImageState, opts Options) (PublishResult, error) {
	out := PublishResult{}
	if result == nil {
		return out, fmt.Errorf("publisher: シナリオが空です")
	}

	// 1. 出力パスの解決
	markdownPath, err := asset.ResolvePath(opts.OutputDir, asset.ScenarioMarkdownName(string(result.Role)))
	if err != nil {
		return out, err
	}
	jsonPath, err := asset.ResolvePath(opts.OutputDir, asset.DefaultScenarioJSON)
	if err != nil {
		return out, err
	}
	imgDir, err := asset.ResolvePath(opts.OutputDir, asset.DefaultImageDir)
	if err != nil {
		return out, err
	}

	// 2. 画像の保存
	am := NewAssetManager(p.writer, imgDir)
	var relativePaths [domain.SegmentCount]string
	for i, st := range states {
		if st.Phase != domain.SegmentLoaded {
			continue
		}
		name, err := am.SaveCutImage(ctx, i+1, st.Image)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			slog.WarnContext(ctx, "カット画像を保存できなかったので、プレースホルダーにするのだ", "segment", i+1, "error", err)
			continue
		}
		relativePaths[i] = path.Join(asset.DefaultImageDir, name)
		out.ImagePaths[i], _ = asset.ResolvePath(imgDir, name)
	}

	// 3. Markdown の書き出し
	content := buildScenarioMarkdown(result, relativePaths)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return out, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	out.MarkdownPath = markdownPath

	// 4. JSON の書き出し（image サブコマンドで読み戻せる形なのだ）
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return out, fmt.Errorf("シナリオのエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, jsonPath, bytes.NewReader(data), "application/json"); err != nil {
		return out, fmt.Errorf("jsonファイルの書き込みに失敗しました: %w", err)
	}
	out.JSONPath = jsonPath

	slog.InfoContext(ctx, "シナリオカードを書き出したのだ",
		"markdown", out.MarkdownPath,
		"json", out.JSONPath,
		"images", countNonEmpty(out.ImagePaths[:]),
	)
	return out, nil
}

// PublishIdeas はアイデアカードを ideas.md と ideas.json に書き出すのだ。
func (p *CardPublisher) PublishIdeas(ctx context.Context, cards []domain.IdeaCard, opts Options) (IdeaPublishResult, error) {
	out := IdeaPublishResult{}

	markdownPath, err := asset.ResolvePath(opts.OutputDir, asset.DefaultIdeasMarkdown)
	if err != nil {
		return out, err
	}
	jsonPath, err := asset.ResolvePath(opts.OutputDir, asset.DefaultIdeasJSON)
	if err != nil {
		return out, err
	}

	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(buildIdeasMarkdown(cards)), "text/markdown; charset=utf-8"); err != nil {
		return out, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	out.MarkdownPath = markdownPath

	if cards == nil {
		cards = []domain.IdeaCard{}
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return out, fmt.Errorf("アイデアカードのエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, jsonPath, bytes.NewReader(data), "application/json"); err != nil {
		return out, fmt.Errorf("jsonファイルの書き込みに失敗しました: %w", err)
	}
	out.JSONPath = jsonPath

	slog.InfoContext(ctx, "アイデアカードを書き出したのだ", "markdown", markdownPath, "cards", len(cards))
	return out, nil
}

func countNonEmpty(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
