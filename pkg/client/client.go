// Package client は、シナリオ生成ワーカー（/scenario, /scenario-image, /idea）との通信を担います。
// バックエンドの契約に関する知識はすべてこのパッケージに閉じ込めています。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-scenario-kit/pkg/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

const (
	scenarioPath      = "/scenario"
	scenarioImagePath = "/scenario-image"
	ideaPath          = "/idea"

	// maxDiagnosticBody はエラー時に保持する応答本文の上限なのだ。
	maxDiagnosticBody = 512
	// maxResponseBody は成功応答として読み込む本文の上限なのだ（画像の data URI を含む）。
	maxResponseBody = 32 << 20
)

// Client はステートレスなので、複数のゴルーチンから同時に使って大丈夫なのだ。
type Client struct {
	baseURL    string
	httpClient httpkit.Doer
	timeout    time.Duration
}

// Option は Client の生成オプションです。
type Option func(*Client)

// WithHTTPClient は任意の Doer を使うためのオプションなのだ（テスト用など）。
// 渡されたクライアントの設定は書き換えないのだ。
func WithHTTPClient(d httpkit.Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithTimeout は 1 回の呼び出しに掛けられる上限時間を設定するのだ。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New は baseURL を正規化して Client を作るのだ。
// オプションの順序に関係なく、上限時間は呼び出しごとの context で掛けるのだ。
func New(baseURL string, opts ...Option) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: normalized,
		timeout: config.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// ワーカーは localhost で動かすことも多いので、ネットワーク検証は外すのだ
		c.httpClient = httpkit.New(c.timeout, httpkit.WithSkipNetworkValidation(true))
	}
	return c, nil
}

// Timeout は 1 回の呼び出しに掛ける上限時間を返します。
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// NormalizeBaseURL はスキームの有無を確認し、末尾のスラッシュを落とします。
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("worker url が空なのだ")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("worker url が不正なのだ: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("worker url にはスキームとホストが必要なのだ (https://...): %q", raw)
	}
	return strings.TrimRight(value, "/"), nil
}

// BaseURL は正規化済みのベース URL を返します。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestNarrative は 4 コマシナリオを要求し、検証済みの結果を返すのだ。
// この層ではリトライしないのだ。
func (c *Client) RequestNarrative(ctx context.Context, req domain.NarrativeRequest) (*domain.NarrativeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, scenarioPath, req)
	if err != nil {
		return nil, err
	}

	result, err := domain.ParseNarrativeResult(body)
	if err != nil {
		slog.WarnContext(ctx, "シナリオ応答の検証に失敗したのだ", "error", err)
		return nil, err
	}
	return result, nil
}

type segmentImageRequest struct {
	Cut        domain.Segment `json:"cut"`
	IsFallback bool           `json:"isFallback"`
}

type segmentImageResponse struct {
	ImageDataURL string `json:"imageDataUrl"`
}

// RequestSegmentImage はカット 1 枚分の画像を要求するのだ。
// useFallbackStyle が true の場合、バックエンドは簡素な抽象アイコン風のプロンプトを使うのだ。
func (c *Client) RequestSegmentImage(ctx context.Context, seg domain.Segment, useFallbackStyle bool) (domain.ImageReference, error) {
	if strings.TrimSpace(seg.Title) == "" {
		return "", fmt.Errorf("%w: segment title is empty", domain.ErrInvalidRequest)
	}
	if seg.Features == nil {
		seg.Features = []string{}
	}

	body, err := c.post(ctx, scenarioImagePath, segmentImageRequest{Cut: seg, IsFallback: useFallbackStyle})
	if err != nil {
		return "", err
	}

	var resp segmentImageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: undecodable image response: %v", domain.ErrImageUnavailable, err)
	}
	if strings.TrimSpace(resp.ImageDataURL) == "" {
		return "", fmt.Errorf("%w: response has no imageDataUrl", domain.ErrImageUnavailable)
	}
	return domain.ImageReference(resp.ImageDataURL), nil
}

// RequestIdeas は業務コンテキストからアイデアカードの一覧を要求するのだ。
func (c *Client) RequestIdeas(ctx context.Context, req domain.IdeaRequest) ([]domain.IdeaCard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, ideaPath, req)
	if err != nil {
		return nil, err
	}
	return domain.ParseIdeaCards(body)
}

// post は JSON を POST して 2xx の本文を返すのだ。それ以外は *domain.BackendError になるのだ。
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	startTime := time.Now()
	// Do はリトライしないので、この層の「1 回だけ送る」契約はそのまま保たれるのだ
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.WarnContext(ctx, "バックエンドへの接続に失敗したのだ", "endpoint", path, "error", err)
		return nil, &domain.BackendError{Endpoint: path, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		diag, _ := httpkit.HandleLimitedResponse(httpResp, maxDiagnosticBody)
		slog.WarnContext(ctx, "バックエンドがエラーを返したのだ",
			"endpoint", path,
			"status", httpResp.StatusCode,
			"body", string(diag),
		)
		return nil, &domain.BackendError{
			Endpoint: path,
			Status:   httpResp.StatusCode,
			Body:     strings.TrimSpace(string(diag)),
		}
	}

	body, err := httpkit.HandleLimitedResponse(httpResp, maxResponseBody)
	if err != nil {
		return nil, &domain.BackendError{Endpoint: path, Err: fmt.Errorf("応答本文の読み込みに失敗しました: %w", err)}
	}

	slog.DebugContext(ctx, "バックエンド呼び出し完了",
		"endpoint", path,
		"status", httpResp.StatusCode,
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	return body, nil
}
