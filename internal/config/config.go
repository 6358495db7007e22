package config

import (
	"log/slog"
	"time"

	"github.com/shouni/go-utils/envutil"

	libcfg "github.com/shouni/go-scenario-kit/pkg/config"
)

// デフォルト値の定義なのだ
const (
	DefaultWorkerBaseURL = "http://localhost:8787"
	DefaultHTTPTimeout   = libcfg.DefaultRequestTimeout
	DefaultServerAddr    = ":8080"
	DefaultOutputDir     = "output" // パブリッシャーで使用するデフォルト保存先なのだ
)

// Config はアプリケーション全体の環境設定（ワーカーの URL や待ち時間）を保持する構造体なのだ。
type Config struct {
	WorkerBaseURL    string
	HTTPTimeout      time.Duration
	StaggerDelay     time.Duration
	FallbackCooldown time.Duration
	ViewTTL          time.Duration
	ServerAddr       string
	OutputDir        string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		WorkerBaseURL:    envutil.GetEnv("WORKER_BASE_URL", DefaultWorkerBaseURL),
		HTTPTimeout:      getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		StaggerDelay:     getDuration("STAGGER_DELAY", libcfg.DefaultStaggerDelay),
		FallbackCooldown: getDuration("FALLBACK_COOLDOWN", libcfg.DefaultFallbackCooldown),
		ViewTTL:          getDuration("VIEW_TTL", libcfg.DefaultViewTTL),
		ServerAddr:       envutil.GetEnv("SERVER_ADDR", DefaultServerAddr),
		OutputDir:        envutil.GetEnv("OUTPUT_DIR", DefaultOutputDir),
	}
	return cfg
}

// Library は pkg 層に渡す設定に詰め替えるのだ。
func (c *Config) Library() libcfg.Config {
	timeout := c.HTTPTimeout
	if c.Options.HTTPTimeout > 0 {
		timeout = c.Options.HTTPTimeout
	}
	return libcfg.Config{
		WorkerBaseURL:    c.WorkerBaseURL,
		StaggerDelay:     c.StaggerDelay,
		FallbackCooldown: c.FallbackCooldown,
		RequestTimeout:   timeout,
		ViewTTL:          c.ViewTTL,
	}.WithDefaults()
}

// getDuration は "1500ms" や "30s" 形式の環境変数を読むのだ。不正な値は警告してデフォルトに戻すのだ。
func getDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("環境変数の値が不正なので、デフォルト値を使うのだ", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// シナリオ入力関連
	IdeaName     string    // --name
	IdeaOverview string    // --overview
	Cuts         [4]string // --cut1 .. --cut4
	ScriptFile   string    // --script-file: 書き出し済みの scenario.json

	// アイデアカード入力関連
	BusinessArea string // --business-area
	PainPoints   string // --pain-points
	Expectations string // --expectations

	// 出力関連
	OutputDir string // --output-dir

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
	ServerAddr  string        // --addr
}

// ResolvedOutputDir はフラグ指定が無ければ環境変数の出力先を返すのだ。
func (c *Config) ResolvedOutputDir() string {
	if c.Options.OutputDir != "" {
		return c.Options.OutputDir
	}
	return c.OutputDir
}
