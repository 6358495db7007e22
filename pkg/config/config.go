package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultStaggerDelay     = 1500 * time.Millisecond
	DefaultFallbackCooldown = 1000 * time.Millisecond
	DefaultRequestTimeout   = 30 * time.Second
	DefaultViewTTL          = 30 * time.Minute
	DefaultViewCleanup      = 5 * time.Minute
)

// Config は Go Scenario Kit の各 Runner を動作させるための基本設定です。
type Config struct {
	// --- Backend Settings ---
	WorkerBaseURL string

	// --- Image Fetch Settings ---
	StaggerDelay     time.Duration // カット i の初回リクエストを i * StaggerDelay だけ遅らせる
	FallbackCooldown time.Duration // 初回失敗からフォールバック要求までの待機時間

	// --- Timeout ---
	RequestTimeout time.Duration

	// --- Server Settings ---
	ViewTTL time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		StaggerDelay:     DefaultStaggerDelay,
		FallbackCooldown: DefaultFallbackCooldown,
		RequestTimeout:   DefaultRequestTimeout,
		ViewTTL:          DefaultViewTTL,
	}
}

// WithDefaults はゼロ値のフィールドをデフォルト値で埋めたコピーを返すのだ。
// StaggerDelay と FallbackCooldown は 0 を許容しないのだ（テストでは 1ns などを使うこと）。
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.StaggerDelay <= 0 {
		c.StaggerDelay = d.StaggerDelay
	}
	if c.FallbackCooldown <= 0 {
		c.FallbackCooldown = d.FallbackCooldown
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ViewTTL <= 0 {
		c.ViewTTL = d.ViewTTL
	}
	return c
}
