package domain

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ImageReference はバックエンドが返す画像への不透明なハンドル（実際には data URI）なのだ。
// スケジューラは中身を解釈しないのだ。
type ImageReference string

// Decode は base64 の data URI をバイト列と宣言された MIME タイプに分解します。
// 書き出し（publisher）でだけ使います。
func (r ImageReference) Decode() ([]byte, string, error) {
	s := string(r)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("image reference is not a data URI")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI has no payload separator")
	}

	mimeType := "text/plain"
	isBase64 := false
	parts := strings.Split(meta, ";")
	if parts[0] != "" {
		mimeType = parts[0]
	}
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("data URI のデコードに失敗しました: %w", err)
		}
		return []byte(decoded), mimeType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// パディング無しの payload も見かけるのだ
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("data URI の base64 デコードに失敗しました: %w", err)
		}
	}
	return data, mimeType, nil
}

// SegmentImagePhase はカット画像の取得状態なのだ。
type SegmentImagePhase int

const (
	SegmentPending SegmentImagePhase = iota
	SegmentLoaded
	SegmentFailed
)

func (p SegmentImagePhase) String() string {
	switch p {
	case SegmentPending:
		return "pending"
	case SegmentLoaded:
		return "loaded"
	case SegmentFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ImageAttempt はどちらのプロンプト方針で要求中（または要求した）かを表すのだ。
type ImageAttempt int

const (
	AttemptPrimary ImageAttempt = iota
	AttemptFallback
)

func (a ImageAttempt) String() string {
	if a == AttemptFallback {
		return "fallback"
	}
	return "primary"
}

// DisplaySignal は描画層に渡す 3 種類の合図なのだ。
type DisplaySignal string

const (
	DisplayLoading DisplaySignal = "loading"
	DisplayImage   DisplaySignal = "loaded"
	DisplayError   DisplaySignal = "failed"
)

// SegmentImageState は 1 カット分の画像状態です。ゼロ値が初期状態（pending / primary）です。
//
//	pending → loaded
//	pending → pending(fallback) → loaded
//	pending → pending(fallback) → failed
type SegmentImageState struct {
	Phase   SegmentImagePhase
	Attempt ImageAttempt
	Image   ImageReference
}

// Terminal は loaded / failed のどちらかに到達したかを返すのだ。
func (s SegmentImageState) Terminal() bool {
	return s.Phase == SegmentLoaded || s.Phase == SegmentFailed
}

// Display は描画層向けの合図に変換するのだ。
func (s SegmentImageState) Display() DisplaySignal {
	switch s.Phase {
	case SegmentLoaded:
		return DisplayImage
	case SegmentFailed:
		return DisplayError
	}
	return DisplayLoading
}

func (s SegmentImageState) String() string {
	if s.Phase == SegmentPending {
		return fmt.Sprintf("%s(%s)", s.Phase, s.Attempt)
	}
	return s.Phase.String()
}

// canTransition は状態機械で許される遷移かどうかを返します。
func (s SegmentImageState) canTransition(next SegmentImageState) bool {
	if s.Terminal() {
		return false
	}
	switch next.Phase {
	case SegmentPending:
		return s.Attempt == AttemptPrimary && next.Attempt == AttemptFallback
	case SegmentLoaded:
		return next.Image != ""
	case SegmentFailed:
		return s.Attempt == AttemptFallback
	}
	return false
}

// CanTransition は s から next への遷移が状態機械上許されるかを返すのだ。
func CanTransition(s, next SegmentImageState) bool {
	return s.canTransition(next)
}
