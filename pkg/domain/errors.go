package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable は通信失敗または 2xx 以外のステータスを表すのだ。
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedResponse はバックエンドの応答が期待する構造を満たさないことを表すのだ。
	ErrMalformedResponse = errors.New("malformed response")
	// ErrImageUnavailable は通信は成功したが画像ペイロードが無かったことを表すのだ。
	ErrImageUnavailable = errors.New("image unavailable")
	// ErrInvalidRequest は呼び出し側の入力が不正で、バックエンドに送らなかったことを表すのだ。
	ErrInvalidRequest = errors.New("invalid request")
)

// BackendError は ErrBackendUnavailable の具体的な内容を保持します。
// Status が 0 の場合はトランスポート層の失敗（接続拒否、タイムアウトなど）です。
type BackendError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("backend unavailable: %s: %v", e.Endpoint, e.Err)
	case e.Body != "":
		return fmt.Sprintf("backend unavailable: %s (%d): %s", e.Endpoint, e.Status, e.Body)
	default:
		return fmt.Sprintf("backend unavailable: %s (%d)", e.Endpoint, e.Status)
	}
}

// Is により errors.Is(err, ErrBackendUnavailable) が成立するのだ。
func (e *BackendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// malformed は ErrMalformedResponse をラップしたエラーを作るのだ。
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
