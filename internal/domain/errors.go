package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotInitialized はInitialize前にプロバイダを使った場合のエラー
// 呼び出し側のバグなのでリトライしてはいけない
var ErrNotInitialized = &MisuseError{Message: "provider is not initialized: call Initialize first"}

// ErrAuthConfigMissing は認証情報が不足している場合のエラー
var ErrAuthConfigMissing = errors.New("authentication is not configured. Run: boardctl auth login")

// AuthError は認証情報が無効・期限切れの場合のエラー
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication failed", e.Provider)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
}

// NetworkError はレスポンスを受け取れなかった場合のエラー
type NetworkError struct {
	Provider  string
	IsTimeout bool
	IsOffline bool
	Err       error
}

func (e *NetworkError) Error() string {
	switch {
	case e.IsTimeout:
		return fmt.Sprintf("%s: request timed out", e.Provider)
	case e.IsOffline:
		return fmt.Sprintf("%s: network unreachable", e.Provider)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: network error", e.Provider)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError はベンダーのレート制限に達した場合のエラー
type RateLimitError struct {
	Provider   string
	RetryAfter *time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != nil {
		return fmt.Sprintf("%s: rate limited, retry after %ds", e.Provider, e.RetryAfterSeconds())
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// RetryAfterSeconds は待機秒数を返す。不明な場合は0
func (e *RateLimitError) RetryAfterSeconds() int {
	if e.RetryAfter == nil {
		return 0
	}
	return int(e.RetryAfter.Seconds())
}

// APIError はその他の2xx以外のレスポンス
// Detailsはベンダーの生のレスポンスボディで、Error()には含めない
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Details    []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API error status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: API error status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// DebugString はDetailsを含めた文字列を返す (--verbose用)
func (e *APIError) DebugString() string {
	if len(e.Details) == 0 {
		return e.Error()
	}
	return e.Error() + "\n" + string(e.Details)
}

// NotFoundError はタスク・ボード・カラムなどが見つからない場合のエラー
type NotFoundError struct {
	Kind      string
	ID        string
	Available []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// UnsupportedError はベンダーに対応する操作がない場合のエラー
type UnsupportedError struct {
	Provider  string
	Operation string
	Reason    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s: %s", e.Provider, e.Operation, e.Reason)
}

// MisuseError は呼び出し側の誤用を表す
type MisuseError struct {
	Message string
}

func (e *MisuseError) Error() string { return e.Message }

// ValidationError は入力値が不正な場合のエラー
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsRetryable は呼び出し側がリトライしてよいエラーかどうかを返す
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var rlErr *RateLimitError
	return errors.As(err, &netErr) || errors.As(err, &rlErr)
}

// IsNotFound はNotFoundErrorかどうかを返す
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnsupported はUnsupportedErrorかどうかを返す
func IsUnsupported(err error) bool {
	var u *UnsupportedError
	return errors.As(err, &u)
}

// IsMisuse はMisuseErrorかどうかを返す
func IsMisuse(err error) bool {
	var m *MisuseError
	return errors.As(err, &m)
}
