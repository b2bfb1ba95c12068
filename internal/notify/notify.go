package notify

import (
	"fmt"
	"strings"
	"time"
)

// BatchResult はバッチ実行の結果
type BatchResult struct {
	Operation string
	Succeeded int
	Failed    int
	Duration  time.Duration
	FirstErr  error
}

// Title は通知のタイトルを返す
func (r BatchResult) Title() string {
	if r.Failed > 0 {
		return "❌ boardctl: Batch " + r.Operation + " failed"
	}
	return "✅ boardctl: Batch " + r.Operation + " completed"
}

// Message は通知の本文を返す
func (r BatchResult) Message() string {
	msg := fmt.Sprintf("%d succeeded, %d failed (%.1fs)", r.Succeeded, r.Failed, r.Duration.Seconds())
	if r.FirstErr != nil {
		msg += ": " + truncate(r.FirstErr.Error(), 50)
	}
	return msg
}

// SendBatchResult はバッチ実行の結果を通知する
func SendBatchResult(r BatchResult) error {
	return Send(r.Title(), r.Message())
}

// escape はAppleScriptの文字列リテラル用にエスケープする
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
