package notify

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestBatchResultMessage(t *testing.T) {
	ok := BatchResult{Operation: "move", Succeeded: 3, Duration: 1500 * time.Millisecond}
	if !strings.HasPrefix(ok.Title(), "✅") || ok.Message() != "3 succeeded, 0 failed (1.5s)" {
		t.Fatalf("title=%q message=%q", ok.Title(), ok.Message())
	}

	failed := BatchResult{
		Operation: "archive",
		Succeeded: 1,
		Failed:    2,
		Duration:  time.Second,
		FirstErr:  errors.New(strings.Repeat("x", 80)),
	}
	if !strings.HasPrefix(failed.Title(), "❌") {
		t.Fatalf("title = %q", failed.Title())
	}
	if !strings.HasSuffix(failed.Message(), "...") || len(failed.Message()) > 80 {
		t.Fatalf("message = %q", failed.Message())
	}
}

func TestEscape(t *testing.T) {
	if got := escape(`say "hi" \ bye`); got != `say \"hi\" \\ bye` {
		t.Fatalf("escape = %s", got)
	}
}

func TestMessageTruncatesOnRuneBoundary(t *testing.T) {
	r := BatchResult{Operation: "move", Failed: 1, Duration: time.Second, FirstErr: errors.New(strings.Repeat("失敗", 40))}
	msg := r.Message()
	if !utf8.ValidString(msg) || !strings.HasSuffix(msg, "...") {
		t.Fatalf("message = %q", msg)
	}
	if got := truncate("ラベルが見つかりません", 8); got != "ラベルが見..." {
		t.Fatalf("truncate = %q", got)
	}
}
