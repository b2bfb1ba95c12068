package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tkc/boardctl/internal/domain"
)

// ClassifyTransportError はレスポンスが得られなかったエラーを分類する
func ClassifyTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	netErr := &domain.NetworkError{Provider: provider, Err: err}

	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.As(err, &ne) && ne.Timeout():
		netErr.IsTimeout = true
	case isOffline(err):
		netErr.IsOffline = true
	}
	return netErr
}

func isOffline(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ECONNRESET)
}

// ClassifyResponse は2xx以外のレスポンスを型付きエラーに変換する
// 2xxの場合はnilを返す
func ClassifyResponse(provider string, status int, header http.Header, body []byte, githubRateLimit bool, now time.Time) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch {
	case status == http.StatusUnauthorized:
		return &domain.AuthError{Provider: provider, Message: vendorMessage(body)}
	case status == http.StatusTooManyRequests:
		return &domain.RateLimitError{Provider: provider, RetryAfter: retryAfter(header)}
	case githubRateLimit && status == http.StatusForbidden && header.Get("X-RateLimit-Remaining") == "0":
		return &domain.RateLimitError{Provider: provider, RetryAfter: rateLimitReset(header, now)}
	}

	return &domain.APIError{
		Provider:   provider,
		StatusCode: status,
		Message:    vendorMessage(body),
		Details:    body,
	}
}

func retryAfter(header http.Header) *time.Duration {
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}

func rateLimitReset(header http.Header, now time.Time) *time.Duration {
	if d := retryAfter(header); d != nil {
		return d
	}
	reset, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return nil
	}
	d := time.Unix(reset, 0).Sub(now).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return &d
}

// vendorMessage はエラーボディから人が読むためのメッセージだけを取り出す
// GitHubは {"message": ...}、Trelloはプレーンテキストか {"message": ...}
func vendorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "<") {
		return ""
	}
	const maxLen = 200
	if r := []rune(trimmed); len(r) > maxLen {
		trimmed = string(r[:maxLen]) + "..."
	}
	return trimmed
}

// ClassifyGraphQLError はGraphQLクライアントのエラーを分類する
// githubv4はステータスコードを文字列でしか返さないため、そこから読み取る
func ClassifyGraphQLError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) || isOffline(err) {
		return ClassifyTransportError(provider, err)
	}

	msg := err.Error()
	const marker = "status code: "
	if idx := strings.Index(msg, marker); idx >= 0 {
		rest := msg[idx+len(marker):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if status, convErr := strconv.Atoi(rest[:end]); convErr == nil {
			if status == http.StatusUnauthorized {
				return &domain.AuthError{Provider: provider}
			}
			return &domain.APIError{Provider: provider, StatusCode: status, Message: "graphql request failed", Details: []byte(msg)}
		}
	}
	return &domain.APIError{Provider: provider, Message: "graphql request failed", Details: []byte(msg)}
}
