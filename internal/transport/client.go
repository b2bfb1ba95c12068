// Package transport holds the REST plumbing shared by the vendor clients:
// the concurrency gate, per-request auth, error classification and
// pagination draining.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tkc/boardctl/internal/ratelimit"
)

// DefaultTimeout はリクエストのデフォルトタイムアウト
const DefaultTimeout = 10 * time.Second

// DefaultPageSize はページングAPIの1ページあたりの件数
const DefaultPageSize = 100

// Client はベンダーREST APIへの認証付きリクエストを行う
type Client struct {
	Provider string
	BaseURL  string
	HTTP     *http.Client
	Limiter  *ratelimit.Limiter

	// Decorate はリクエストごとに認証情報などを付与する
	Decorate func(*http.Request)

	// GitHubRateLimit が true なら 403 + X-RateLimit-Remaining: 0 をレート制限として扱う
	GitHubRateLimit bool

	Now func() time.Time
	Log log.FieldLogger
}

func (c *Client) limiter() *ratelimit.Limiter {
	if c.Limiter == nil {
		return ratelimit.Default()
	}
	return c.Limiter
}

func (c *Client) logger() log.FieldLogger {
	if c.Log == nil {
		return log.StandardLogger()
	}
	return c.Log
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Do はリクエストを送信し、成功時はレスポンスをoutにデコードする
// inがnilでなければJSONボディとして送る
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) (http.Header, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var (
		header http.Header
		result error
	)
	err := c.limiter().Do(ctx, func() error {
		header, result = c.send(ctx, method, path, query, payload, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return header, result
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, out any) (http.Header, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Decorate != nil {
		c.Decorate(req)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logger().WithFields(log.Fields{
			"provider": c.Provider,
			"method":   method,
			"path":     path,
		}).WithError(err).Debug("request failed")
		return nil, ClassifyTransportError(c.Provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, ClassifyTransportError(c.Provider, err)
	}

	c.logger().WithFields(log.Fields{
		"provider": c.Provider,
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("vendor request")

	if err := ClassifyResponse(c.Provider, resp.StatusCode, resp.Header, respBody, c.GitHubRateLimit, c.now()); err != nil {
		return resp.Header, err
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.Header, fmt.Errorf("failed to parse %s response: %w", c.Provider, err)
		}
	}
	return resp.Header, nil
}

// GetAllPages はページングされた一覧を最後まで取得する
// ページサイズ未満のページが返るまで page=1,2,... を順に要求する
func GetAllPages[T any](ctx context.Context, c *Client, path string, query url.Values, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	all := make([]T, 0)
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("per_page", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))

		var items []T
		if _, err := c.Do(ctx, http.MethodGet, path, q, nil, &items); err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) < pageSize {
			return all, nil
		}
	}
}
