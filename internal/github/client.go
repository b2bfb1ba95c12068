package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/tkc/boardctl/internal/ratelimit"
	"github.com/tkc/boardctl/internal/transport"
)

const (
	// DefaultBaseURL はGitHub REST APIのベースURL
	DefaultBaseURL = "https://api.github.com"
	// APIVersion は X-GitHub-Api-Version ヘッダの値
	APIVersion = "2022-11-28"

	providerName = "github"
)

// Client はGitHub APIクライアント
// 通常の操作はREST、トークン所有者の取得のみGraphQLを使う
type Client struct {
	rest    *transport.Client
	gql     *githubv4.Client
	limiter *ratelimit.Limiter
}

// Option はクライアント生成時の設定
type Option func(*options)

type options struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     log.FieldLogger
	now        func() time.Time
}

// WithBaseURL はAPIのベースURLを差し替える (GitHub Enterprise、テスト用)
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithTimeout はリクエストタイムアウトを変更する
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithHTTPClient は下層のhttp.Clientを差し替える。認証はその上に重ねる
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithLimiter は同時実行数の制限を差し替える
func WithLimiter(l *ratelimit.Limiter) Option { return func(o *options) { o.limiter = l } }

// WithLogger はロガーを差し替える
func WithLogger(l log.FieldLogger) Option { return func(o *options) { o.logger = l } }

// WithClock はレート制限のリセット時刻計算に使う時計を差し替える
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// NewClient は新しいClientを作成する
func NewClient(token string, opts ...Option) *Client {
	o := options{
		baseURL: DefaultBaseURL,
		timeout: transport.DefaultTimeout,
		limiter: ratelimit.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	src := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = o.timeout

	base := strings.TrimRight(o.baseURL, "/")
	return &Client{
		rest: &transport.Client{
			Provider:        providerName,
			BaseURL:         base,
			HTTP:            httpClient,
			Limiter:         o.limiter,
			Log:             o.logger,
			Now:             o.now,
			GitHubRateLimit: true,
			Decorate: func(r *http.Request) {
				r.Header.Set("Accept", "application/vnd.github+json")
				r.Header.Set("X-GitHub-Api-Version", APIVersion)
			},
		},
		gql:     githubv4.NewEnterpriseClient(base+"/graphql", httpClient),
		limiter: o.limiter,
	}
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func issuePath(owner, repo string, number int) string {
	return fmt.Sprintf("%s/issues/%d", repoPath(owner, repo), number)
}

// GetUser はトークンの持ち主を取得する
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var u User
	if _, err := c.rest.Do(ctx, http.MethodGet, "/user", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Viewer はGraphQLで取得したトークン所有者の情報
type Viewer struct {
	Login string
	Name  string
	URL   string
}

// GetViewer はGraphQLでトークン所有者を取得する
func (c *Client) GetViewer(ctx context.Context) (*Viewer, error) {
	var query struct {
		Viewer struct {
			Login string
			Name  string
			URL   string `graphql:"url"`
		}
	}

	err := c.limiter.Do(ctx, func() error {
		return c.gql.Query(ctx, &query, nil)
	})
	if err != nil {
		return nil, transport.ClassifyGraphQLError(providerName, err)
	}
	return &Viewer{
		Login: query.Viewer.Login,
		Name:  query.Viewer.Name,
		URL:   query.Viewer.URL,
	}, nil
}

// GetUserRepos は自分がアクセスできるリポジトリを全件取得する
func (c *Client) GetUserRepos(ctx context.Context) ([]Repo, error) {
	q := url.Values{"sort": {"updated"}}
	return transport.GetAllPages[Repo](ctx, c.rest, "/user/repos", q, transport.DefaultPageSize)
}

// GetOrgRepos は組織のリポジトリを全件取得する
func (c *Client) GetOrgRepos(ctx context.Context, org string) ([]Repo, error) {
	return transport.GetAllPages[Repo](ctx, c.rest, "/orgs/"+url.PathEscape(org)+"/repos", nil, transport.DefaultPageSize)
}

// GetRepo はリポジトリを取得する
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	var r Repo
	if _, err := c.rest.Do(ctx, http.MethodGet, repoPath(owner, repo), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetIssues はopen/closedすべてのIssueを取得する。プルリクエストは除外する
func (c *Client) GetIssues(ctx context.Context, owner, repo string) ([]Issue, error) {
	q := url.Values{"state": {"all"}}
	all, err := transport.GetAllPages[Issue](ctx, c.rest, repoPath(owner, repo)+"/issues", q, transport.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(all))
	for _, i := range all {
		if i.IsPullRequest() {
			continue
		}
		issues = append(issues, i)
	}
	return issues, nil
}

// GetIssue はIssueを取得する
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	var i Issue
	if _, err := c.rest.Do(ctx, http.MethodGet, issuePath(owner, repo, number), nil, nil, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateIssue はIssueを作成する
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, req CreateIssueRequest) (*Issue, error) {
	var i Issue
	if _, err := c.rest.Do(ctx, http.MethodPost, repoPath(owner, repo)+"/issues", nil, req, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// UpdateIssue はIssueを部分更新する
func (c *Client) UpdateIssue(ctx context.Context, owner, repo string, number int, req UpdateIssueRequest) (*Issue, error) {
	var i Issue
	if _, err := c.rest.Do(ctx, http.MethodPatch, issuePath(owner, repo, number), nil, req, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// SetLabels はIssueのラベルを置き換える
func (c *Client) SetLabels(ctx context.Context, owner, repo string, number int, labels []string) ([]Label, error) {
	if labels == nil {
		labels = []string{}
	}
	var out []Label
	path := issuePath(owner, repo, number) + "/labels"
	if _, err := c.rest.Do(ctx, http.MethodPut, path, nil, labelsRequest{Labels: labels}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddLabels はIssueにラベルを追加する
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	path := issuePath(owner, repo, number) + "/labels"
	_, err := c.rest.Do(ctx, http.MethodPost, path, nil, labelsRequest{Labels: labels}, nil)
	return err
}

// RemoveLabel はIssueからラベルを外す
func (c *Client) RemoveLabel(ctx context.Context, owner, repo string, number int, label string) error {
	path := issuePath(owner, repo, number) + "/labels/" + url.PathEscape(label)
	_, err := c.rest.Do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

// AddAssignees は担当者を追加する
func (c *Client) AddAssignees(ctx context.Context, owner, repo string, number int, logins []string) error {
	path := issuePath(owner, repo, number) + "/assignees"
	_, err := c.rest.Do(ctx, http.MethodPost, path, nil, assigneesRequest{Assignees: logins}, nil)
	return err
}

// RemoveAssignees は担当者を外す
func (c *Client) RemoveAssignees(ctx context.Context, owner, repo string, number int, logins []string) error {
	path := issuePath(owner, repo, number) + "/assignees"
	_, err := c.rest.Do(ctx, http.MethodDelete, path, nil, assigneesRequest{Assignees: logins}, nil)
	return err
}

// GetComments はIssueのコメントを全件取得する
func (c *Client) GetComments(ctx context.Context, owner, repo string, number int) ([]IssueComment, error) {
	return transport.GetAllPages[IssueComment](ctx, c.rest, issuePath(owner, repo, number)+"/comments", nil, transport.DefaultPageSize)
}

// AddComment はIssueにコメントする
func (c *Client) AddComment(ctx context.Context, owner, repo string, number int, body string) (*IssueComment, error) {
	var out IssueComment
	path := issuePath(owner, repo, number) + "/comments"
	if _, err := c.rest.Do(ctx, http.MethodPost, path, nil, commentRequest{Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLabels はリポジトリのラベルを全件取得する
func (c *Client) GetLabels(ctx context.Context, owner, repo string) ([]Label, error) {
	return transport.GetAllPages[Label](ctx, c.rest, repoPath(owner, repo)+"/labels", nil, transport.DefaultPageSize)
}

// GetCollaborators はリポジトリのコラボレーターを全件取得する
func (c *Client) GetCollaborators(ctx context.Context, owner, repo string) ([]User, error) {
	return transport.GetAllPages[User](ctx, c.rest, repoPath(owner, repo)+"/collaborators", nil, transport.DefaultPageSize)
}
