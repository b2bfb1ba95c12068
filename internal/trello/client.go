package trello

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tkc/boardctl/internal/ratelimit"
	"github.com/tkc/boardctl/internal/transport"
)

// DefaultBaseURL はTrello REST APIのベースURL
const DefaultBaseURL = "https://api.trello.com/1"

const providerName = "trello"

// Client はTrello REST APIクライアント
type Client struct {
	rest *transport.Client
}

// Option はクライアント生成時の設定
type Option func(*options)

type options struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     log.FieldLogger
}

// WithBaseURL はAPIのベースURLを差し替える
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithTimeout はリクエストタイムアウトを変更する
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithHTTPClient は使用するhttp.Clientを差し替える
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithLimiter は同時実行数の制限を差し替える
func WithLimiter(l *ratelimit.Limiter) Option { return func(o *options) { o.limiter = l } }

// WithLogger はロガーを差し替える
func WithLogger(l log.FieldLogger) Option { return func(o *options) { o.logger = l } }

// NewClient は新しいClientを作成する
// keyはAPIキー (OAuthモードでは組織APIキー)
func NewClient(key, token string, opts ...Option) *Client {
	o := options{
		baseURL: DefaultBaseURL,
		timeout: transport.DefaultTimeout,
		limiter: ratelimit.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	return &Client{
		rest: &transport.Client{
			Provider: providerName,
			BaseURL:  o.baseURL,
			HTTP:     httpClient,
			Limiter:  o.limiter,
			Log:      o.logger,
			Decorate: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("key", key)
				q.Set("token", token)
				r.URL.RawQuery = q.Encode()
			},
		},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.rest.Do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// GetMe はトークンの持ち主を取得する
func (c *Client) GetMe(ctx context.Context) (*Member, error) {
	var m Member
	if err := c.get(ctx, "/members/me", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetBoards は自分が参加しているopenなボードを取得する
func (c *Client) GetBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	q := url.Values{"filter": {"open"}, "fields": {"name,desc,url,closed"}}
	if err := c.get(ctx, "/members/me/boards", q, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// GetBoard はボードを取得する
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	var b Board
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetLists はボードのopenなリストを位置順に取得する
func (c *Client) GetLists(ctx context.Context, boardID string) ([]List, error) {
	var lists []List
	q := url.Values{"filter": {"open"}}
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/lists", q, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetList はリストを取得する
func (c *Client) GetList(ctx context.Context, listID string) (*List, error) {
	var l List
	if err := c.get(ctx, "/lists/"+url.PathEscape(listID), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetCards はアーカイブ済みを含むボードの全カードを取得する
func (c *Client) GetCards(ctx context.Context, boardID string) ([]Card, error) {
	var cards []Card
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/cards/all", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard はカードを所属リスト付きで取得する
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	var card Card
	q := url.Values{"list": {"true"}}
	if err := c.get(ctx, "/cards/"+url.PathEscape(cardID), q, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// CreateCard はカードを作成する
func (c *Client) CreateCard(ctx context.Context, req CreateCardRequest) (*Card, error) {
	var card Card
	if _, err := c.rest.Do(ctx, http.MethodPost, "/cards", nil, req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard はカードを更新する
func (c *Client) UpdateCard(ctx context.Context, cardID string, req UpdateCardRequest) (*Card, error) {
	var card Card
	if _, err := c.rest.Do(ctx, http.MethodPut, "/cards/"+url.PathEscape(cardID), nil, req.body(), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard はカードを完全に削除する
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	_, err := c.rest.Do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, nil, nil)
	return err
}

// commentPageSize はactions APIが1回で返せる最大件数
var commentPageSize = 1000

// GetComments はカードのコメントを新しい順にすべて取得する
// 1ページで足りない場合は最後のアクションIDを before に渡して続きを取る
func (c *Client) GetComments(ctx context.Context, cardID string) ([]Action, error) {
	all := make([]Action, 0)
	before := ""
	for {
		q := url.Values{"filter": {"commentCard"}, "limit": {strconv.Itoa(commentPageSize)}}
		if before != "" {
			q.Set("before", before)
		}
		var page []Action
		if err := c.get(ctx, "/cards/"+url.PathEscape(cardID)+"/actions", q, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < commentPageSize {
			return all, nil
		}
		before = page[len(page)-1].ID
	}
}

// AddComment はカードにコメントする
func (c *Client) AddComment(ctx context.Context, cardID, text string) (*Action, error) {
	var a Action
	path := "/cards/" + url.PathEscape(cardID) + "/actions/comments"
	if _, err := c.rest.Do(ctx, http.MethodPost, path, nil, commentRequest{Text: text}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetMembers はボードのメンバーを取得する
func (c *Client) GetMembers(ctx context.Context, boardID string) ([]Member, error) {
	var members []Member
	q := url.Values{"fields": {"username,fullName,avatarUrl,email"}}
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/members", q, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GetLabels はボードのラベルを取得する
func (c *Client) GetLabels(ctx context.Context, boardID string) ([]Label, error) {
	var labels []Label
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// AddLabel はカードにラベルを付ける
func (c *Client) AddLabel(ctx context.Context, cardID, labelID string) error {
	return c.addToCard(ctx, cardID, "idLabels", labelID)
}

// RemoveLabel はカードからラベルを外す
func (c *Client) RemoveLabel(ctx context.Context, cardID, labelID string) error {
	return c.removeFromCard(ctx, cardID, "idLabels", labelID)
}

// AddMember はカードにメンバーを追加する
func (c *Client) AddMember(ctx context.Context, cardID, memberID string) error {
	return c.addToCard(ctx, cardID, "idMembers", memberID)
}

// RemoveMember はカードからメンバーを外す
func (c *Client) RemoveMember(ctx context.Context, cardID, memberID string) error {
	return c.removeFromCard(ctx, cardID, "idMembers", memberID)
}

func (c *Client) addToCard(ctx context.Context, cardID, collection, value string) error {
	path := "/cards/" + url.PathEscape(cardID) + "/" + collection
	_, err := c.rest.Do(ctx, http.MethodPost, path, nil, valueRequest{Value: value}, nil)
	return err
}

func (c *Client) removeFromCard(ctx context.Context, cardID, collection, value string) error {
	path := "/cards/" + url.PathEscape(cardID) + "/" + collection + "/" + url.PathEscape(value)
	_, err := c.rest.Do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}
