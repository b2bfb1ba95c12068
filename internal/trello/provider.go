package trello

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

// Provider はTrelloをバックエンドとするTaskProvider
type Provider struct {
	client *Client
	mapper Mapper
	opts   []Option
}

var _ provider.TaskProvider = (*Provider)(nil)

// NewProvider は新しいProviderを作成する。使用前にInitializeが必要
func NewProvider(opts ...Option) *Provider {
	return &Provider{opts: opts}
}

// Type はプロバイダ種別を返す
func (p *Provider) Type() provider.Type { return provider.TypeTrello }

// Initialize は認証情報からクライアントを組み立てる
func (p *Provider) Initialize(creds provider.Credentials) error {
	var key string
	switch creds.Type {
	case provider.AuthAPIKey, "":
		key = creds.APIKey
	case provider.AuthOAuth:
		key = creds.OrgAPIKey
	default:
		return fmt.Errorf("trello: unsupported auth type %q: %w", creds.Type, domain.ErrAuthConfigMissing)
	}
	if key == "" || creds.Token == "" {
		return domain.ErrAuthConfigMissing
	}
	p.client = NewClient(key, creds.Token, p.opts...)
	return nil
}

func (p *Provider) requireClient() (*Client, error) {
	if p.client == nil {
		return nil, domain.ErrNotInitialized
	}
	return p.client, nil
}

// notFound はベンダーの404 (不正IDの400を含む) をNotFoundErrorに変換する
func notFound(err error, kind, id string) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusNotFound ||
			(apiErr.StatusCode == http.StatusBadRequest && apiErr.Message == "invalid id")) {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// ValidateAuth は認証情報が有効かを返す
func (p *Provider) ValidateAuth(ctx context.Context) bool {
	c, err := p.requireClient()
	if err != nil {
		return false
	}
	_, err = c.GetMe(ctx)
	return err == nil
}

// ListBoards は参加しているボード一覧を返す
func (p *Provider) ListBoards(ctx context.Context) ([]domain.Board, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	boards, err := c.GetBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	out := make([]domain.Board, 0, len(boards))
	for _, b := range boards {
		out = append(out, p.mapper.ToBoard(b))
	}
	return out, nil
}

// GetBoard はボードを返す
func (p *Provider) GetBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	b, err := c.GetBoard(ctx, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	board := p.mapper.ToBoard(*b)
	return &board, nil
}

// GetBoardColumns はボードのリストをカラムとして返す
func (p *Provider) GetBoardColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	lists, err := c.GetLists(ctx, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	cols := make([]domain.Column, 0, len(lists))
	for i, l := range lists {
		cols = append(cols, p.mapper.ToColumn(l, i))
	}
	return cols, nil
}

// ListTasks はボードのタスクを取得し、クライアント側でフィルタする
// Numberは取得順の通し番号 (1始まり)
func (p *Provider) ListTasks(ctx context.Context, boardID string, filter *domain.TaskFilter) ([]domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	lists, err := c.GetLists(ctx, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	names := make(map[string]string, len(lists))
	for _, l := range lists {
		names[l.ID] = l.Name
	}

	cards, err := c.GetCards(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	tasks := make([]domain.Task, 0, len(cards))
	for i, card := range cards {
		task := p.mapper.ToTask(card, names[card.IDList])
		task.Number = i + 1
		tasks = append(tasks, task)
	}
	return filter.Apply(tasks), nil
}

// GetTask はタスクを返す
func (p *Provider) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	card, err := c.GetCard(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	task := p.mapper.ToTask(*card, "")
	return &task, nil
}

// CreateTask はリストにカードを作成する
func (p *Provider) CreateTask(ctx context.Context, boardID, columnID string, params domain.CreateTaskParams) (*domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	card, err := c.CreateCard(ctx, p.mapper.ToCreateRequest(columnID, params))
	if err != nil {
		return nil, notFound(fmt.Errorf("failed to create card: %w", err), "column", columnID)
	}
	return p.GetTask(ctx, card.ID)
}

// UpdateTask はカードを更新する。変更がなければ取得のみ行う
func (p *Provider) UpdateTask(ctx context.Context, taskID string, params domain.UpdateTaskParams) (*domain.Task, error) {
	if params.IsEmpty() {
		return p.GetTask(ctx, taskID)
	}
	return p.updateCard(ctx, taskID, p.mapper.ToUpdateRequest(params))
}

func (p *Provider) updateCard(ctx context.Context, taskID string, req UpdateCardRequest) (*domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	if _, err := c.UpdateCard(ctx, taskID, req); err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return p.GetTask(ctx, taskID)
}

// DeleteTask はカードを完全に削除する
func (p *Provider) DeleteTask(ctx context.Context, taskID string) error {
	c, err := p.requireClient()
	if err != nil {
		return err
	}
	if err := c.DeleteCard(ctx, taskID); err != nil {
		return notFound(err, "task", taskID)
	}
	return nil
}

// MoveTask はカードを別のリストへ移動する
func (p *Provider) MoveTask(ctx context.Context, taskID, columnID string) (*domain.Task, error) {
	return p.updateCard(ctx, taskID, UpdateCardRequest{IDList: &columnID})
}

// ArchiveTask はカードをアーカイブする
func (p *Provider) ArchiveTask(ctx context.Context, taskID string) (*domain.Task, error) {
	closed := true
	return p.updateCard(ctx, taskID, UpdateCardRequest{Closed: &closed})
}

// UnarchiveTask はカードのアーカイブを解除する
func (p *Provider) UnarchiveTask(ctx context.Context, taskID string) (*domain.Task, error) {
	closed := false
	return p.updateCard(ctx, taskID, UpdateCardRequest{Closed: &closed})
}

// ListComments はカードのコメントを返す
func (p *Provider) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	actions, err := c.GetComments(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	comments := make([]domain.Comment, 0, len(actions))
	for _, a := range actions {
		comments = append(comments, p.mapper.ToComment(a))
	}
	return comments, nil
}

// AddComment はカードにコメントする
func (p *Provider) AddComment(ctx context.Context, taskID, text string) (*domain.Comment, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, &domain.ValidationError{Field: "comment", Message: "text is required"}
	}
	a, err := c.AddComment(ctx, taskID, text)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	comment := p.mapper.ToComment(*a)
	return &comment, nil
}

// ListMembers はボードのメンバーを返す
func (p *Provider) ListMembers(ctx context.Context, boardID string) ([]domain.Member, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	members, err := c.GetMembers(ctx, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, p.mapper.ToMember(m))
	}
	return out, nil
}

// ListLabels はボードのラベルを返す
func (p *Provider) ListLabels(ctx context.Context, boardID string) ([]domain.Label, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	labels, err := c.GetLabels(ctx, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	out := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		out = append(out, p.mapper.ToLabel(l))
	}
	return out, nil
}

// AddLabel はカードにラベルを付ける
func (p *Provider) AddLabel(ctx context.Context, taskID, labelID string) error {
	c, err := p.requireClient()
	if err != nil {
		return err
	}
	return notFound(c.AddLabel(ctx, taskID, labelID), "task", taskID)
}

// RemoveLabel はカードからラベルを外す
func (p *Provider) RemoveLabel(ctx context.Context, taskID, labelID string) error {
	c, err := p.requireClient()
	if err != nil {
		return err
	}
	return notFound(c.RemoveLabel(ctx, taskID, labelID), "task", taskID)
}

// AddMember はカードにメンバーを追加する
func (p *Provider) AddMember(ctx context.Context, taskID, memberID string) error {
	c, err := p.requireClient()
	if err != nil {
		return err
	}
	return notFound(c.AddMember(ctx, taskID, memberID), "task", taskID)
}

// RemoveMember はカードからメンバーを外す
func (p *Provider) RemoveMember(ctx context.Context, taskID, memberID string) error {
	c, err := p.requireClient()
	if err != nil {
		return err
	}
	return notFound(c.RemoveMember(ctx, taskID, memberID), "task", taskID)
}
