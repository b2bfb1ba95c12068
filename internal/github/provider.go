package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

// Provider はGitHub IssuesをバックエンドとするTaskProvider
//
// GitHubにはカラムがないため、カラム設定 (ステータスラベルとclosed状態の対応) を
// SetColumnConfigsで注入して擬似的にカラムを作る。
//
// MoveTaskはIssueを読んでからラベルを書き戻すため、同じIssueへの並行した変更は
// 後勝ちになる。単一ユーザーのCLIでの利用を前提とし、検出はしない。
type Provider struct {
	client       *Client
	opts         []Option
	columns      []domain.ColumnConfig
	statusPrefix string
}

var (
	_ provider.TaskProvider       = (*Provider)(nil)
	_ provider.ColumnConfigurable = (*Provider)(nil)
)

// NewProvider は新しいProviderを作成する。使用前にInitializeが必要
func NewProvider(opts ...Option) *Provider {
	return &Provider{opts: opts}
}

// Type はプロバイダ種別を返す
func (p *Provider) Type() provider.Type { return provider.TypeGitHub }

// Initialize は認証情報からクライアントを組み立てる
func (p *Provider) Initialize(creds provider.Credentials) error {
	switch creds.Type {
	case provider.AuthPAT, provider.AuthOAuth, "":
	default:
		return fmt.Errorf("github: unsupported auth type %q: %w", creds.Type, domain.ErrAuthConfigMissing)
	}
	if creds.Token == "" {
		return domain.ErrAuthConfigMissing
	}
	p.client = NewClient(creds.Token, p.opts...)
	return nil
}

// SetColumnConfigs はカラム設定を検証して保持する
func (p *Provider) SetColumnConfigs(configs []domain.ColumnConfig) error {
	if err := domain.ValidateColumnConfigs(configs); err != nil {
		return err
	}
	p.columns = append([]domain.ColumnConfig(nil), configs...)
	return nil
}

// ColumnConfigs は現在のカラム設定を返す
func (p *Provider) ColumnConfigs() []domain.ColumnConfig {
	return append([]domain.ColumnConfig(nil), p.columns...)
}

// SetStatusLabelPrefix はステータスラベルの接頭辞を変更する
func (p *Provider) SetStatusLabelPrefix(prefix string) {
	p.statusPrefix = prefix
}

func (p *Provider) mapper() Mapper {
	return Mapper{Columns: p.columns, StatusLabelPrefix: p.statusPrefix}
}

func (p *Provider) effectiveColumns() []domain.ColumnConfig {
	if len(p.columns) == 0 {
		return DefaultColumnConfigs()
	}
	return p.columns
}

func (p *Provider) findColumn(columnID string) (domain.ColumnConfig, error) {
	cols := p.effectiveColumns()
	ids := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.ID == columnID {
			return c, nil
		}
		ids = append(ids, c.ID)
	}
	return domain.ColumnConfig{}, &domain.NotFoundError{Kind: "column", ID: columnID, Available: ids}
}

func (p *Provider) requireClient() (*Client, error) {
	if p.client == nil {
		return nil, domain.ErrNotInitialized
	}
	return p.client, nil
}

func notFound(err error, kind, id string) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
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
	_, err = c.GetUser(ctx)
	return err == nil
}

// CurrentUser はトークンの持ち主を返す
func (p *Provider) CurrentUser(ctx context.Context) (*Viewer, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	return c.GetViewer(ctx)
}

// ListBoards はアクセスできるリポジトリをボードとして返す
func (p *Provider) ListBoards(ctx context.Context) ([]domain.Board, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	repos, err := c.GetUserRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return p.toBoards(repos), nil
}

// ListOrgBoards は組織のリポジトリをボードとして返す
func (p *Provider) ListOrgBoards(ctx context.Context, org string) ([]domain.Board, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	repos, err := c.GetOrgRepos(ctx, org)
	if err != nil {
		return nil, notFound(err, "organization", org)
	}
	return p.toBoards(repos), nil
}

func (p *Provider) toBoards(repos []Repo) []domain.Board {
	m := p.mapper()
	boards := make([]domain.Board, 0, len(repos))
	for _, r := range repos {
		boards = append(boards, m.ToBoard(r))
	}
	return boards
}

// GetBoard はリポジトリを返す
func (p *Provider) GetBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, err := domain.SplitRepoID(boardID)
	if err != nil {
		return nil, err
	}
	r, err := c.GetRepo(ctx, owner, repo)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	board := p.mapper().ToBoard(*r)
	return &board, nil
}

// GetBoardColumns はカラム設定から作ったカラムを返す。通信はしない
func (p *Provider) GetBoardColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	if _, err := p.requireClient(); err != nil {
		return nil, err
	}
	if _, _, err := domain.SplitRepoID(boardID); err != nil {
		return nil, err
	}
	return p.mapper().ToColumns(), nil
}

// ListTasks はリポジトリのIssueを全件取得し、クライアント側でフィルタする
func (p *Provider) ListTasks(ctx context.Context, boardID string, filter *domain.TaskFilter) ([]domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, err := domain.SplitRepoID(boardID)
	if err != nil {
		return nil, err
	}
	issues, err := c.GetIssues(ctx, owner, repo)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}

	m := p.mapper()
	tasks := make([]domain.Task, 0, len(issues))
	for _, i := range issues {
		tasks = append(tasks, m.ToTask(owner, repo, i, nil))
	}
	return filter.Apply(tasks), nil
}

func (p *Provider) fetchIssue(ctx context.Context, taskID string) (*Client, string, string, *Issue, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, "", "", nil, err
	}
	owner, repo, number, err := domain.ParseIssueID(taskID)
	if err != nil {
		return nil, "", "", nil, err
	}
	issue, err := c.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return nil, "", "", nil, notFound(err, "task", taskID)
	}
	if issue.IsPullRequest() {
		return nil, "", "", nil, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	return c, owner, repo, issue, nil
}

// GetTask はIssueを返す
func (p *Provider) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	_, owner, repo, issue, err := p.fetchIssue(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task := p.mapper().ToTask(owner, repo, *issue, nil)
	return &task, nil
}

// CreateTask は指定カラムにIssueを作成する
// closed状態のカラムを指定した場合は作成後にcloseする
func (p *Provider) CreateTask(ctx context.Context, boardID, columnID string, params domain.CreateTaskParams) (*domain.Task, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, err := domain.SplitRepoID(boardID)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	column, err := p.findColumn(columnID)
	if err != nil {
		return nil, err
	}

	m := p.mapper()
	req, err := m.ToCreateRequest(params, column)
	if err != nil {
		return nil, err
	}
	issue, err := c.CreateIssue(ctx, owner, repo, req)
	if err != nil {
		return nil, notFound(fmt.Errorf("failed to create issue: %w", err), "board", boardID)
	}

	if column.IsClosedState {
		number := issue.Number
		issue, err = c.UpdateIssue(ctx, owner, repo, number, StateUpdate(true))
		if err != nil {
			return nil, fmt.Errorf("issue #%d created but could not be closed: %w", number, err)
		}
	}

	task := m.ToTask(owner, repo, *issue, &column)
	return &task, nil
}

// UpdateTask はタイトルと本文を更新する。変更がなければ取得のみ行う
func (p *Provider) UpdateTask(ctx context.Context, taskID string, params domain.UpdateTaskParams) (*domain.Task, error) {
	m := p.mapper()
	req, err := m.ToUpdateRequest(params)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return p.GetTask(ctx, taskID)
	}

	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, number, err := domain.ParseIssueID(taskID)
	if err != nil {
		return nil, err
	}
	issue, err := c.UpdateIssue(ctx, owner, repo, number, req)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	task := m.ToTask(owner, repo, *issue, nil)
	return &task, nil
}

// DeleteTask はGitHubでは常にUnsupportedErrorを返す
// REST APIではIssueを削除できないため、アーカイブ (close) を使う
func (p *Provider) DeleteTask(ctx context.Context, taskID string) error {
	return &domain.UnsupportedError{
		Provider:  providerName,
		Operation: "delete",
		Reason:    "issues cannot be deleted through the API; archive the task to close it instead",
	}
}

// MoveTask はIssueを指定カラムへ移動する
// ステータスラベルを付け替え、open/closedが変わる場合のみ状態を更新する
func (p *Provider) MoveTask(ctx context.Context, taskID, columnID string) (*domain.Task, error) {
	if _, err := p.requireClient(); err != nil {
		return nil, err
	}
	target, err := p.findColumn(columnID)
	if err != nil {
		return nil, err
	}
	c, owner, repo, issue, err := p.fetchIssue(ctx, taskID)
	if err != nil {
		return nil, err
	}

	m := p.mapper()
	current := issue.LabelNames()
	next := m.MoveLabels(current, target)
	result := *issue

	if !sameLabels(current, next) {
		labels, err := c.SetLabels(ctx, owner, repo, issue.Number, next)
		if err != nil {
			return nil, notFound(fmt.Errorf("failed to update labels: %w", err), "task", taskID)
		}
		result.Labels = labels
	}

	if issue.IsClosed() != target.IsClosedState {
		updated, err := c.UpdateIssue(ctx, owner, repo, issue.Number, StateUpdate(target.IsClosedState))
		if err != nil {
			return nil, notFound(fmt.Errorf("failed to update state: %w", err), "task", taskID)
		}
		result = *updated
	}

	task := m.ToTask(owner, repo, result, &target)
	return &task, nil
}

// ArchiveTask はIssueをcloseする
// closed状態のカラムがあればそこへ移動する
func (p *Provider) ArchiveTask(ctx context.Context, taskID string) (*domain.Task, error) {
	for _, col := range p.effectiveColumns() {
		if col.IsClosedState {
			return p.MoveTask(ctx, taskID, col.ID)
		}
	}
	return p.setState(ctx, taskID, true)
}

// UnarchiveTask はIssueをreopenする
// ラベルなしのopenカラムがあればそこへ移動する
func (p *Provider) UnarchiveTask(ctx context.Context, taskID string) (*domain.Task, error) {
	for _, col := range p.effectiveColumns() {
		if col.IsDefaultBucket() {
			return p.MoveTask(ctx, taskID, col.ID)
		}
	}
	return p.setState(ctx, taskID, false)
}

func (p *Provider) setState(ctx context.Context, taskID string, closed bool) (*domain.Task, error) {
	c, owner, repo, issue, err := p.fetchIssue(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if issue.IsClosed() != closed {
		issue, err = c.UpdateIssue(ctx, owner, repo, issue.Number, StateUpdate(closed))
		if err != nil {
			return nil, notFound(err, "task", taskID)
		}
	}
	task := p.mapper().ToTask(owner, repo, *issue, nil)
	return &task, nil
}

// ListComments はIssueのコメントを返す
func (p *Provider) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, number, err := domain.ParseIssueID(taskID)
	if err != nil {
		return nil, err
	}
	comments, err := c.GetComments(ctx, owner, repo, number)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	m := p.mapper()
	out := make([]domain.Comment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, m.ToComment(cm))
	}
	return out, nil
}

// AddComment はIssueにコメントする
func (p *Provider) AddComment(ctx context.Context, taskID, text string) (*domain.Comment, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, &domain.ValidationError{Field: "comment", Message: "text is required"}
	}
	owner, repo, number, err := domain.ParseIssueID(taskID)
	if err != nil {
		return nil, err
	}
	cm, err := c.AddComment(ctx, owner, repo, number, text)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	comment := p.mapper().ToComment(*cm)
	return &comment, nil
}

// ListMembers はリポジトリのコラボレーターを返す
func (p *Provider) ListMembers(ctx context.Context, boardID string) ([]domain.Member, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, err := domain.SplitRepoID(boardID)
	if err != nil {
		return nil, err
	}
	users, err := c.GetCollaborators(ctx, owner, repo)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	m := p.mapper()
	members := make([]domain.Member, 0, len(users))
	for _, u := range users {
		members = append(members, m.ToMember(u))
	}
	return members, nil
}

// ListLabels はステータスラベルを除いたラベルを返す
func (p *Provider) ListLabels(ctx context.Context, boardID string) ([]domain.Label, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, err
	}
	owner, repo, err := domain.SplitRepoID(boardID)
	if err != nil {
		return nil, err
	}
	labels, err := c.GetLabels(ctx, owner, repo)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	return p.mapper().ToLabels(labels), nil
}

// AddLabel はIssueにラベルを付ける。ステータスラベルはMoveTaskで扱う
func (p *Provider) AddLabel(ctx context.Context, taskID, labelID string) error {
	c, owner, repo, number, err := p.issueRef(taskID)
	if err != nil {
		return err
	}
	if p.mapper().IsStatusLabel(labelID) {
		return &domain.ValidationError{Field: "label", Message: fmt.Sprintf("%q is a status label; move the task instead", labelID)}
	}
	return notFound(c.AddLabels(ctx, owner, repo, number, []string{labelID}), "task", taskID)
}

// RemoveLabel はIssueからラベルを外す
func (p *Provider) RemoveLabel(ctx context.Context, taskID, labelID string) error {
	c, owner, repo, number, err := p.issueRef(taskID)
	if err != nil {
		return err
	}
	if p.mapper().IsStatusLabel(labelID) {
		return &domain.ValidationError{Field: "label", Message: fmt.Sprintf("%q is a status label; move the task instead", labelID)}
	}
	return notFound(c.RemoveLabel(ctx, owner, repo, number, labelID), "label", labelID)
}

// AddMember は担当者を追加する
func (p *Provider) AddMember(ctx context.Context, taskID, memberID string) error {
	c, owner, repo, number, err := p.issueRef(taskID)
	if err != nil {
		return err
	}
	return notFound(c.AddAssignees(ctx, owner, repo, number, []string{memberID}), "task", taskID)
}

// RemoveMember は担当者を外す
func (p *Provider) RemoveMember(ctx context.Context, taskID, memberID string) error {
	c, owner, repo, number, err := p.issueRef(taskID)
	if err != nil {
		return err
	}
	return notFound(c.RemoveAssignees(ctx, owner, repo, number, []string{memberID}), "task", taskID)
}

func (p *Provider) issueRef(taskID string) (*Client, string, string, int, error) {
	c, err := p.requireClient()
	if err != nil {
		return nil, "", "", 0, err
	}
	owner, repo, number, err := domain.ParseIssueID(taskID)
	if err != nil {
		return nil, "", "", 0, err
	}
	return c, owner, repo, number, nil
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	return true
}
