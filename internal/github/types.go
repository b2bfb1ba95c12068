package github

import (
	"encoding/json"
	"time"
)

// Repo はGitHub REST APIのリポジトリ
type Repo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	HTMLURL     string  `json:"html_url"`
	Archived    bool    `json:"archived"`
	Owner       User    `json:"owner"`
}

// User はGitHub REST APIのユーザー
type User struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarURL string  `json:"avatar_url"`
}

// Label はGitHub REST APIのラベル
type Label struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"` // "#" なしの16進数
	Description *string `json:"description"`
}

// Milestone はIssueのマイルストーン
type Milestone struct {
	Number int        `json:"number"`
	Title  string     `json:"title"`
	DueOn  *time.Time `json:"due_on"`
}

// Issue はGitHub REST APIのIssue
// PullRequestがnilでなければプルリクエスト
type Issue struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Body        *string          `json:"body"`
	State       string           `json:"state"` // "open" | "closed"
	StateReason *string          `json:"state_reason"`
	Labels      []Label          `json:"labels"`
	Assignees   []User           `json:"assignees"`
	Comments    int              `json:"comments"`
	HTMLURL     string           `json:"html_url"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ClosedAt    *time.Time       `json:"closed_at"`
	Milestone   *Milestone       `json:"milestone"`
	PullRequest *json.RawMessage `json:"pull_request,omitempty"`
}

// IsClosed はIssueがclosedかどうかを返す
func (i Issue) IsClosed() bool {
	return i.State == stateClosed
}

// IsPullRequest はIssueがプルリクエストかどうかを返す
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// LabelNames はラベル名をAPIの順序で返す
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// IssueComment はIssueのコメント
type IssueComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	stateOpen   = "open"
	stateClosed = "closed"
)

// CreateIssueRequest はIssue作成のリクエスト
type CreateIssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// UpdateIssueRequest はIssue更新のリクエスト
type UpdateIssueRequest struct {
	Title       *string `json:"title,omitempty"`
	Body        *string `json:"body,omitempty"`
	State       *string `json:"state,omitempty"`
	StateReason *string `json:"state_reason,omitempty"`
}

// IsEmpty は送る項目がないかどうかを返す
func (r UpdateIssueRequest) IsEmpty() bool {
	return r.Title == nil && r.Body == nil && r.State == nil
}

type labelsRequest struct {
	Labels []string `json:"labels"`
}

type assigneesRequest struct {
	Assignees []string `json:"assignees"`
}

type commentRequest struct {
	Body string `json:"body"`
}
