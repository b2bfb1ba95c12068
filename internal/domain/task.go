package domain

import "time"

// Status はタスクの状態を表す
// ベンダーの状態から導出される値であり、正となるのは Task.Archived
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Valid は定義済みのStatusかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Task はTrelloのカードまたはGitHubのIssueを統一して表す
type Task struct {
	ID           string     // ベンダー固有のID (GitHubは "owner/repo#number")
	Number       int        // 表示用の番号 (提供されない場合は0)
	Title        string     // タイトル
	Description  *string    // 説明
	Status       Status     // 導出されたステータス
	ColumnID     string     // 所属カラムのID
	ColumnName   string     // 所属カラムの名前
	CreatedAt    time.Time  // 作成日時
	UpdatedAt    time.Time  // 更新日時
	DueDate      *time.Time // 期限
	DueComplete  bool       // 期限完了フラグ
	AssigneeIDs  []string   // 担当者ID
	LabelIDs     []string   // ラベルID (ステータスラベルは含まない)
	URL          string     // Web URL
	Archived     bool       // アーカイブ済みかどうか
	CommentCount *int       // コメント数
	Raw          any        // ベンダーのレスポンスそのもの
}

// HasAssignee は指定メンバーが担当者に含まれるかを返す
func (t *Task) HasAssignee(memberID string) bool {
	return contains(t.AssigneeIDs, memberID)
}

// HasLabel は指定ラベルが付与されているかを返す
func (t *Task) HasLabel(labelID string) bool {
	return contains(t.LabelIDs, labelID)
}

// Board はTrelloのボードまたはGitHubのリポジトリを表す
type Board struct {
	ID          string
	Name        string
	Description *string
	URL         string
	Closed      bool
}

// Column はTrelloのリストまたはGitHubのカラム設定を表す
type Column struct {
	ID       string
	Name     string
	Position int
	Closed   bool
}

// Member はボードのメンバー
type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   *string
	Email       string // Trelloのみ
}

// Label はラベル
type Label struct {
	ID    string
	Name  string
	Color string
}

// Comment はタスクへのコメント
type Comment struct {
	ID        string
	Text      string
	Author    Member
	CreatedAt time.Time
}

// CreateTaskParams はタスク作成時のパラメータ
type CreateTaskParams struct {
	Title       string
	Description *string
	DueDate     *time.Time
	AssigneeIDs []string
	LabelIDs    []string
}

// Validate は作成パラメータを検証する
func (p CreateTaskParams) Validate() error {
	if p.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	return nil
}

// UpdateTaskParams はタスク更新時のパラメータ
// nilのフィールドは変更しない
type UpdateTaskParams struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	DueComplete  *bool
}

// IsEmpty は変更が一つもないかどうかを返す
func (p UpdateTaskParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.DueComplete == nil
}

// TaskFilter はタスクのフィルタ条件
// 指定された条件はすべてAND
type TaskFilter struct {
	ColumnID   string
	ColumnName string
	Archived   *bool
	Status     *Status
	AssigneeID string
	LabelID    string
	Limit      int
}

// Matches はタスクが条件をすべて満たすかを返す
func (f *TaskFilter) Matches(t Task) bool {
	if f == nil {
		return true
	}
	if f.ColumnID != "" && t.ColumnID != f.ColumnID {
		return false
	}
	if f.ColumnName != "" && t.ColumnName != f.ColumnName {
		return false
	}
	if f.Archived != nil && t.Archived != *f.Archived {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AssigneeID != "" && !t.HasAssignee(f.AssigneeID) {
		return false
	}
	if f.LabelID != "" && !t.HasLabel(f.LabelID) {
		return false
	}
	return true
}

// Apply は条件に一致するタスクを元の順序のまま返す
func (f *TaskFilter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !f.Matches(t) {
			continue
		}
		out = append(out, t)
		if f != nil && f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
