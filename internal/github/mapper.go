package github

import (
	"strconv"
	"strings"

	"github.com/tkc/boardctl/internal/domain"
)

// DefaultStatusLabelPrefix はステータスラベルとみなすラベル名の接頭辞
const DefaultStatusLabelPrefix = "status:"

// カラム設定がない場合に使うカラム
const (
	columnOpenID   = "open"
	columnClosedID = "closed"
)

// DefaultColumnConfigs はカラム設定がない場合の Open / Closed の2カラム
func DefaultColumnConfigs() []domain.ColumnConfig {
	return []domain.ColumnConfig{
		{ID: columnOpenID, Name: "Open"},
		{ID: columnClosedID, Name: "Closed", IsClosedState: true},
	}
}

// Mapper はGitHub APIの型と統一モデルを相互に変換する
// カラム設定を保持するが、入出力は行わない
type Mapper struct {
	Columns           []domain.ColumnConfig
	StatusLabelPrefix string
}

func (m Mapper) prefix() string {
	if m.StatusLabelPrefix == "" {
		return DefaultStatusLabelPrefix
	}
	return m.StatusLabelPrefix
}

// IsStatusLabel はラベルがカラムを表すステータスラベルかを返す
func (m Mapper) IsStatusLabel(name string) bool {
	if strings.HasPrefix(name, m.prefix()) {
		return true
	}
	for _, c := range m.Columns {
		if c.LabelName != "" && c.LabelName == name {
			return true
		}
	}
	return false
}

// InferColumn はIssueの状態とラベルから所属カラムを推定する
//  1. closedならclosed状態のカラム
//  2. openならAPI順で最初に一致したラベルのカラム
//  3. ラベルなし・open状態のカラム
//
// どれにも当たらなければfalse
func (m Mapper) InferColumn(issue Issue) (domain.ColumnConfig, bool) {
	if issue.IsClosed() {
		for _, c := range m.Columns {
			if c.IsClosedState {
				return c, true
			}
		}
		return domain.ColumnConfig{}, false
	}

	for _, l := range issue.Labels {
		for _, c := range m.Columns {
			if c.LabelName != "" && c.LabelName == l.Name {
				return c, true
			}
		}
	}

	for _, c := range m.Columns {
		if c.IsDefaultBucket() {
			return c, true
		}
	}
	return domain.ColumnConfig{}, false
}

// InferStatus はIssueの状態とカラムからStatusを求める
// カラムに明示的なStatusがあればそれを使い、なければ名前から推定する
func InferStatus(closed bool, column *domain.ColumnConfig) domain.Status {
	if closed {
		return domain.StatusDone
	}
	if column == nil {
		return domain.StatusOpen
	}
	if column.Status != "" {
		return column.Status
	}
	name := strings.ToLower(column.Name)
	if strings.Contains(name, "progress") || strings.Contains(name, "doing") {
		return domain.StatusInProgress
	}
	return domain.StatusOpen
}

// ToTask はIssueをTaskに変換する
// columnを渡した場合は推定せずにそのカラムを使う
// どのカラムにも当たらない場合、openなIssueは "open"/"Open"、closedなIssueは
// "closed"/"Closed" になる。closedを "open" に入れると DefaultColumnConfigs の
// closedカラムと食い違うため
func (m Mapper) ToTask(owner, repo string, issue Issue, column *domain.ColumnConfig) domain.Task {
	if column == nil {
		if c, ok := m.InferColumn(issue); ok {
			column = &c
		}
	}

	task := domain.Task{
		ID:          domain.FormatIssueID(owner, repo, issue.Number),
		Number:      issue.Number,
		Title:       issue.Title,
		Status:      InferStatus(issue.IsClosed(), column),
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		AssigneeIDs: make([]string, 0, len(issue.Assignees)),
		LabelIDs:    make([]string, 0, len(issue.Labels)),
		URL:         issue.HTMLURL,
		Archived:    issue.IsClosed(),
		Raw:         issue,
	}

	if column != nil {
		task.ColumnID = column.ID
		task.ColumnName = column.Name
	} else if issue.IsClosed() {
		task.ColumnID, task.ColumnName = columnClosedID, "Closed"
	} else {
		task.ColumnID, task.ColumnName = columnOpenID, "Open"
	}

	if issue.Body != nil && *issue.Body != "" {
		body := *issue.Body
		task.Description = &body
	}
	if issue.Milestone != nil && issue.Milestone.DueOn != nil {
		due := *issue.Milestone.DueOn
		task.DueDate = &due
	}
	comments := issue.Comments
	task.CommentCount = &comments

	for _, a := range issue.Assignees {
		task.AssigneeIDs = append(task.AssigneeIDs, a.Login)
	}
	for _, l := range issue.Labels {
		if m.IsStatusLabel(l.Name) {
			continue
		}
		task.LabelIDs = append(task.LabelIDs, l.Name)
	}
	return task
}

// MoveLabels は移動先カラムに合わせたラベル集合を返す
// 現在のステータスラベルはすべて外し、移動先のラベルがあれば付ける
func (m Mapper) MoveLabels(current []string, target domain.ColumnConfig) []string {
	labels := make([]string, 0, len(current)+1)
	for _, name := range current {
		if m.IsStatusLabel(name) {
			continue
		}
		labels = append(labels, name)
	}
	if target.LabelName != "" {
		labels = append(labels, target.LabelName)
	}
	return labels
}

// ToBoard はリポジトリをBoardに変換する。IDは "owner/repo"
func (Mapper) ToBoard(r Repo) domain.Board {
	var desc *string
	if r.Description != nil && *r.Description != "" {
		d := *r.Description
		desc = &d
	}
	return domain.Board{
		ID:          r.FullName,
		Name:        r.FullName,
		Description: desc,
		URL:         r.HTMLURL,
		Closed:      r.Archived,
	}
}

// ToColumns はカラム設定から統一モデルのカラムを作る
func (m Mapper) ToColumns() []domain.Column {
	configs := m.Columns
	if len(configs) == 0 {
		configs = DefaultColumnConfigs()
	}
	cols := make([]domain.Column, 0, len(configs))
	for i, c := range configs {
		cols = append(cols, c.Column(i))
	}
	return cols
}

// ToLabel はラベルを変換する。IDはラベル名
func (Mapper) ToLabel(l Label) domain.Label {
	return domain.Label{
		ID:    l.Name,
		Name:  l.Name,
		Color: "#" + strings.ToUpper(strings.TrimPrefix(l.Color, "#")),
	}
}

// ToLabels はステータスラベルを除いてラベルを変換する
func (m Mapper) ToLabels(labels []Label) []domain.Label {
	out := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		if m.IsStatusLabel(l.Name) {
			continue
		}
		out = append(out, m.ToLabel(l))
	}
	return out
}

// ToMember はユーザーを変換する。IDはログイン名
func (Mapper) ToMember(u User) domain.Member {
	member := domain.Member{
		ID:          u.Login,
		Username:    u.Login,
		DisplayName: u.Login,
	}
	if u.Name != nil && *u.Name != "" {
		member.DisplayName = *u.Name
	}
	if u.AvatarURL != "" {
		a := u.AvatarURL
		member.AvatarURL = &a
	}
	return member
}

// ToComment はコメントを変換する
func (m Mapper) ToComment(c IssueComment) domain.Comment {
	return domain.Comment{
		ID:        strconv.FormatInt(c.ID, 10),
		Text:      c.Body,
		Author:    m.ToMember(c.User),
		CreatedAt: c.CreatedAt,
	}
}

// ToCreateRequest は作成パラメータをリクエストに変換する
// 呼び出し側のラベルに含まれるステータスラベルは無視し、カラムのラベルを付ける
func (m Mapper) ToCreateRequest(params domain.CreateTaskParams, column domain.ColumnConfig) (CreateIssueRequest, error) {
	if params.DueDate != nil {
		return CreateIssueRequest{}, dueDateUnsupported()
	}
	req := CreateIssueRequest{
		Title:     params.Title,
		Labels:    m.MoveLabels(params.LabelIDs, column),
		Assignees: append([]string(nil), params.AssigneeIDs...),
	}
	if params.Description != nil {
		req.Body = *params.Description
	}
	return req, nil
}

// ToUpdateRequest は更新パラメータをリクエストに変換する
func (Mapper) ToUpdateRequest(params domain.UpdateTaskParams) (UpdateIssueRequest, error) {
	if params.DueDate != nil || params.ClearDueDate || params.DueComplete != nil {
		return UpdateIssueRequest{}, dueDateUnsupported()
	}
	return UpdateIssueRequest{
		Title: params.Title,
		Body:  params.Description,
	}, nil
}

// StateUpdate はclosed状態を変えるためのリクエストを返す
func StateUpdate(closed bool) UpdateIssueRequest {
	state := stateOpen
	if closed {
		state = stateClosed
		reason := "completed"
		return UpdateIssueRequest{State: &state, StateReason: &reason}
	}
	return UpdateIssueRequest{State: &state}
}

func dueDateUnsupported() error {
	return &domain.UnsupportedError{
		Provider:  providerName,
		Operation: "due dates",
		Reason:    "GitHub issues have no due date; set a milestone due date instead",
	}
}
