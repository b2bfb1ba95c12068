package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnConfig はGitHub用のカラム定義
// GitHubにはカラムの概念がないため、ラベルとopen/closedの組み合わせで表現する
type ColumnConfig struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	LabelName     string `yaml:"label_name,omitempty" json:"labelName,omitempty"` // 空ならラベルなし
	IsClosedState bool   `yaml:"is_closed_state,omitempty" json:"isClosedState,omitempty"`
	Status        Status `yaml:"status,omitempty" json:"status,omitempty"` // 空なら名前から推定
}

// IsDefaultBucket はラベルなし・open状態のカラムかどうかを返す
func (c ColumnConfig) IsDefaultBucket() bool {
	return c.LabelName == "" && !c.IsClosedState
}

// Column は統一モデルのColumnに変換する
func (c ColumnConfig) Column(position int) Column {
	return Column{
		ID:       c.ID,
		Name:     c.Name,
		Position: position,
		Closed:   c.IsClosedState,
	}
}

// ValidateColumnConfigs はカラム設定の整合性を検証する
func ValidateColumnConfigs(configs []ColumnConfig) error {
	ids := make(map[string]bool, len(configs))
	labels := make(map[string]bool, len(configs))
	closed := 0

	for i, c := range configs {
		if c.ID == "" {
			return &ValidationError{Field: "column config", Message: fmt.Sprintf("entry %d has an empty id", i)}
		}
		if ids[c.ID] {
			return &ValidationError{Field: "column config", Message: fmt.Sprintf("duplicate column id %q", c.ID)}
		}
		ids[c.ID] = true

		if c.LabelName != "" {
			if strings.TrimSpace(c.LabelName) == "" {
				return &ValidationError{Field: "column config", Message: fmt.Sprintf("column %q has a blank label name", c.ID)}
			}
			if labels[c.LabelName] {
				return &ValidationError{Field: "column config", Message: fmt.Sprintf("duplicate label name %q", c.LabelName)}
			}
			labels[c.LabelName] = true
		}

		if c.Status != "" && !c.Status.Valid() {
			return &ValidationError{Field: "column config", Message: fmt.Sprintf("column %q has unknown status %q", c.ID, c.Status)}
		}
		if c.IsClosedState {
			closed++
			if c.Status != "" && c.Status != StatusDone {
				return &ValidationError{Field: "column config", Message: fmt.Sprintf("closed column %q must have status done", c.ID)}
			}
		} else if c.Status == StatusDone || c.Status == StatusArchived {
			// openなIssueはarchivedにならないので、done/archivedは閉じたカラムだけ
			return &ValidationError{Field: "column config", Message: fmt.Sprintf("column %q is not the closed state and cannot have status %s", c.ID, c.Status)}
		}
	}

	if closed > 1 {
		return &ValidationError{Field: "column config", Message: "at most one column may be the closed state"}
	}
	return nil
}

// SplitRepoID は "owner/repo" 形式のボードIDを分解する
func SplitRepoID(boardID string) (owner, repo string, err error) {
	parts := strings.Split(boardID, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &ValidationError{Field: "board id", Message: fmt.Sprintf("%q must be in the form owner/repo", boardID)}
	}
	return parts[0], parts[1], nil
}

// FormatIssueID はGitHubのタスクIDを組み立てる
func FormatIssueID(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

// ParseIssueID は "owner/repo#number" 形式のタスクIDを分解する
func ParseIssueID(taskID string) (owner, repo string, number int, err error) {
	idx := strings.LastIndex(taskID, "#")
	if idx < 0 {
		return "", "", 0, &ValidationError{Field: "task id", Message: fmt.Sprintf("%q must be in the form owner/repo#number", taskID)}
	}
	owner, repo, err = SplitRepoID(taskID[:idx])
	if err != nil {
		return "", "", 0, err
	}
	number, err = strconv.Atoi(taskID[idx+1:])
	if err != nil || number <= 0 {
		return "", "", 0, &ValidationError{Field: "task id", Message: fmt.Sprintf("%q has an invalid issue number", taskID)}
	}
	return owner, repo, number, nil
}
