// Package provider defines the backend-neutral task provider contract and
// the registry used to construct providers by type.
package provider

import (
	"context"

	"github.com/tkc/boardctl/internal/domain"
)

// Type はプロバイダの種類
type Type string

const (
	TypeTrello Type = "trello"
	TypeGitHub Type = "github"
	TypeLinear Type = "linear" // 予約済み、未実装
)

// AuthType は認証方式
type AuthType string

const (
	AuthAPIKey AuthType = "apikey" // Trello: APIキー + トークン
	AuthOAuth  AuthType = "oauth"  // Trello: 組織APIキー + トークン / GitHub: OAuthトークン
	AuthPAT    AuthType = "pat"    // GitHub: Personal Access Token
)

// Credentials はプロバイダの認証情報
// 取得はCLI側の責務で、プロバイダは受け取るだけ
type Credentials struct {
	Type      AuthType
	APIKey    string
	Token     string
	OrgAPIKey string
}

// TaskProvider はタスク管理バックエンドの共通インターフェース
type TaskProvider interface {
	Type() Type

	// Initialize は認証情報からクライアントを組み立てる。通信はしない
	Initialize(creds Credentials) error

	// ValidateAuth は認証情報が有効かを返す。エラーは返さない
	ValidateAuth(ctx context.Context) bool

	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID string) (*domain.Board, error)
	GetBoardColumns(ctx context.Context, boardID string) ([]domain.Column, error)

	ListTasks(ctx context.Context, boardID string, filter *domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	CreateTask(ctx context.Context, boardID, columnID string, params domain.CreateTaskParams) (*domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, params domain.UpdateTaskParams) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	MoveTask(ctx context.Context, taskID, columnID string) (*domain.Task, error)
	ArchiveTask(ctx context.Context, taskID string) (*domain.Task, error)
	UnarchiveTask(ctx context.Context, taskID string) (*domain.Task, error)

	ListComments(ctx context.Context, taskID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, taskID, text string) (*domain.Comment, error)

	ListMembers(ctx context.Context, boardID string) ([]domain.Member, error)
	ListLabels(ctx context.Context, boardID string) ([]domain.Label, error)

	AddLabel(ctx context.Context, taskID, labelID string) error
	RemoveLabel(ctx context.Context, taskID, labelID string) error
	AddMember(ctx context.Context, taskID, memberID string) error
	RemoveMember(ctx context.Context, taskID, memberID string) error
}

// ColumnConfigurable はカラム設定を外部から注入するプロバイダ (GitHub)
type ColumnConfigurable interface {
	SetColumnConfigs(configs []domain.ColumnConfig) error
	ColumnConfigs() []domain.ColumnConfig
}
