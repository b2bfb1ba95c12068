package provider

import (
	"sort"
	"strings"

	"github.com/tkc/boardctl/internal/domain"
)

// Factory はプロバイダを生成する
type Factory func() TaskProvider

// Registry はプロバイダ種別から生成関数を引く
// アプリケーション起動時に一度だけ組み立て、必要な箇所へ渡す
type Registry struct {
	factories map[Type]Factory
}

// NewRegistry は空のRegistryを作成する
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Type]Factory)}
}

// Register は生成関数を登録する。同じ種別は上書きする
func (r *Registry) Register(t Type, f Factory) {
	r.factories[t] = f
}

// Create は指定種別のプロバイダを生成する
func (r *Registry) Create(t Type) (TaskProvider, error) {
	f, ok := r.factories[t]
	if !ok {
		types := r.Types()
		names := make([]string, len(types))
		for i, tt := range types {
			names[i] = string(tt)
		}
		return nil, &domain.NotFoundError{Kind: "provider", ID: string(t), Available: names}
	}
	return f(), nil
}

// Types は登録済みの種別をソートして返す
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ParseType は文字列をプロバイダ種別に変換する
func ParseType(s string) Type {
	return Type(strings.ToLower(strings.TrimSpace(s)))
}
