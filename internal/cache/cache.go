// Package cache persists per-provider selections and lookup snapshots
// between CLI invocations. Everything in it can be discarded.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

const fileName = "cache.yaml"

// Cache はプロバイダごとのボード選択・カラム設定・参照データを保持する
type Cache struct {
	mu        sync.Mutex
	path      string
	Providers map[provider.Type]*ProviderCache `yaml:"providers"`
}

// ProviderCache は1つのプロバイダ分のキャッシュ
type ProviderCache struct {
	BoardID       string                           `yaml:"board_id,omitempty"`
	BoardName     string                           `yaml:"board_name,omitempty"`
	ColumnConfigs map[string][]domain.ColumnConfig `yaml:"column_configs,omitempty"`
	Lookups       map[string]*Lookup               `yaml:"lookups,omitempty"`
}

// Lookup はボード単位の参照データのスナップショット
type Lookup struct {
	FetchedAt time.Time       `yaml:"fetched_at"`
	Columns   []domain.Column `yaml:"columns,omitempty"`
	Members   []domain.Member `yaml:"members,omitempty"`
	Labels    []domain.Label  `yaml:"labels,omitempty"`
}

// Fresh はスナップショットがmaxAge以内に取得されたかどうかを返す
func (l *Lookup) Fresh(now time.Time, maxAge time.Duration) bool {
	return l != nil && now.Sub(l.FetchedAt) <= maxAge
}

// DefaultPath はキャッシュファイルの既定パスを返す
func DefaultPath(dir string) string {
	return filepath.Join(dir, fileName)
}

// Load はキャッシュを読み込む。ファイルがない、または壊れている場合は空を返す
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, Providers: map[provider.Type]*ProviderCache{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &Cache{path: path, Providers: map[provider.Type]*ProviderCache{}}, nil
	}
	if c.Providers == nil {
		c.Providers = map[provider.Type]*ProviderCache{}
	}
	return c, nil
}

// Save はキャッシュを書き出す
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Reset はすべてのキャッシュを消してファイルを削除する
func (c *Cache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Providers = map[provider.Type]*ProviderCache{}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache: %w", err)
	}
	return nil
}

func (c *Cache) entry(t provider.Type) *ProviderCache {
	pc, ok := c.Providers[t]
	if !ok {
		pc = &ProviderCache{}
		c.Providers[t] = pc
	}
	return pc
}

// SelectedBoard は選択中のボードを返す
func (c *Cache) SelectedBoard(t provider.Type) (id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pc, ok := c.Providers[t]; ok {
		return pc.BoardID, pc.BoardName
	}
	return "", ""
}

// SelectBoard はボードを選択する
func (c *Cache) SelectBoard(t provider.Type, board domain.Board) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.entry(t)
	pc.BoardID = board.ID
	pc.BoardName = board.Name
}

// ColumnConfigs はボードのカラム設定を返す
func (c *Cache) ColumnConfigs(t provider.Type, boardID string) []domain.ColumnConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc, ok := c.Providers[t]
	if !ok {
		return nil
	}
	return append([]domain.ColumnConfig(nil), pc.ColumnConfigs[boardID]...)
}

// SetColumnConfigs はボードのカラム設定を検証して保存する
func (c *Cache) SetColumnConfigs(t provider.Type, boardID string, configs []domain.ColumnConfig) error {
	if err := domain.ValidateColumnConfigs(configs); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.entry(t)
	if pc.ColumnConfigs == nil {
		pc.ColumnConfigs = map[string][]domain.ColumnConfig{}
	}
	pc.ColumnConfigs[boardID] = append([]domain.ColumnConfig(nil), configs...)
	// カラムが変わると参照データも古くなる
	delete(pc.Lookups, boardID)
	return nil
}

// Lookup はボードの参照データを返す。なければnil
func (c *Cache) Lookup(t provider.Type, boardID string) *Lookup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pc, ok := c.Providers[t]; ok {
		return pc.Lookups[boardID]
	}
	return nil
}

// PutLookup はボードの参照データを保存する
func (c *Cache) PutLookup(t provider.Type, boardID string, l *Lookup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.entry(t)
	if pc.Lookups == nil {
		pc.Lookups = map[string]*Lookup{}
	}
	pc.Lookups[boardID] = l
}
