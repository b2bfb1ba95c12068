package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

// Config はアプリケーション設定
type Config struct {
	DefaultProvider string        `yaml:"default_provider" mapstructure:"default_provider"`
	Trello          TrelloConfig  `yaml:"trello" mapstructure:"trello"`
	GitHub          GitHubConfig  `yaml:"github" mapstructure:"github"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency     int           `yaml:"concurrency" mapstructure:"concurrency"`
	Debug           bool          `yaml:"debug" mapstructure:"debug"`

	path string
}

// TrelloConfig はTrelloの認証情報
type TrelloConfig struct {
	AuthType  provider.AuthType `yaml:"auth_type,omitempty" mapstructure:"auth_type"`
	APIKey    string            `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Token     string            `yaml:"token,omitempty" mapstructure:"token"`
	OrgAPIKey string            `yaml:"org_api_key,omitempty" mapstructure:"org_api_key"`
}

// GitHubConfig はGitHubの認証情報と設定
type GitHubConfig struct {
	AuthType          provider.AuthType `yaml:"auth_type,omitempty" mapstructure:"auth_type"`
	Token             string            `yaml:"token,omitempty" mapstructure:"token"`
	Organization      string            `yaml:"organization,omitempty" mapstructure:"organization"`
	StatusLabelPrefix string            `yaml:"status_label_prefix,omitempty" mapstructure:"status_label_prefix"`
}

const (
	// DefaultTimeout はリクエストタイムアウトのデフォルト
	DefaultTimeout = 10 * time.Second
	// DefaultConcurrency は同時実行数のデフォルト
	DefaultConcurrency = 10

	envPrefix      = "BOARDCTL"
	configFileName = "config.yaml"
	configDirName  = ".boardctl"
)

// envAliases はBOARDCTL_* 以外に読む環境変数
var envAliases = map[string][]string{
	"trello.api_key": {"TRELLO_API_KEY"},
	"trello.token":   {"TRELLO_TOKEN"},
	"github.token":   {"GITHUB_TOKEN"},
}

var keys = []string{
	"default_provider",
	"trello.auth_type", "trello.api_key", "trello.token", "trello.org_api_key",
	"github.auth_type", "github.token", "github.organization", "github.status_label_prefix",
	"timeout", "concurrency", "debug",
}

// LoadOptions は読み込み元の指定。空なら既定の場所を使う
type LoadOptions struct {
	Path    string // 設定ファイル
	EnvFile string // .env ファイル
}

// Dir は設定ディレクトリ (~/.boardctl) を返す
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// DefaultPath は設定ファイルの既定パスを返す
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load は既定の場所から設定を読み込む
func Load() (*Config, error) {
	return LoadWithPrecedence(LoadOptions{})
}

// LoadWithPrecedence は設定を読み込む
// 優先順位は デフォルト < 設定ファイル < .env < 環境変数
func LoadWithPrecedence(opts LoadOptions) (*Config, error) {
	path := opts.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	v := viper.New()
	v.SetDefault("default_provider", string(provider.TypeTrello))
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("debug", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		names := append([]string{envName(key)}, envAliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// .env は環境変数を上書きしない
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	for _, key := range keys {
		names := append([]string{envName(key)}, envAliases[key]...)
		if envSet(names) {
			continue
		}
		for _, name := range names {
			if val, ok := dotenv[name]; ok {
				v.Set(key, val)
				break
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &cfg, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envSet(names []string) bool {
	for _, name := range names {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// Path は設定ファイルのパスを返す
func (c *Config) Path() string {
	return c.path
}

// Save は設定ファイルを保存する
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	// ディレクトリ作成
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.path = path
	return nil
}

// ProviderType はoverrideが空なら既定のプロバイダを返す
func (c *Config) ProviderType(override string) provider.Type {
	name := override
	if name == "" {
		name = c.DefaultProvider
	}
	return provider.ParseType(name)
}

// Validate は指定プロバイダの認証情報が揃っているかを検証する
func (c *Config) Validate(t provider.Type) error {
	hint := fmt.Sprintf("Run: boardctl auth login --provider %s", t)
	switch t {
	case provider.TypeTrello:
		if c.Trello.Token == "" {
			return fmt.Errorf("trello token is required. %s: %w", hint, domain.ErrAuthConfigMissing)
		}
		if c.Trello.AuthType == provider.AuthOAuth {
			if c.Trello.OrgAPIKey == "" {
				return fmt.Errorf("trello org_api_key is required for oauth. %s: %w", hint, domain.ErrAuthConfigMissing)
			}
		} else if c.Trello.APIKey == "" {
			return fmt.Errorf("trello api_key is required. %s: %w", hint, domain.ErrAuthConfigMissing)
		}
	case provider.TypeGitHub:
		if c.GitHub.Token == "" {
			return fmt.Errorf("github token is required. %s: %w", hint, domain.ErrAuthConfigMissing)
		}
	default:
		return &domain.UnsupportedError{Provider: string(t), Operation: "configure", Reason: "provider is not available"}
	}
	return nil
}

// Credentials は指定プロバイダの認証情報を返す
func (c *Config) Credentials(t provider.Type) (provider.Credentials, error) {
	if err := c.Validate(t); err != nil {
		return provider.Credentials{}, err
	}
	switch t {
	case provider.TypeTrello:
		authType := c.Trello.AuthType
		if authType == "" {
			authType = provider.AuthAPIKey
		}
		return provider.Credentials{
			Type:      authType,
			APIKey:    c.Trello.APIKey,
			Token:     c.Trello.Token,
			OrgAPIKey: c.Trello.OrgAPIKey,
		}, nil
	default:
		authType := c.GitHub.AuthType
		if authType == "" {
			authType = provider.AuthPAT
		}
		return provider.Credentials{Type: authType, Token: c.GitHub.Token}, nil
	}
}

// ClearCredentials は指定プロバイダの認証情報を消す
func (c *Config) ClearCredentials(t provider.Type) {
	switch t {
	case provider.TypeTrello:
		c.Trello = TrelloConfig{}
	case provider.TypeGitHub:
		c.GitHub = GitHubConfig{
			Organization:      c.GitHub.Organization,
			StatusLabelPrefix: c.GitHub.StatusLabelPrefix,
		}
	}
}

// IsConfigured は指定プロバイダの認証情報が揃っているかどうかを返す
func (c *Config) IsConfigured(t provider.Type) bool {
	return c.Validate(t) == nil
}
