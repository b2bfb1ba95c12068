package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/provider"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		names := append([]string{envName(key)}, envAliases[key]...)
		for _, name := range names {
			if _, ok := os.LookupEnv(name); ok {
				t.Setenv(name, "")
				os.Unsetenv(name)
			}
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadWithPrecedence(LoadOptions{
		Path:    filepath.Join(dir, "missing.yaml"),
		EnvFile: filepath.Join(dir, "missing.env"),
	})
	if err != nil {
		t.Fatalf("LoadWithPrecedence: %v", err)
	}
	if cfg.DefaultProvider != "trello" || cfg.Timeout != DefaultTimeout || cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	envFile := filepath.Join(dir, ".env")

	writeFile(t, path, `default_provider: github
timeout: 30s
concurrency: 4
trello:
  api_key: file-key
  token: file-token
github:
  token: file-gh
  organization: acme
`)
	writeFile(t, envFile, "BOARDCTL_TRELLO_TOKEN=dotenv-token\nBOARDCTL_GITHUB_TOKEN=dotenv-gh\n")
	t.Setenv("BOARDCTL_GITHUB_TOKEN", "env-gh")

	cfg, err := LoadWithPrecedence(LoadOptions{Path: path, EnvFile: envFile})
	if err != nil {
		t.Fatalf("LoadWithPrecedence: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file only", cfg.Trello.APIKey, "file-key"},
		{".env over file", cfg.Trello.Token, "dotenv-token"},
		{"env over .env", cfg.GitHub.Token, "env-gh"},
		{"file over default", cfg.DefaultProvider, "github"},
		{"duration", cfg.Timeout, 30 * time.Second},
		{"int", cfg.Concurrency, 4},
		{"nested", cfg.GitHub.Organization, "acme"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadVendorEnvAliases(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "alias-gh")

	cfg, err := LoadWithPrecedence(LoadOptions{Path: filepath.Join(dir, "c.yaml"), EnvFile: filepath.Join(dir, ".env")})
	if err != nil {
		t.Fatalf("LoadWithPrecedence: %v", err)
	}
	if cfg.GitHub.Token != "alias-gh" {
		t.Fatalf("token = %q", cfg.GitHub.Token)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	none := filepath.Join(dir, "none.env")

	cfg, err := LoadWithPrecedence(LoadOptions{Path: path, EnvFile: none})
	if err != nil {
		t.Fatalf("LoadWithPrecedence: %v", err)
	}
	cfg.Trello = TrelloConfig{AuthType: provider.AuthAPIKey, APIKey: "k", Token: "t"}
	cfg.Timeout = 15 * time.Second
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}

	again, err := LoadWithPrecedence(LoadOptions{Path: path, EnvFile: none})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Trello != cfg.Trello || again.Timeout != 15*time.Second {
		t.Fatalf("reloaded = %+v", again)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		typ     provider.Type
		wantErr bool
	}{
		{"trello apikey ok", Config{Trello: TrelloConfig{APIKey: "k", Token: "t"}}, provider.TypeTrello, false},
		{"trello missing token", Config{Trello: TrelloConfig{APIKey: "k"}}, provider.TypeTrello, true},
		{"trello oauth needs org key", Config{Trello: TrelloConfig{AuthType: provider.AuthOAuth, APIKey: "k", Token: "t"}}, provider.TypeTrello, true},
		{"trello oauth ok", Config{Trello: TrelloConfig{AuthType: provider.AuthOAuth, OrgAPIKey: "o", Token: "t"}}, provider.TypeTrello, false},
		{"github ok", Config{GitHub: GitHubConfig{Token: "t"}}, provider.TypeGitHub, false},
		{"github missing", Config{}, provider.TypeGitHub, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrAuthConfigMissing) {
				t.Fatalf("expected ErrAuthConfigMissing, got %v", err)
			}
		})
	}

	if err := (&Config{}).Validate(provider.TypeLinear); !domain.IsUnsupported(err) {
		t.Fatalf("linear is reserved, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	cfg := Config{
		Trello: TrelloConfig{APIKey: "k", Token: "t"},
		GitHub: GitHubConfig{Token: "g", Organization: "acme"},
	}
	creds, err := cfg.Credentials(provider.TypeTrello)
	if err != nil || creds.Type != provider.AuthAPIKey || creds.APIKey != "k" {
		t.Fatalf("trello creds = %+v %v", creds, err)
	}
	creds, err = cfg.Credentials(provider.TypeGitHub)
	if err != nil || creds.Type != provider.AuthPAT || creds.Token != "g" {
		t.Fatalf("github creds = %+v %v", creds, err)
	}

	cfg.ClearCredentials(provider.TypeGitHub)
	if cfg.GitHub.Token != "" || cfg.GitHub.Organization != "acme" {
		t.Fatalf("after logout = %+v", cfg.GitHub)
	}
	if cfg.ProviderType("") != "" || cfg.ProviderType("GitHub") != provider.TypeGitHub {
		t.Fatal("ProviderType")
	}
}
