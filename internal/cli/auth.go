package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkc/boardctl/internal/config"
	"github.com/tkc/boardctl/internal/github"
	"github.com/tkc/boardctl/internal/provider"
)

var (
	loginToken     string
	loginAPIKey    string
	loginOrgAPIKey string
	loginAuthType  string
	logoutAll      bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for a provider",
	Long: `Store credentials for Trello or GitHub.

Trello (--provider trello):
  API key:  https://trello.com/power-ups/admin
  Token:    generated from the API key page ("Token" link)
  Use --auth-type oauth with --org-api-key for an organization key.

GitHub (--provider github):
  Personal access token with the "repo" scope
  (fine-grained: Issues read and write, Metadata read).
  Create a token at: https://github.com/settings/tokens`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := cfg.ProviderType(providerFlag)
		reader := bufio.NewReader(os.Stdin)

		switch t {
		case provider.TypeTrello:
			if err := loginTrello(cmd.OutOrStdout(), reader, cfg); err != nil {
				return err
			}
		case provider.TypeGitHub:
			if err := loginGitHub(cmd.OutOrStdout(), reader, cfg); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown provider %q (available: trello, github)", t)
		}
		if providerFlag != "" {
			cfg.DefaultProvider = string(t)
		}

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("✓ Credentials saved to %s\n", cfg.Path())

		p, _, err := openProvider()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()
		if !p.ValidateAuth(ctx) {
			fmt.Println("⚠️  The credentials were rejected or could not be verified")
			return nil
		}
		fmt.Println("✓ Credentials verified")
		fmt.Println()
		fmt.Printf("Next step: boardctl board list --provider %s\n", t)
		return nil
	},
}

func loginTrello(out io.Writer, reader *bufio.Reader, c *config.Config) error {
	authType := provider.AuthType(loginAuthType)
	if authType == "" {
		authType = provider.AuthAPIKey
	}
	if authType != provider.AuthAPIKey && authType != provider.AuthOAuth {
		return fmt.Errorf("trello auth type must be apikey or oauth, got %q", authType)
	}

	creds := config.TrelloConfig{AuthType: authType, APIKey: loginAPIKey, Token: loginToken, OrgAPIKey: loginOrgAPIKey}
	var err error
	if authType == provider.AuthOAuth {
		if creds.OrgAPIKey, err = prompt(out, reader, "Organization API key", creds.OrgAPIKey); err != nil {
			return err
		}
	} else if creds.APIKey, err = prompt(out, reader, "API key", creds.APIKey); err != nil {
		return err
	}
	if creds.Token, err = prompt(out, reader, "Token", creds.Token); err != nil {
		return err
	}
	c.Trello = creds
	return nil
}

func loginGitHub(out io.Writer, reader *bufio.Reader, c *config.Config) error {
	authType := provider.AuthType(loginAuthType)
	if authType == "" {
		authType = provider.AuthPAT
	}
	if authType != provider.AuthPAT && authType != provider.AuthOAuth {
		return fmt.Errorf("github auth type must be pat or oauth, got %q", authType)
	}

	token, err := prompt(out, reader, "GitHub token", loginToken)
	if err != nil {
		return err
	}
	c.GitHub.AuthType = authType
	c.GitHub.Token = token
	return nil
}

// prompt はvalueが空の場合のみ入力を求める
func prompt(out io.Writer, reader *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(out, "%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return line, nil
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range registry.Types() {
			if providerFlag != "" && cfg.ProviderType(providerFlag) != t {
				continue
			}
			marker := " "
			if t == cfg.ProviderType("") {
				marker = "*"
			}
			if !cfg.IsConfigured(t) {
				fmt.Printf("%s %-7s ✗ Not logged in (Run: boardctl auth login --provider %s)\n", marker, t, t)
				continue
			}

			creds, _ := cfg.Credentials(t)
			fmt.Printf("%s %-7s token: %s (%s)\n", marker, t, maskToken(creds.Token), creds.Type)
			showProviderStatus(cmd.Context(), t)

			if id, name := store.SelectedBoard(t); id != "" {
				fmt.Printf("          board: %s (%s)\n", name, id)
			}
		}
		return nil
	},
}

func showProviderStatus(ctx context.Context, t provider.Type) {
	p, err := registry.Create(t)
	if err != nil {
		return
	}
	creds, err := cfg.Credentials(t)
	if err != nil || p.Initialize(creds) != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if gh, ok := p.(*github.Provider); ok {
		v, err := gh.CurrentUser(ctx)
		if err != nil {
			fmt.Printf("          ✗ %v\n", err)
			return
		}
		fmt.Printf("          ✓ Logged in as %s\n", v.Login)
		return
	}
	if p.ValidateAuth(ctx) {
		fmt.Println("          ✓ Credentials valid")
	} else {
		fmt.Println("          ✗ Credentials rejected or unreachable")
	}
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		types := []provider.Type{cfg.ProviderType(providerFlag)}
		if logoutAll {
			types = registry.Types()
		}
		for _, t := range types {
			cfg.ClearCredentials(t)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		for _, t := range types {
			fmt.Printf("✓ Logged out from %s\n", t)
		}
		return nil
	},
}

func init() {
	authLoginCmd.Flags().StringVar(&loginToken, "token", "", "token (prompted when omitted)")
	authLoginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "Trello API key")
	authLoginCmd.Flags().StringVar(&loginOrgAPIKey, "org-api-key", "", "Trello organization API key (oauth)")
	authLoginCmd.Flags().StringVar(&loginAuthType, "auth-type", "", "auth type (trello: apikey|oauth, github: pat|oauth)")
	authLogoutCmd.Flags().BoolVar(&logoutAll, "all", false, "log out from every provider")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}
