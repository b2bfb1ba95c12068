package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tkc/boardctl/internal/cache"
	"github.com/tkc/boardctl/internal/config"
	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/github"
	"github.com/tkc/boardctl/internal/provider"
	"github.com/tkc/boardctl/internal/ratelimit"
	"github.com/tkc/boardctl/internal/trello"
)

var (
	cfg      *config.Config
	store    *cache.Cache
	registry *provider.Registry
	logger   = log.New()

	verbose      bool
	providerFlag string
	boardFlag    string
)

// rootCmd はルートコマンド
var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "Manage Trello boards and GitHub Issues from the terminal",
	Long: `boardctl is a CLI task manager for Trello and GitHub Issues.

Trello boards and GitHub repositories are shown through the same model:
boards, columns, tasks, labels and members. GitHub columns are built from
status labels and the open/closed state of each issue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogger(cfg.Debug || verbose)

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		store, err = cache.Load(cache.DefaultPath(dir))
		if err != nil {
			return fmt.Errorf("failed to load cache: %w", err)
		}

		registry = newRegistry(cfg, logger)
		return nil
	},
}

func setupLogger(debug bool) {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger.SetLevel(log.InfoLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
}

// newRegistry は設定からプロバイダの生成関数を登録したRegistryを作る
// すべてのプロバイダは同じLimiterを共有する
func newRegistry(c *config.Config, l log.FieldLogger) *provider.Registry {
	limiter := ratelimit.New(c.Concurrency)

	r := provider.NewRegistry()
	r.Register(provider.TypeTrello, func() provider.TaskProvider {
		return trello.NewProvider(
			trello.WithTimeout(c.Timeout),
			trello.WithLimiter(limiter),
			trello.WithLogger(l),
		)
	})
	r.Register(provider.TypeGitHub, func() provider.TaskProvider {
		p := github.NewProvider(
			github.WithTimeout(c.Timeout),
			github.WithLimiter(limiter),
			github.WithLogger(l),
		)
		p.SetStatusLabelPrefix(c.GitHub.StatusLabelPrefix)
		return p
	})
	return r
}

// Execute はCLIを実行する
// Ctrl+C で実行中のリクエスト待ちを打ち切る
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err, verbose))
		os.Exit(1)
	}
}

// formatError はエラーを表示用の文字列にする
// verboseの場合のみベンダーのレスポンスボディを含める
func formatError(err error, verbose bool) string {
	var apiErr *domain.APIError
	if verbose && errors.As(err, &apiErr) {
		return "Error: " + apiErr.DebugString()
	}

	msg := "Error: " + err.Error()
	var rl *domain.RateLimitError
	var authErr *domain.AuthError
	var netErr *domain.NetworkError
	switch {
	case errors.As(err, &rl):
		if rl.RetryAfter != nil {
			msg += fmt.Sprintf("\nRetry in %d seconds.", rl.RetryAfterSeconds())
		}
	case errors.As(err, &authErr):
		msg += "\nRun: boardctl auth login --provider " + authErr.Provider
	case errors.As(err, &netErr) && netErr.IsOffline:
		msg += "\nCheck your network connection."
	}
	return msg
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "provider to use (trello, github)")
	rootCmd.PersistentFlags().StringVarP(&boardFlag, "board", "b", "", "board id (GitHub: owner/repo); defaults to the selected board")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(cacheCmd)
}
