package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/config"
	"github.com/Skufu/repurpose/internal/logging"
	"github.com/Skufu/repurpose/internal/platform"
	"github.com/Skufu/repurpose/internal/store"
)

type cli struct {
	out      io.Writer
	logLevel string
	timeout  time.Duration

	logger *zap.Logger
	svc    *platform.Services
	store  *store.Store
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "repurpose",
		Short: "Drug repurposing intelligence from the command line",
		Long: `repurpose runs the same analyses as the HTTP API without a server.

Quota and authentication do not apply. Only the user commands open the
database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (default: LOG_LEVEL or info)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "Operation timeout")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <prompt>",
		Short: "Run a strategic analysis and print it as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			resp, err := c.svc.Strategic.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printJSON(resp)
		},
	}

	var drug, indication string
	assessCmd := &cobra.Command{
		Use:   "assess",
		Short: "Run the full repurposing assessment for one drug and indication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			out, err := c.svc.Assessor.Run(ctx, drug, indication)
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
	assessCmd.Flags().StringVar(&drug, "drug", "", "Drug name (required)")
	assessCmd.Flags().StringVar(&indication, "indication", "", "Target indication (required)")
	_ = assessCmd.MarkFlagRequired("drug")
	_ = assessCmd.MarkFlagRequired("indication")

	reportCmd := &cobra.Command{
		Use:   "report <prompt>",
		Short: "Run a strategic analysis and write it as a PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			prompt := strings.Join(args, " ")
			resp, err := c.svc.Strategic.Run(ctx, prompt)
			if err != nil {
				return err
			}
			path, err := c.svc.Reports.Generate(ctx, prompt, resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, path)
			return nil
		},
	}

	root.AddCommand(analyzeCmd, assessCmd, reportCmd, c.newUserCmd())
	return root
}

func (c *cli) newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the users table",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.openStore(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	var email, username, passwordHash string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a FREE tier user",
		Long: `add inserts a FREE tier user with an empty usage counter.

The password must already be hashed; it is stored as given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			u, err := c.store.CreateUser(ctx, email, username, passwordHash)
			if err != nil {
				return fmt.Errorf("create user %q: %w", username, err)
			}
			c.logger.Info("user created", zap.Int64("id", u.ID), zap.String("username", u.Username))
			fmt.Fprintf(c.out, "created user %s (id %d, tier %s)\n", u.Username, u.ID, u.Tier)
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	addCmd.Flags().StringVar(&username, "username", "", "Username (required)")
	addCmd.Flags().StringVar(&passwordHash, "password-hash", "", "Pre-hashed password (required)")
	_ = addCmd.MarkFlagRequired("email")
	_ = addCmd.MarkFlagRequired("username")
	_ = addCmd.MarkFlagRequired("password-hash")

	userCmd.AddCommand(addCmd)
	return userCmd
}

// openStore connects to DATABASE_URL and applies the schema. ENABLE_DB is
// not consulted.
func (c *cli) openStore(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for user commands")
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	c.store = store.New(pool, cfg.FreeTierLimit)
	return c.store.Migrate(ctx)
}

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOffline()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	c.logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.svc, err = platform.Build(ctx, cfg, c.logger)
	return err
}

func (c *cli) teardown() {
	if c.svc != nil {
		c.svc.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
