package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pazzo-admin/internal/config"
	"pazzo-admin/internal/remote"
	"pazzo-admin/internal/resource"
	"pazzo-admin/internal/session"
)

// cli holds global flags and everything built from them.
type cli struct {
	// Global flags
	verbose       bool
	apiURL        string
	sessionDB     string
	resourcesFile string
	timeout       time.Duration

	cfg     *config.Config
	logger  *zap.Logger
	table   *resource.Table
	store   *session.Store
	session *session.Manager
	client  *remote.Client
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

// rootCmd builds the command tree. A logger set beforehand is kept.
func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "admin",
		Short: "Pazzo admin console",
		Long: `Manage the Pazzo product catalogue from the terminal.

Log in once; the session token and theme are kept in a local SQLite file
and sent with every request until you log out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "Admin API base URL (default $ADMIN_API_URL)")
	root.PersistentFlags().StringVar(&c.sessionDB, "session-db", "", "Session store path (default $ADMIN_SESSION_DB)")
	root.PersistentFlags().StringVar(&c.resourcesFile, "resources", "", "Resource table YAML (default built-in)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "Per-request timeout (default $ADMIN_API_TIMEOUT)")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.themeCmd(),
		c.resetPasswordCmd(),
		c.dashboardCmd(),
		c.listCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.logger == nil {
		zcfg := zap.NewProductionConfig()
		if c.verbose || cfg.App.Debug {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		c.logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	if c.apiURL == "" {
		c.apiURL = cfg.Client.BaseURL
	}
	if c.sessionDB == "" {
		c.sessionDB = cfg.Store.Path
	}
	if c.resourcesFile == "" {
		c.resourcesFile = cfg.Client.ResourcesFile
	}
	if !cmd.Flags().Changed("timeout") {
		c.timeout = cfg.Client.Timeout
	}

	c.table, err = resource.LoadTable(c.resourcesFile)
	if err != nil {
		return err
	}

	c.store, err = session.NewStore(c.sessionDB)
	if err != nil {
		return err
	}
	c.session = session.NewManager(c.store, nil, c.logger.Named("session"))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.session.Init(ctx); err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	c.client = remote.New(c.apiURL, c.timeout,
		remote.WithTokenSource(c.session),
		remote.WithLogger(c.logger.Named("remote")),
	)
	c.session.SetAuthenticator(c.client)

	c.logger.Debug("admin ready",
		zap.String("api_url", c.apiURL),
		zap.String("session_db", c.sessionDB),
		zap.Strings("resources", c.table.Keys()),
	)
	return nil
}

// run wraps a command body so the session store is closed even when the
// body fails and PersistentPostRun is skipped.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if c.store != nil {
				_ = c.store.Close()
				c.store = nil
			}
		}()
		return fn(cmd, args)
	}
}

// requireLogin guards every view behind an active session.
func (c *cli) requireLogin() error {
	if !c.session.State().LoggedIn() {
		return fmt.Errorf("%w: run 'admin login' first", session.ErrNotLoggedIn)
	}
	return nil
}

func (c *cli) lookup(key string) (resource.Config, error) {
	rc, ok := c.table.Lookup(key)
	if !ok {
		return resource.Config{}, fmt.Errorf("unknown resource %q (known: %v)", key, c.table.Keys())
	}
	return rc, nil
}
