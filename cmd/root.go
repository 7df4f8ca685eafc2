package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/config"
	"github.com/abhisek/rehearse/internal/logging"
	"github.com/abhisek/rehearse/internal/scope"
	"github.com/abhisek/rehearse/internal/session"
	"github.com/abhisek/rehearse/internal/spacedrep"
	"github.com/abhisek/rehearse/internal/store"
)

// nowFunc is the clock used by commands.
var nowFunc = time.Now

var rootCmd = &cobra.Command{
	Use:          "rehearse",
	Short:        "Spaced-repetition interview rehearsal",
	Long:         "Rehearse keeps interview answers, stories and flashcards on a spaced-repetition schedule and scores how ready you are.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env in the working directory seeds REHEARSE_* variables.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file or DSN (overrides REHEARSE_DB_DSN)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/rehearse/config.toml)")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(readinessCmd)
	rootCmd.AddCommand(prepCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(versionCmd)
}

// deps are the collaborators shared by commands that touch the database.
type deps struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *store.Store
	svc   *session.Service
}

// openDeps loads configuration, opens the store and builds the session
// service. Callers must Close the result.
func openDeps(cmd *cobra.Command) (*deps, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	dsn, err := resolveDSN(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	svc := session.NewService(st.Cards(), st.Sessions(), st.Progress(),
		session.WithLimits(cfg.Limits()),
		session.WithPolicy(cfg.Mastery),
		session.WithLogger(log),
		session.WithClock(nowFunc),
	)
	return &deps{cfg: cfg, log: log, store: st, svc: svc}, nil
}

func (d *deps) Close() error {
	return d.store.Close()
}

// resolveDSN returns the connection string using --db (highest priority),
// then db.dsn from config or REHEARSE_DB_DSN, then the default XDG path.
func resolveDSN(cmd *cobra.Command, cfg *config.Config) (string, error) {
	sqlite := cfg.DB.Driver == "" || cfg.DB.Driver == store.DriverSQLite
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if sqlite {
			return p, store.EnsureDir(p)
		}
		return p, nil
	}
	if cfg.DB.DSN != "" {
		return cfg.DB.DSN, nil
	}
	if !sqlite {
		return "", fmt.Errorf("driver %q needs db.dsn", cfg.DB.Driver)
	}
	return store.DefaultDBPath()
}

// queueOptions compiles the --filter expression, if any, into a start option.
func queueOptions(cmd *cobra.Command, d *deps) ([]session.StartOption, error) {
	expr, _ := cmd.Flags().GetString("filter")
	if expr == "" {
		return nil, nil
	}
	f, err := scope.Compile(expr, d.cfg.Mastery, nowFunc())
	if err != nil {
		return nil, err
	}
	return []session.StartOption{session.WithFilter(f)}, nil
}

// queueMode reads --mode and --app. Passing --app alone selects the
// application mode.
func queueMode(cmd *cobra.Command) (spacedrep.Mode, string) {
	mode, _ := cmd.Flags().GetString("mode")
	app, _ := cmd.Flags().GetString("app")
	if app != "" && !cmd.Flags().Changed("mode") {
		return spacedrep.ModeApplication, app
	}
	return spacedrep.Mode(mode), app
}

// addQueueFlags registers the flags shared by review and queue.
func addQueueFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "daily", "Queue mode: daily, quick, all-due or application")
	cmd.Flags().String("app", "", "Application id (required for --mode application)")
	cmd.Flags().String("filter", "", `CEL expression narrowing the queue, e.g. kind == "story"`)
}
