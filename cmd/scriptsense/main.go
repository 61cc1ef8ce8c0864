package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/config"
	"github.com/lexcodex/scriptsense/server"
)

var (
	flagConfig    string
	flagWorkspace string
	flagLogLevel  string
	flagLang      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptsense",
		Short:         "Symbol extraction, completion and navigation for Python and Go sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <workspace>/.scriptsense/config.yaml)")
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", envOrDefault("SCRIPTSENSE_WORKSPACE", ""), "Workspace root (default current directory)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	root.PersistentFlags().StringVar(&flagLang, "lang", "", "Force a language instead of detecting it from the file name")

	root.AddCommand(
		newSymbolsCmd(),
		newCompleteCmd(),
		newDefinitionCmd(),
		newLSPCmd(),
		newServeCmd(),
		newIndexCmd(),
		newFindCmd(),
		newWatchCmd(),
		newInitCmd(),
		newShellCmd(),
	)
	return root
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig resolves the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" && flagWorkspace != "" {
		path = config.DefaultPath(flagWorkspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if flagWorkspace != "" {
		cfg.Workspace = flagWorkspace
		cfg.IndexPath = ""
		if err := cfg.Normalize(); err != nil {
			return config.Config{}, err
		}
	}
	if flagLogLevel != "" {
		if _, err := config.ParseLevel(flagLogLevel); err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// setup loads config and builds the logger and engine every command shares.
func setup() (config.Config, *zap.Logger, *server.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, server.NewEngine(cfg, logger), nil
}

// openIndex opens the SQLite index configured for the workspace.
func openIndex(cfg config.Config, logger *zap.Logger) (*ast.IndexManager, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return nil, nil, err
	}
	store, err := ast.NewSQLiteStore(cfg.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	manager := ast.NewIndexManager(store, ast.IndexConfig{
		WorkspacePath:   cfg.Workspace,
		ParallelWorkers: cfg.ParallelWorkers,
		IgnorePatterns:  cfg.IgnorePatterns,
	}, ast.WithIndexLogger(logger.Named("index")))
	return manager, func() { _ = store.Close() }, nil
}

// openFile reads path and builds an analysed document for it.
func openFile(engine *server.Engine, path string) (*server.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	language := engine.Language(flagLang, path)
	return engine.Open(path, language, 0, string(data))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
