package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/config"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Extract every supported file in the workspace into the symbol index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			manager, closeIndex, err := openIndex(cfg, logger)
			if err != nil {
				return err
			}
			defer closeIndex()

			ctx, cancel := signalContext()
			defer cancel()
			start := time.Now()
			if err := manager.IndexWorkspace(ctx); err != nil {
				return err
			}
			stats, err := manager.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%d symbols) in %s\n", stats.TotalFiles, stats.TotalSymbols, time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
			return nil
		},
	}
	return cmd
}

func renderStats(stats *ast.IndexStats) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("GROUP", "KEY", "COUNT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, lang := range sortedKeys(stats.FilesByLanguage) {
		t.Row("files", lang, strconv.Itoa(stats.FilesByLanguage[lang]))
	}
	kinds := make([]ast.SymbolKind, 0, len(stats.SymbolsByKind))
	for kind := range stats.SymbolsByKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		t.Row("symbols", kind.String(), strconv.Itoa(stats.SymbolsByKind[kind]))
	}
	return t.Render()
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newFindCmd() *cobra.Command {
	var fuzzy bool
	var limit int
	cmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Search the symbol index (SQL LIKE pattern, or fuzzy with --fuzzy)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			manager, closeIndex, err := openIndex(cfg, logger)
			if err != nil {
				return err
			}
			defer closeIndex()

			out := cmd.OutOrStdout()
			if fuzzy {
				matches, err := manager.FuzzySearch(args[0], limit)
				if err != nil {
					return err
				}
				for _, m := range matches {
					fmt.Fprintf(out, "%-32s %.3f\n", m.Name, m.Score)
				}
				return nil
			}
			hits, err := manager.QuerySymbol(args[0])
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				return errors.New("no symbols matched")
			}
			for _, hit := range hits {
				fmt.Fprintf(out, "%s:%d:%d %s %s\n", hit.Path, hit.Line, hit.Column, hit.Kind, hit.QualifiedName())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Rank names by Jaro-Winkler similarity")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum fuzzy matches")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index the workspace and keep the index current as files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			manager, closeIndex, err := openIndex(cfg, logger)
			if err != nil {
				return err
			}
			defer closeIndex()

			ctx, cancel := signalContext()
			defer cancel()
			if err := manager.IndexWorkspace(ctx); err != nil {
				return err
			}
			watcher, err := ast.NewIndexWatcher(manager,
				ast.WithDebounce(debounce),
				ast.WithWatchLogger(logger.Named("watch")),
				ast.WithBatchHandler(func(indexed, removed []string) {
					for _, path := range indexed {
						fmt.Fprintf(cmd.OutOrStdout(), "indexed %s\n", path)
					}
					for _, path := range removed {
						fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
					}
				}))
			if err != nil {
				return err
			}
			watcher.Start(ctx)
			defer watcher.Stop()
			logger.Info("watching workspace", zap.String("root", cfg.Workspace))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before changes are applied")
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file for the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := flagConfig
			if path == "" {
				path = config.DefaultPath(cfg.Workspace)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
