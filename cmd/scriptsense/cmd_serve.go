package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/server"
)

func newLSPCmd() *cobra.Command {
	var useIndex bool
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			var index *ast.IndexManager
			if useIndex {
				manager, closeIndex, err := openIndex(cfg, logger)
				if err != nil {
					return err
				}
				defer closeIndex()
				index = manager
			}
			ctx, cancel := signalContext()
			defer cancel()
			lsp := server.NewLSPServer(engine, index, logger.Named("lsp"))
			defer lsp.Close()
			logger.Info("language server ready", zap.String("workspace", cfg.Workspace), zap.Bool("index", useIndex))
			if err := lsp.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useIndex, "index", false, "Answer workspace/symbol from the workspace index")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	var useIndex bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if addr == "" {
				addr = cfg.ServerAddr
			}
			api := &server.APIServer{Engine: engine, Logger: logger.Named("api")}
			if useIndex {
				manager, closeIndex, err := openIndex(cfg, logger)
				if err != nil {
					return err
				}
				defer closeIndex()
				api.Index = manager
			}
			ctx, cancel := signalContext()
			defer cancel()
			fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on %s\n", addr)
			if err := api.ServeContext(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOrDefault("SCRIPTSENSE_ADDR", ""), "Address for the HTTP API (default from config)")
	cmd.Flags().BoolVar(&useIndex, "index", true, "Serve /api/search from the workspace index")
	return cmd
}
