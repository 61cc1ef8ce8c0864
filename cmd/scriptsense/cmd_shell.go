package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell [file]",
		Short: "Interactive buffer with live completion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var path, text string
			language := flagLang
			if len(args) == 1 {
				path = args[0]
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				text = string(data)
			}
			language = engine.Language(language, path)
			if language == "unknown" {
				language = "python"
			}
			model, err := newShellModel(engine, language, path, text)
			if err != nil {
				return err
			}
			defer model.close()
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
	return cmd
}
