package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/completion"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newSymbolsCmd() *cobra.Command {
	var asJSON bool
	var withKeywords bool
	cmd := &cobra.Command{
		Use:   "symbols <file>",
		Short: "Extract symbols, members and positions from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			doc, err := openFile(engine, args[0])
			if err != nil {
				return err
			}
			defer doc.Close()
			snap := doc.Extractor().Snapshot()
			if asJSON {
				return writeIndentedJSON(cmd.OutOrStdout(), snap)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(snap.Records, withKeywords))
			if len(snap.ClassMembers) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderMembers(snap))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full snapshot as JSON")
	cmd.Flags().BoolVar(&withKeywords, "keywords", false, "Include keyword occurrences")
	return cmd
}

func renderRecords(records []ast.SymbolRecord, withKeywords bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "KIND", "LINE", "COL", "SCOPE", "PARAMETERS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, rec := range records {
		if rec.Kind == ast.SymbolKindKeyword && !withKeywords {
			continue
		}
		t.Row(rec.Name, rec.Kind.String(), strconv.Itoa(rec.Line), strconv.Itoa(rec.Column), rec.Scope, rec.Parameters)
	}
	return t.Render()
}

func renderMembers(snap ast.Snapshot) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("CLASS", "MEMBERS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, class := range ast.UniqueSorted(keys(snap.ClassMembers)) {
		t.Row(class, strings.Join(snap.ClassMembers[class], ", "))
	}
	return t.Render()
}

func newCompleteCmd() *cobra.Command {
	var line, column int
	var token string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "complete <file>",
		Short: "List completion candidates at a position or for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" && (line < 1 || column < 1) {
				return errors.New("either --token or --line and --column are required")
			}
			_, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			doc, err := openFile(engine, args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			var res completion.Result
			if token != "" {
				res = doc.Provider().Complete(token)
			} else {
				res = doc.CompletionAt(line, column)
			}
			if asJSON {
				return writeIndentedJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			if res.Dotted {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("members of %s matching %q", res.Object, res.Prefix)))
			}
			for _, item := range res.Items {
				kind := doc.Provider().Classify(item, res)
				fmt.Fprintf(out, "%-32s %s\n", item, dimStyle.Render(kind.String()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "1-based line of the cursor")
	cmd.Flags().IntVar(&column, "column", 0, "1-based column of the cursor")
	cmd.Flags().StringVar(&token, "token", "", "Complete this token instead of reading it from the file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newDefinitionCmd() *cobra.Command {
	var line, column int
	var name string
	cmd := &cobra.Command{
		Use:   "definition <file>",
		Short: "Find where a name is declared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" && (line < 1 || column < 1) {
				return errors.New("either --name or --line and --column are required")
			}
			_, logger, engine, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			doc, err := openFile(engine, args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			var rec ast.SymbolRecord
			var ok bool
			if name != "" {
				rec, ok = doc.Locator().Definition(name)
			} else {
				text, _ := doc.Content()
				rec, ok = doc.Locator().DefinitionAt(text, line, column)
			}
			if !ok {
				return fmt.Errorf("no definition found")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d %s %s\n", args[0], rec.Line, rec.Column, rec.Kind, rec.QualifiedName())
			return nil
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "1-based line of the identifier")
	cmd.Flags().IntVar(&column, "column", 0, "1-based column of the identifier")
	cmd.Flags().StringVar(&name, "name", "", "Name to look up")
	return cmd
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
