package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/scriptsense/framework/completion"
	"github.com/lexcodex/scriptsense/server"
)

const maxCandidates = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bufferStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

// shellModel is an interactive buffer: committed lines are extracted as the
// user types, and the candidate table follows the token before the cursor.
type shellModel struct {
	engine   *server.Engine
	doc      *server.Document
	path     string
	language string
	version  int32

	lines      []string
	input      textinput.Model
	bufferPort viewport.Model
	candidates table.Model
	result     completion.Result
	shown      []string
	status     string
	width      int
	height     int
}

func newShellModel(engine *server.Engine, language, path, text string) (*shellModel, error) {
	doc, err := engine.Open(path, language, 0, text)
	if err != nil {
		return nil, err
	}
	input := textinput.New()
	input.Placeholder = "type code; :help for commands"
	input.Prompt = ">>> "
	input.CharLimit = 512
	input.Focus()

	candidates := table.New(
		table.WithColumns([]table.Column{
			{Title: "Candidate", Width: 28},
			{Title: "Kind", Width: 10},
		}),
		table.WithHeight(maxCandidates),
	)

	m := &shellModel{
		engine:     engine,
		doc:        doc,
		path:       path,
		language:   language,
		input:      input,
		bufferPort: viewport.New(80, 12),
		candidates: candidates,
	}
	if text != "" {
		m.lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}
	m.refresh()
	return m, nil
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.accept()
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			m.refresh()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bufferPort.Width = max(20, msg.Width-4)
		m.bufferPort.Height = max(4, msg.Height-maxCandidates-10)
		m.input.Width = max(20, msg.Width-8)
	}
	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.input.Value() != before {
		m.refresh()
	}
	return m, tea.Batch(cmds...)
}

// text is the committed buffer plus the line being typed.
func (m *shellModel) text() string {
	all := append(append([]string(nil), m.lines...), m.input.Value())
	return strings.Join(all, "\n")
}

// refresh re-extracts the buffer and recomputes candidates for the token
// before the cursor.
func (m *shellModel) refresh() {
	m.version++
	m.doc.Update(m.version, m.text())
	token := completion.TokenBefore(m.input.Value(), m.input.Position()+1)
	m.result = m.doc.Provider().Complete(token)
	m.shown = visibleCandidates(m.result)

	rows := make([]table.Row, 0, len(m.shown))
	for _, item := range m.shown {
		rows = append(rows, table.Row{item, m.doc.Provider().Classify(item, m.result).String()})
	}
	m.candidates.SetRows(rows)
	m.bufferPort.SetContent(strings.Join(numbered(m.lines), "\n"))
	m.bufferPort.GotoBottom()
}

// visibleCandidates filters bare results by prefix the way an editor popup
// does; dotted results arrive ranked already.
func visibleCandidates(res completion.Result) []string {
	var out []string
	if res.Dotted {
		out = res.Items
	} else if res.Prefix != "" {
		prefix := strings.ToLower(res.Prefix)
		for _, item := range res.Items {
			if strings.HasPrefix(strings.ToLower(item), prefix) {
				out = append(out, item)
			}
		}
	}
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// accept replaces the in-progress prefix with the first candidate. Template
// keywords expand to their first line.
func (m *shellModel) accept() {
	if len(m.shown) == 0 {
		return
	}
	choice := m.shown[0]
	if expansion, ok := m.doc.Provider().Template(choice); ok && !m.result.Dotted {
		choice = strings.SplitN(expansion, "\n", 2)[0]
	}
	value := []rune(m.input.Value())
	pos := m.input.Position()
	start := pos - utf8.RuneCountInString(m.result.Prefix)
	if start < 0 {
		start = 0
	}
	next := string(value[:start]) + choice + string(value[pos:])
	m.input.SetValue(next)
	m.input.SetCursor(start + utf8.RuneCountInString(choice))
}

func (m *shellModel) submit() tea.Cmd {
	line := m.input.Value()
	m.input.SetValue("")
	if strings.HasPrefix(line, ":") {
		return m.command(strings.TrimSpace(line[1:]))
	}
	m.lines = append(m.lines, line)
	m.status = ""
	return nil
}

func (m *shellModel) command(line string) tea.Cmd {
	verb, rest := splitCommand(line)
	switch verb {
	case "q", "quit", "exit":
		return tea.Quit
	case "help":
		m.status = ":load <file> | :lang <id> | :clear | :symbols | :undo | :quit"
	case "clear":
		m.lines = nil
		m.status = "buffer cleared"
	case "undo":
		if len(m.lines) > 0 {
			m.lines = m.lines[:len(m.lines)-1]
		}
	case "symbols":
		m.status = strings.Join(m.doc.Extractor().Symbols(), " ")
	case "lang":
		if err := m.switchLanguage(rest); err != nil {
			m.status = err.Error()
		}
	case "load":
		data, err := os.ReadFile(rest)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		m.path = rest
		if err := m.switchLanguage(m.engine.Language("", rest)); err != nil {
			m.status = err.Error()
			return nil
		}
		m.lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		m.status = fmt.Sprintf("loaded %s (%d lines)", rest, len(m.lines))
	default:
		m.status = fmt.Sprintf("unknown command: %s", verb)
	}
	return nil
}

func (m *shellModel) switchLanguage(language string) error {
	if language == "" {
		return fmt.Errorf("usage: :lang <id>")
	}
	language = m.engine.Language(language, "")
	doc, err := m.engine.Open(m.path, language, m.version, m.text())
	if err != nil {
		return err
	}
	m.doc.Close()
	m.doc = doc
	m.language = language
	m.status = "language " + language
	return nil
}

func (m *shellModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("scriptsense shell | %s | %d lines", m.language, len(m.lines))))
	b.WriteString("\n")
	b.WriteString(bufferStyle.Render(m.bufferPort.View()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if len(m.shown) > 0 {
		b.WriteString(m.candidates.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

func (m *shellModel) close() {
	m.doc.Close()
}

func numbered(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = fmt.Sprintf("%4d  %s", i+1, line)
	}
	return out
}

func splitCommand(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", ""
	}
	idx := strings.IndexAny(trimmed, " \t")
	if idx == -1 {
		return strings.ToLower(trimmed), ""
	}
	return strings.ToLower(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:])
}
