// # internal/ui/cli/repl.go
package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	coreapp "nekoscript/internal/core/app"
	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/lang"
	"nekoscript/internal/shared/version"
	"nekoscript/internal/ui/report"
)

const (
	promptMain         = "neko> "
	promptContinuation = "...> "
	transcriptLimit    = 500
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true)
	byeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

// runner executes one complete snippet.
type runner func(ctx context.Context, source string) ([]interpret.OutputEvent, error)

type replModel struct {
	ctx        context.Context
	input      textinput.Model
	run        runner
	console    *report.Console
	classifier *lang.Classifier

	// pending holds the lines of a function whose body is still open.
	pending    []string
	transcript []string
	quitting   bool
}

func newREPLModel(ctx context.Context, run runner, console *report.Console) replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(promptMain)
	ti.Placeholder = `neko = ("Bonjour!");`
	ti.Focus()
	return replModel{
		ctx:        ctx,
		input:      ti,
		run:        run,
		console:    console,
		classifier: lang.NewClassifier(),
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m replModel) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()

	if len(m.pending) == 0 && strings.EqualFold(strings.TrimSpace(line), "exit") {
		m.quitting = true
		return m, tea.Quit
	}

	prompt := promptMain
	if len(m.pending) > 0 {
		prompt = promptContinuation
	}
	m.appendTranscript(promptStyle.Render(prompt) + line)

	m.pending = append(m.pending, line)
	src := strings.Join(m.pending, "\n")
	if _, open := m.classifier.Run(src).Unterminated(); open {
		m.input.Prompt = promptStyle.Render(promptContinuation)
		return m, nil
	}
	m.pending = nil
	m.input.Prompt = promptStyle.Render(promptMain)

	events, err := m.run(m.ctx, src)
	if err != nil {
		m.appendTranscript(m.console.FormatEvent(interpret.OutputEvent{Kind: interpret.EventError, Text: "Erreur: " + describe(err)}))
		return m, nil
	}
	for _, ev := range events {
		m.appendTranscript(m.console.FormatEvent(ev))
	}
	return m, nil
}

func (m *replModel) appendTranscript(line string) {
	m.transcript = append(m.transcript, line)
	if over := len(m.transcript) - transcriptLimit; over > 0 {
		m.transcript = m.transcript[over:]
	}
}

func (m replModel) View() string {
	var b strings.Builder
	for _, line := range m.transcript {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.quitting {
		b.WriteString(byeStyle.Render("Au revoir!"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Tapez 'exit' pour quitter."))
	b.WriteString("\n")
	return b.String()
}

func cmdREPL(ctx context.Context, s *session, _ []string) error {
	return s.withService(ctx, func(svc *coreapp.Service) error {
		s.console.Logo(version.Version)
		s.console.Success("Mode interactif nekoScript. Tapez 'exit' pour quitter.")

		run := func(ctx context.Context, src string) ([]interpret.OutputEvent, error) {
			res, err := svc.Run(ctx, coreapp.RunRequest{Name: "repl", Source: src})
			return res.Events, err
		}
		m := newREPLModel(ctx, run, s.console)
		p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(s.stdin), tea.WithOutput(s.stdout))
		_, err := p.Run()
		return err
	})
}
