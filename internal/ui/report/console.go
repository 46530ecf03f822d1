// # internal/ui/report/console.go
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/verify"
)

// Console writes events and reports to a terminal. Colors are dropped when
// the writer is not a TTY.
type Console struct {
	w io.Writer

	standard lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	info     lipgloss.Style
	muted    lipgloss.Style
	title    lipgloss.Style
}

func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:        w,
		standard: r.NewStyle(),
		success:  r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		failure:  r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		info:     r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
		title:    r.NewStyle().Foreground(lipgloss.Color("#A855F7")).Bold(true),
	}
}

func (c *Console) style(kind interpret.EventKind) lipgloss.Style {
	switch kind {
	case interpret.EventSuccess:
		return c.success
	case interpret.EventError:
		return c.failure
	case interpret.EventInfo:
		return c.info
	default:
		return c.standard
	}
}

// FormatEvent renders one event on a single line.
func (c *Console) FormatEvent(ev interpret.OutputEvent) string {
	text := ev.Text
	if ev.Image != "" {
		text += " " + ev.Image
	}
	return c.style(ev.Kind).Render(text)
}

func (c *Console) Events(events []interpret.OutputEvent) {
	for _, ev := range events {
		fmt.Fprintln(c.w, c.FormatEvent(ev))
	}
}

// Syntax prints verification errors. A valid report prints nothing.
func (c *Console) Syntax(source string, rep *verify.Report) {
	if rep == nil || rep.Valid {
		return
	}
	fmt.Fprintln(c.w, c.failure.Render(fmt.Sprintf("Avertissement: %s généré invalide (%s)", rep.Language, source)))
	for _, e := range rep.Errors {
		fmt.Fprintln(c.w, c.muted.Render("  "+e.String()))
	}
}

func (c *Console) Title(text string) {
	fmt.Fprintln(c.w, c.title.Render(text))
}

func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.w, c.success.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Info(format string, args ...any) {
	fmt.Fprintln(c.w, c.info.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.w, c.failure.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Muted(format string, args ...any) {
	fmt.Fprintln(c.w, c.muted.Render(fmt.Sprintf(format, args...)))
}

// Logo is the banner printed before interactive sessions.
func (c *Console) Logo(version string) {
	lines := []string{
		` /\_/\  `,
		`( o.o )  nekoScript v` + version,
		` > ^ <   le langage de programmation en français`,
	}
	fmt.Fprintln(c.w, c.title.Render(strings.Join(lines, "\n")))
}
