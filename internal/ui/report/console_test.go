package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nekoscript/internal/data/store"
	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/verify"
)

func TestEventsPlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Events([]interpret.OutputEvent{
		{Kind: interpret.EventStandard, Text: "Bonjour"},
		{Kind: interpret.EventInfo, Text: "Image affichée:", Image: "https://x/chat.png"},
		{Kind: interpret.EventError, Text: "Commande non reconnue: ???"},
	})
	assert.Equal(t, "Bonjour\nImage affichée: https://x/chat.png\nCommande non reconnue: ???\n", buf.String())
}

func TestSyntaxOnlyReportsInvalid(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Syntax("a.neko", &verify.Report{Language: verify.JavaScript, Valid: true})
	c.Syntax("a.neko", nil)
	assert.Empty(t, buf.String())

	c.Syntax("a.neko", &verify.Report{Language: verify.JavaScript, Errors: []verify.SyntaxError{{Line: 3, Column: 1, Message: "missing }"}}})
	out := buf.String()
	assert.Contains(t, out, "a.neko")
	assert.Contains(t, out, "3:1: missing }")
}

func TestRenderRunsTSV(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := string(RenderRunsTSV([]store.RunRecord{
		{ID: "r1", Mode: "interpret", SourceName: "main.neko", LineCount: 4, EventCount: 3, ErrorCount: 1, DurationMS: 1.5, StartedAt: started},
	}))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "r1\t2026-03-01T10:00:00Z\tinterpret\tmain.neko\t4\t3\t1\t1.500", lines[1])
}

func TestRunsTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Runs(nil)
	assert.Contains(t, buf.String(), "Aucune exécution")

	buf.Reset()
	c.Runs([]store.RunRecord{{ID: "r1", Mode: "transpile", SourceName: "x.neko", StartedAt: time.Now()}})
	assert.Contains(t, buf.String(), "transpile")
	assert.Contains(t, buf.String(), "x.neko")
}
