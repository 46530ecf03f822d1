// # internal/engine/transpile/transpile_test.go
package transpile

import (
	"strings"
	"testing"

	"nekoscript/internal/engine/lang"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(t *testing.T, src string) []string {
	t.Helper()
	code := New().Source(src)
	require.True(t, strings.HasSuffix(code, "\n"))
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), len(Preamble))
	assert.Equal(t, Preamble, lines[:len(Preamble)])
	return lines[len(Preamble):]
}

func TestOperatorSymbols(t *testing.T) {
	for kw, sym := range map[string]string{"plus": "+", "moins": "-", "multiplier": "*", "diviser": "/"} {
		got := body(t, "compteneko = 6 "+kw+" 3;")
		require.Len(t, got, 1)
		assert.Equal(t, `neko("compteneko: " + (6 `+sym+` 3));`, got[0])
	}
}

func TestLineStructurePreserved(t *testing.T) {
	src := `// Bonjour
nekimporter Web.neko;

fonction saluer(nom, titre) {
  si (nom est égal à "Zoé") {
    neko = ("Salut " plus nom);
  } sinon {
    neko = ("Bonjour");
  }
  nekRetour(nom);
}
saluer("Zoé", "Dr");
pour (i de 1 à 3) {
  Discord.nekStatus("en ligne");
}
nekoExport = {
  saluer
};
???`
	got := body(t, src)
	want := []string{
		"// Bonjour",
		"const Web = require('./Web');",
		"",
		"function saluer(nom, titre) {",
		`  if (nom === "Zoé") {`,
		`    neko("Salut " + nom);`,
		"  } else {",
		`    neko("Bonjour");`,
		"  }",
		"  return nom;",
		"}",
		`saluer("Zoé", "Dr");`,
		"for (let i = 1; i <= 3; i++) {",
		`  Discord.nekStatus("en ligne");`,
		"}",
		"module.exports = {",
		"  saluer",
		"};",
		"???",
	}
	assert.Equal(t, want, got)
}

func TestFunctionEndEmittedOnce(t *testing.T) {
	got := body(t, "fonction f(a) {\n}")
	assert.Equal(t, []string{"function f(a) {", "}"}, got)
}

func TestReturnConcatenationTranslated(t *testing.T) {
	got := body(t, "fonction saluer(nom) {\n  nekRetour(\"Bonjour \" plus nom);\n}")
	assert.Equal(t, []string{
		"function saluer(nom) {",
		`  return "Bonjour " + nom;`,
		"}",
	}, got)
}

func TestStatementBeforeClosingBraceTranslated(t *testing.T) {
	got := body(t, "fonction f(a) {\n  nekRetour(a plus \"!\"); }\nf(1);")
	assert.Equal(t, []string{
		"function f(a) {",
		`  return a + "!"; }`,
		"f(1);",
	}, got)
}

func TestUnicodeLiteralsPreserved(t *testing.T) {
	got := body(t, `neko = ("« l’été » " plus "🐱");`)
	assert.Equal(t, []string{`neko("« l’été » " + "🐱");`}, got)
}

func TestConditionLiteralUntouched(t *testing.T) {
	got := body(t, `si (x n'est pas égal à "est égal à") {`)
	assert.Equal(t, []string{`if (x !== "est égal à") {`}, got)
}

func TestDeterministic(t *testing.T) {
	src := "neko = (\"a\");\ncompteneko = 1 plus 2;\n"
	assert.Equal(t, New().Source(src), New().Source(src))
}

func TestLineCountMatchesInput(t *testing.T) {
	src := "a\nb\nc\n"
	prog := lang.NewClassifier().Run(src)
	code := New().Transpile(prog)
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	assert.Len(t, lines, len(Preamble)+len(prog.Statements))
}

func TestImageAndModuleName(t *testing.T) {
	assert.Equal(t, []string{`nekimg("https://x/chat.png");`}, body(t, `nekimg = ("https://x/chat.png");`))
	assert.Equal(t, "Discord", ModuleName("Discord.neko"))
	assert.Equal(t, "Maths", ModuleName("Maths"))
}
