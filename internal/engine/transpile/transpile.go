// # internal/engine/transpile/transpile.go
package transpile

import (
	"fmt"
	"strings"

	"nekoscript/internal/engine/lang"
)

// Preamble defines the runtime helpers the emitted code relies on.
var Preamble = []string{
	"// Généré automatiquement par nekoScript",
	"// Ne pas modifier manuellement",
	"",
	"// Fonctions de base nekoScript",
	"function neko(message) { console.log(message); }",
	`function nekimg(url) { console.log("[image] " + url); }`,
	"function compteneko(a, op, b) {",
	`  if (op === "plus") return a + b;`,
	`  if (op === "moins") return a - b;`,
	`  if (op === "multiplier") return a * b;`,
	`  if (op === "diviser") return a / b;`,
	`  throw new Error("Opération non reconnue: " + op);`,
	"}",
	"",
}

// Transpiler renders classified statements as JavaScript.
type Transpiler struct{}

func New() *Transpiler {
	return &Transpiler{}
}

// Source classifies and transpiles source.
func (t *Transpiler) Source(source string) string {
	return t.Transpile(lang.NewClassifier().Run(source))
}

// Transpile emits the preamble followed by exactly one line per statement, in
// input order. Output is byte-stable for identical input.
func (t *Transpiler) Transpile(prog lang.Program) string {
	out := make([]string, 0, len(Preamble)+len(prog.Statements))
	out = append(out, Preamble...)
	for _, cl := range prog.Statements {
		out = append(out, Line(cl))
	}
	return strings.Join(out, "\n") + "\n"
}

// Line renders a single classified statement.
func Line(cl lang.Classified) string {
	indent := cl.Line.Indent()
	switch st := cl.Statement.(type) {
	case lang.Print:
		return indent + "neko(" + joinConcat(st.Expr) + ");"
	case lang.Image:
		return indent + "nekimg(" + st.Expr + ");"
	case lang.Arithmetic:
		op, ok := lang.LookupOperator(st.Op)
		if !ok {
			return cl.Line.Raw
		}
		return fmt.Sprintf(`%sneko("compteneko: " + (%s %s %s));`, indent, st.Left, op.Symbol(), st.Right)
	case lang.FunctionStart:
		return fmt.Sprintf("%sfunction %s(%s) {", indent, st.Name, strings.Join(st.Params, ", "))
	case lang.FunctionEnd:
		if st.Inline == nil {
			return st.Raw
		}
		head := strings.TrimSpace(strings.TrimSuffix(cl.Line.Trimmed, "}"))
		inner := Line(lang.Classified{Line: lang.NewSourceLine(cl.Line.Index, head), Statement: st.Inline})
		return indent + inner + " }"
	case lang.Return:
		return indent + "return " + joinConcat(st.Expr) + ";"
	case lang.Condition:
		return indent + "if (" + lang.TranslateCondition(st.Expr) + ") {"
	case lang.Else:
		if st.ClosesBlock {
			return indent + "} else {"
		}
		return indent + "else {"
	case lang.Loop:
		return fmt.Sprintf("%sfor (let %s = %s; %s <= %s; %s++) {", indent, st.Var, st.Start, st.Var, st.End, st.Var)
	case lang.Import:
		name := ModuleName(st.Library)
		return fmt.Sprintf("%sconst %s = require('./%s');", indent, name, name)
	case lang.ExportBlockStart:
		return indent + "module.exports = {"
	case lang.MemberCall, lang.Call:
		return indent + cl.Line.Trimmed
	default:
		return cl.Line.Raw
	}
}

// ModuleName strips the .neko extension from a library name.
func ModuleName(library string) string {
	return strings.TrimSuffix(library, ".neko")
}

func joinConcat(expr string) string {
	return strings.Join(lang.SplitConcat(expr), " + ")
}
