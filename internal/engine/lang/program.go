// # internal/engine/lang/program.go
package lang

// FunctionDef is one top-level function definition.
type FunctionDef struct {
	Name   string
	Params []string
	Line   int
}

// FunctionTable maps function names to their definitions. A later definition
// of the same name replaces the earlier one.
type FunctionTable map[string]FunctionDef

// DefinedBefore reports whether name was defined on a line preceding line.
func (t FunctionTable) DefinedBefore(name string, line int) bool {
	def, ok := t[name]
	return ok && def.Line < line
}

// Program is the result of classifying one source text.
type Program struct {
	Statements []Classified
	Functions  FunctionTable
	// Residual is the scope state after the last line. A Residual still inside
	// a function means the body was never closed.
	Residual ScopeState
}

// Unterminated returns the name of the unclosed function, if any.
func (p Program) Unterminated() (string, bool) {
	if !p.Residual.Unterminated() {
		return "", false
	}
	return p.Residual.CurrentFunction, true
}

// Classifier folds Classify over a source text. It is stateless; each Run owns
// its own scope state.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Run classifies every line of source.
func (c *Classifier) Run(source string) Program {
	return c.RunLines(SplitLines(source))
}

// RunLines classifies pre-split lines.
func (c *Classifier) RunLines(lines []SourceLine) Program {
	prog := Program{
		Statements: make([]Classified, 0, len(lines)),
		Functions:  FunctionTable{},
	}
	state := ScopeState{}
	for _, line := range lines {
		var cl Classified
		cl, state = Classify(line, state)
		if fn, ok := cl.Statement.(FunctionStart); ok && !cl.InBody {
			prog.Functions[fn.Name] = FunctionDef{Name: fn.Name, Params: fn.Params, Line: line.Index}
		}
		prog.Statements = append(prog.Statements, cl)
	}
	prog.Residual = state
	return prog
}
