// # internal/engine/lang/scope.go
package lang

import "strings"

// ScopeState tracks whether the classifier is inside a function body. Braces
// are counted by plain substring scanning, so braces inside string literals
// are counted too.
type ScopeState struct {
	InsideFunction  bool
	CurrentFunction string
	OpenBraceCount  int
}

// Enter opens a function body. The signature line supplies the first brace.
func (s ScopeState) Enter(name string) ScopeState {
	return ScopeState{InsideFunction: true, CurrentFunction: name, OpenBraceCount: 1}
}

// Advance applies the braces of one line to an open body. closed reports the
// transition back to top level, in which case the returned state is zero.
func (s ScopeState) Advance(line string) (next ScopeState, closed bool) {
	if !s.InsideFunction {
		return s, false
	}
	s.OpenBraceCount += strings.Count(line, "{") - strings.Count(line, "}")
	if s.OpenBraceCount <= 0 {
		return ScopeState{}, true
	}
	return s, false
}

// Unterminated reports a body still open at end of input.
func (s ScopeState) Unterminated() bool {
	return s.InsideFunction
}
