// # internal/engine/lang/classifier.go
package lang

import (
	"regexp"
	"strings"
)

const (
	commentPrefix = "//"

	printPrefix  = "neko = ("
	imagePrefix  = "nekimg = ("
	callSuffix   = ");"
	mathPrefix   = "compteneko = "
	stmtSuffix   = ";"
	funcKeyword  = "fonction"
	returnPrefix = "nekRetour("
	condKeyword  = "si"
	importPrefix = "nekimporter "
)

const ident = `[\p{L}_][\p{L}\p{N}_]*`

var (
	functionRe   = regexp.MustCompile(`^` + funcKeyword + `\s+(` + ident + `)\s*\(([^()]*)\)\s*\{$`)
	operatorRe   = regexp.MustCompile(`\s+(plus|moins|multiplier|diviser)\s+`)
	elseRe       = regexp.MustCompile(`^(\}\s*)?sinon\s*\{$`)
	loopRe       = regexp.MustCompile(`^pour\s*\(\s*(` + ident + `)\s+de\s+(\S+)\s+à\s+(\S+)\s*\)\s*\{$`)
	exportRe     = regexp.MustCompile(`^nekoExport\s*=\s*\{$`)
	memberCallRe = regexp.MustCompile(`^(` + ident + `)\.(` + ident + `)\s*\((.*)\);$`)
	callRe       = regexp.MustCompile(`^(` + ident + `)\s*\((.*)\);$`)
)

// Classify assigns exactly one statement to line given the scope state before
// it, and returns the scope state after it. It has no side effects.
func Classify(line SourceLine, state ScopeState) (Classified, ScopeState) {
	text := line.Trimmed
	if text == "" {
		return Classified{Line: line, Statement: Blank{}}, state
	}
	if strings.HasPrefix(text, commentPrefix) {
		return Classified{Line: line, Statement: Comment{Text: text}}, state
	}

	if state.InsideFunction {
		name := state.CurrentFunction
		next, closed := state.Advance(text)
		if closed {
			return Classified{Line: line, Statement: FunctionEnd{Name: name, Raw: line.Raw, Inline: inlineBeforeBrace(text)}}, next
		}
		stmt := classifyShape(text)
		return Classified{Line: line, Statement: stmt, InBody: true, Function: name}, next
	}

	stmt := classifyShape(text)
	if fn, ok := stmt.(FunctionStart); ok {
		state = state.Enter(fn.Name)
	}
	return Classified{Line: line, Statement: stmt}, state
}

// inlineBeforeBrace classifies the text preceding a final closing brace. Lines
// holding more than one brace are left to the raw text.
func inlineBeforeBrace(text string) Statement {
	head, ok := strings.CutSuffix(text, "}")
	if !ok {
		return nil
	}
	head = strings.TrimSpace(head)
	if head == "" || strings.ContainsAny(head, "{}") {
		return nil
	}
	return classifyShape(head)
}

// classifyShape applies the statement patterns in priority order.
func classifyShape(text string) Statement {
	if inner, ok := between(text, printPrefix, callSuffix); ok {
		return Print{Expr: inner}
	}
	if inner, ok := between(text, imagePrefix, callSuffix); ok {
		return Image{Expr: inner, URL: Unquote(inner)}
	}
	if inner, ok := between(text, mathPrefix, stmtSuffix); ok {
		return classifyArithmetic(text, inner)
	}
	if strings.HasPrefix(text, funcKeyword+" ") {
		return classifyFunction(text)
	}
	if inner, ok := between(text, returnPrefix, callSuffix); ok {
		return Return{Expr: strings.TrimSpace(inner)}
	}
	if cond, ok := conditionOf(text); ok {
		return Condition{Expr: cond}
	}
	if m := elseRe.FindStringSubmatch(text); m != nil {
		return Else{ClosesBlock: m[1] != ""}
	}
	if m := loopRe.FindStringSubmatch(text); m != nil {
		return Loop{Var: m[1], Start: m[2], End: m[3]}
	}
	if inner, ok := between(text, importPrefix, stmtSuffix); ok {
		if lib := strings.TrimSpace(inner); lib != "" {
			return Import{Library: lib}
		}
		return Unrecognized{Text: text}
	}
	if exportRe.MatchString(text) {
		return ExportBlockStart{}
	}
	if m := memberCallRe.FindStringSubmatch(text); m != nil {
		return MemberCall{Library: m[1], Name: m[2], Args: SplitArgs(m[3])}
	}
	if m := callRe.FindStringSubmatch(text); m != nil {
		return Call{Name: m[1], Args: SplitArgs(m[2])}
	}
	return Unrecognized{Text: text}
}

func classifyArithmetic(text, expr string) Statement {
	matches := operatorRe.FindAllStringSubmatchIndex(expr, -1)
	if len(matches) != 1 {
		return Unrecognized{Text: text}
	}
	m := matches[0]
	left := strings.TrimSpace(expr[:m[0]])
	right := strings.TrimSpace(expr[m[1]:])
	if left == "" || right == "" {
		return Unrecognized{Text: text}
	}
	return Arithmetic{Left: left, Op: expr[m[2]:m[3]], Right: right}
}

func classifyFunction(text string) Statement {
	m := functionRe.FindStringSubmatch(text)
	if m == nil {
		return Unrecognized{Text: text}
	}
	params := []string{}
	for _, p := range strings.Split(m[2], ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return FunctionStart{Name: m[1], Params: params}
}

// conditionOf matches `si ( COND ) {`.
func conditionOf(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, condKeyword)
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, "{")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasSuffix(rest, ")") {
		return "", false
	}
	cond := strings.TrimSpace(rest[1 : len(rest)-1])
	if cond == "" {
		return "", false
	}
	return cond, true
}

// between returns the text enclosed by prefix and suffix markers.
func between(text, prefix, suffix string) (string, bool) {
	rest, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return "", false
	}
	inner, ok := strings.CutSuffix(rest, suffix)
	if !ok {
		return "", false
	}
	return inner, true
}
