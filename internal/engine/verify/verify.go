// # internal/engine/verify/verify.go
package verify

import (
	"fmt"
	"sort"

	"nekoscript/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

// Language identifies a grammar the verifier can parse.
type Language string

const (
	JavaScript Language = "javascript"
	HTML       Language = "html"
	CSS        Language = "css"
)

// SyntaxError is one ERROR or MISSING node found in a parse tree. Line and
// Column are 1-based.
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (e SyntaxError) String() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Report is the outcome of verifying one artifact. Syntax errors are warnings
// for the caller; they never fail a build.
type Report struct {
	Language Language      `json:"language"`
	Valid    bool          `json:"valid"`
	Errors   []SyntaxError `json:"errors,omitempty"`
}

// Verifier parses generated artifacts with tree-sitter grammars.
type Verifier struct {
	pools map[Language]*parserPool
	// maxErrors caps the errors collected per artifact.
	maxErrors int
}

func New() *Verifier {
	return &Verifier{
		pools: map[Language]*parserPool{
			JavaScript: newParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
			HTML:       newParserPool(sitter.NewLanguage(tree_sitter_html.Language())),
			CSS:        newParserPool(sitter.NewLanguage(tree_sitter_css.Language())),
		},
		maxErrors: 20,
	}
}

// Languages lists the supported grammars in sorted order.
func (v *Verifier) Languages() []Language {
	out := make([]Language, 0, len(v.pools))
	for l := range v.pools {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Verify parses content as lang.
func (v *Verifier) Verify(lang Language, content []byte) (Report, error) {
	pool, ok := v.pools[lang]
	if !ok {
		return Report{}, errors.New(errors.CodeNotSupported, fmt.Sprintf("no grammar for %s", lang))
	}
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return Report{}, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	rep := Report{Language: lang, Valid: !root.HasError()}
	if !rep.Valid {
		rep.Errors = v.collect(root, content, nil)
	}
	return rep, nil
}

// JavaScript verifies transpiled output.
func (v *Verifier) JavaScript(code string) (Report, error) {
	return v.Verify(JavaScript, []byte(code))
}

func (v *Verifier) collect(node *sitter.Node, content []byte, out []SyntaxError) []SyntaxError {
	if node == nil || len(out) >= v.maxErrors {
		return out
	}
	if node.IsError() || node.IsMissing() {
		pos := node.StartPosition()
		msg := "unexpected input"
		if node.IsMissing() {
			msg = "missing " + node.Kind()
		} else if snippet := excerpt(node, content); snippet != "" {
			msg = fmt.Sprintf("unexpected %q", snippet)
		}
		return append(out, SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Message: msg})
	}
	if !node.HasError() {
		return out
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		out = v.collect(node.Child(i), content, out)
	}
	return out
}

func excerpt(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(content)) || start >= end {
		return ""
	}
	s := string(content[start:end])
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
