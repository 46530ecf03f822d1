// # internal/engine/lang/statement.go
package lang

// Kind tags the closed set of statement shapes the classifier recognizes.
type Kind int

const (
	KindBlank Kind = iota
	KindComment
	KindPrint
	KindImage
	KindArithmetic
	KindFunctionStart
	KindFunctionEnd
	KindReturn
	KindCondition
	KindElse
	KindLoop
	KindImport
	KindExportBlockStart
	KindMemberCall
	KindCall
	KindUnrecognized
)

var kindNames = map[Kind]string{
	KindBlank:            "blank",
	KindComment:          "comment",
	KindPrint:            "print",
	KindImage:            "image",
	KindArithmetic:       "arithmetic",
	KindFunctionStart:    "function_start",
	KindFunctionEnd:      "function_end",
	KindReturn:           "return",
	KindCondition:        "condition",
	KindElse:             "else",
	KindLoop:             "loop",
	KindImport:           "import",
	KindExportBlockStart: "export_block_start",
	KindMemberCall:       "member_call",
	KindCall:             "call",
	KindUnrecognized:     "unrecognized",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Statement is implemented only by the types in this file.
type Statement interface {
	Kind() Kind
	statement()
}

type Blank struct{}

type Comment struct {
	Text string
}

// Print is `neko = ( expr );`. Expr is the verbatim interior.
type Print struct {
	Expr string
}

// Image is `nekimg = ( "url" );`.
type Image struct {
	Expr string
	URL  string
}

// Arithmetic is `compteneko = left op right;` where Op is the raw keyword.
type Arithmetic struct {
	Left  string
	Op    string
	Right string
}

type FunctionStart struct {
	Name   string
	Params []string
}

// FunctionEnd is synthesized when the brace depth of a function body returns
// to zero. Raw is the text of the line that closed the body.
type FunctionEnd struct {
	Name string
	Raw  string
	// Inline is the statement written before the closing brace on the same
	// line, as in `nekRetour(a); }`. Nil for a bare brace.
	Inline Statement
}

type Return struct {
	Expr string
}

type Condition struct {
	Expr string
}

// Else is `sinon {`; ClosesBlock is set for the `} sinon {` form.
type Else struct {
	ClosesBlock bool
}

type Loop struct {
	Var   string
	Start string
	End   string
}

type Import struct {
	Library string
}

type ExportBlockStart struct{}

// MemberCall is a qualified call into a library, e.g. `Discord.nekStatus("x");`.
type MemberCall struct {
	Library string
	Name    string
	Args    []string
}

type Call struct {
	Name string
	Args []string
}

type Unrecognized struct {
	Text string
}

func (Blank) Kind() Kind            { return KindBlank }
func (Comment) Kind() Kind          { return KindComment }
func (Print) Kind() Kind            { return KindPrint }
func (Image) Kind() Kind            { return KindImage }
func (Arithmetic) Kind() Kind       { return KindArithmetic }
func (FunctionStart) Kind() Kind    { return KindFunctionStart }
func (FunctionEnd) Kind() Kind      { return KindFunctionEnd }
func (Return) Kind() Kind           { return KindReturn }
func (Condition) Kind() Kind        { return KindCondition }
func (Else) Kind() Kind             { return KindElse }
func (Loop) Kind() Kind             { return KindLoop }
func (Import) Kind() Kind           { return KindImport }
func (ExportBlockStart) Kind() Kind { return KindExportBlockStart }
func (MemberCall) Kind() Kind       { return KindMemberCall }
func (Call) Kind() Kind             { return KindCall }
func (Unrecognized) Kind() Kind     { return KindUnrecognized }

func (Blank) statement()            {}
func (Comment) statement()          {}
func (Print) statement()            {}
func (Image) statement()            {}
func (Arithmetic) statement()       {}
func (FunctionStart) statement()    {}
func (FunctionEnd) statement()      {}
func (Return) statement()           {}
func (Condition) statement()        {}
func (Else) statement()             {}
func (Loop) statement()             {}
func (Import) statement()           {}
func (ExportBlockStart) statement() {}
func (MemberCall) statement()       {}
func (Call) statement()             {}
func (Unrecognized) statement()     {}

// Classified pairs a source line with the statement assigned to it.
type Classified struct {
	Line      SourceLine
	Statement Statement
	// InBody marks statements read while a function body was open.
	InBody   bool
	Function string
}

func (c Classified) Kind() Kind {
	if c.Statement == nil {
		return KindUnrecognized
	}
	return c.Statement.Kind()
}
