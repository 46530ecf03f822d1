// # internal/engine/interpret/interpreter.go
package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"nekoscript/internal/engine/lang"
)

// Libraries resolves imported library names.
type Libraries interface {
	LookupLibrary(ctx context.Context, name string) (source string, found bool, err error)
}

// Options tune the interpreter.
type Options struct {
	// TraceBodies reports statements inside function bodies and the end of
	// each body. Off by default: bodies are only acknowledged through their
	// definition and calls.
	TraceBodies bool
}

// Interpreter maps classified statements to output events. It never executes
// function bodies with bound arguments.
type Interpreter struct {
	libs Libraries
	opts Options
}

func New(libs Libraries, opts Options) *Interpreter {
	return &Interpreter{libs: libs, opts: opts}
}

// Run classifies source and interprets it.
func (in *Interpreter) Run(ctx context.Context, source string) []OutputEvent {
	return in.Interpret(ctx, lang.NewClassifier().Run(source))
}

// Interpret walks prog in order. No statement aborts the walk.
func (in *Interpreter) Interpret(ctx context.Context, prog lang.Program) []OutputEvent {
	events := make([]OutputEvent, 0, len(prog.Statements))
	for _, cl := range prog.Statements {
		events = append(events, in.statement(ctx, prog.Functions, cl)...)
	}
	if name, open := prog.Unterminated(); open {
		events = append(events, OutputEvent{
			Kind: EventError,
			Text: fmt.Sprintf("Fonction %s non terminée: accolade fermante manquante", name),
			Line: -1,
		})
	}
	return events
}

func (in *Interpreter) statement(ctx context.Context, fns lang.FunctionTable, cl lang.Classified) []OutputEvent {
	line := cl.Line.Index
	ev := func(kind EventKind, text string) OutputEvent {
		return OutputEvent{Kind: kind, Text: text, Line: line}
	}

	if end, ok := cl.Statement.(lang.FunctionEnd); ok {
		if !in.opts.TraceBodies {
			return nil
		}
		var events []OutputEvent
		if text, ok := bodyTrace(end.Inline); ok {
			events = append(events, ev(EventInfo, text))
		}
		return append(events, ev(EventSuccess, "Fin de la fonction "+end.Name))
	}
	if cl.InBody {
		if in.opts.TraceBodies {
			if text, ok := bodyTrace(cl.Statement); ok {
				return []OutputEvent{ev(EventInfo, text)}
			}
		}
		return nil
	}

	switch st := cl.Statement.(type) {
	case lang.Blank, lang.Comment:
		return nil
	case lang.Print:
		return []OutputEvent{ev(EventStandard, lang.EvaluateText(st.Expr))}
	case lang.Image:
		out := ev(EventInfo, "Image affichée:")
		out.Image = st.URL
		return []OutputEvent{out}
	case lang.Arithmetic:
		return []OutputEvent{arithmetic(st, ev)}
	case lang.FunctionStart:
		return []OutputEvent{ev(EventInfo, fmt.Sprintf("Fonction %s définie avec %d paramètre(s)", st.Name, len(st.Params)))}
	case lang.Return:
		return []OutputEvent{ev(EventSuccess, "Retourne: "+lang.EvaluateText(st.Expr))}
	case lang.Condition:
		return []OutputEvent{ev(EventInfo, "Condition: si ("+st.Expr+")")}
	case lang.Else:
		return []OutputEvent{ev(EventInfo, "Condition: sinon")}
	case lang.Loop:
		return []OutputEvent{ev(EventInfo, fmt.Sprintf("Boucle: %s de %s à %s", st.Var, st.Start, st.End))}
	case lang.Import:
		return []OutputEvent{in.importLibrary(ctx, st.Library, ev)}
	case lang.ExportBlockStart:
		return []OutputEvent{ev(EventInfo, "Bloc d'exportation déclaré")}
	case lang.MemberCall:
		return []OutputEvent{ev(EventInfo, memberCallText(st))}
	case lang.Call:
		head := ev(EventInfo, fmt.Sprintf("Appel de la fonction %s avec %d argument(s)", st.Name, len(st.Args)))
		if fns.DefinedBefore(st.Name, line) {
			return []OutputEvent{head, ev(EventSuccess, "→ Exécution de la fonction "+st.Name)}
		}
		return []OutputEvent{head, ev(EventError, "Appel de fonction non définie: "+st.Name)}
	case lang.Unrecognized:
		return []OutputEvent{ev(EventError, "Commande non reconnue: "+st.Text)}
	default:
		return []OutputEvent{ev(EventError, "Commande non reconnue: "+cl.Line.Trimmed)}
	}
}

func arithmetic(st lang.Arithmetic, ev func(EventKind, string) OutputEvent) OutputEvent {
	op, ok := lang.LookupOperator(st.Op)
	if !ok {
		return ev(EventError, "Opération non reconnue: "+st.Op)
	}
	left, err := strconv.ParseInt(st.Left, 10, 64)
	if err != nil {
		return ev(EventError, fmt.Sprintf("Erreur lors du calcul: %q n'est pas un nombre entier", st.Left))
	}
	right, err := strconv.ParseInt(st.Right, 10, 64)
	if err != nil {
		return ev(EventError, fmt.Sprintf("Erreur lors du calcul: %q n'est pas un nombre entier", st.Right))
	}
	return ev(EventSuccess, "compteneko: "+op.Apply(left, right).String())
}

func (in *Interpreter) importLibrary(ctx context.Context, name string, ev func(EventKind, string) OutputEvent) OutputEvent {
	found := false
	if in.libs != nil {
		var err error
		_, found, err = in.libs.LookupLibrary(ctx, name)
		if err != nil {
			slog.Warn("library lookup failed", "library", name, "error", err)
			found = false
		}
	}
	if found {
		return ev(EventInfo, fmt.Sprintf("Bibliothèque %s importée", name))
	}
	return ev(EventInfo, fmt.Sprintf("Bibliothèque %s introuvable, importation simulée", name))
}

func memberCallText(st lang.MemberCall) string {
	first := ""
	if len(st.Args) > 0 {
		first = lang.Unquote(st.Args[0])
	}
	prefix := st.Library + ".neko: "
	if st.Library == "Discord" {
		switch st.Name {
		case "nekConnection":
			return prefix + "Connexion établie au bot"
		case "nekStatus":
			return prefix + `Status mis à jour: "` + first + `"`
		case "nekCommande":
			return prefix + `Commande "` + first + `" enregistrée`
		}
	}
	return prefix + fmt.Sprintf("%s appelée avec %d argument(s)", st.Name, len(st.Args))
}

func bodyTrace(st lang.Statement) (string, bool) {
	switch st.(type) {
	case nil, lang.Blank, lang.Comment:
		return "", false
	case lang.Print:
		return "→ Instruction d'affichage dans la fonction", true
	case lang.Return:
		return "→ Valeur retournée par la fonction", true
	case lang.Arithmetic:
		return "→ Opération mathématique dans la fonction", true
	default:
		return "→ Instruction dans la fonction", true
	}
}

// Render formats events as plain console lines.
func Render(events []OutputEvent) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(e.Text)
		if e.Image != "" {
			b.WriteString(" ")
			b.WriteString(e.Image)
		}
		b.WriteString("\n")
	}
	return b.String()
}
