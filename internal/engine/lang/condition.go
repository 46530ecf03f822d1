// # internal/engine/lang/condition.go
package lang

import "strings"

// Comparison keywords, longest phrases first so that overlapping prefixes
// resolve to the most specific operator.
var comparisons = []struct {
	phrase string
	symbol string
}{
	{"est plus grand ou égal à", ">="},
	{"est plus petit ou égal à", "<="},
	{"est plus grand que", ">"},
	{"est plus petit que", "<"},
	{"n'est pas égal à", "!=="},
	{"est égal à", "==="},
}

var conditionReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(comparisons)*2)
	for _, c := range comparisons {
		pairs = append(pairs, c.phrase, c.symbol)
	}
	return strings.NewReplacer(pairs...)
}()

// TranslateCondition rewrites comparison phrases into host symbols. Text inside
// double-quoted literals is left alone.
func TranslateCondition(cond string) string {
	var b strings.Builder
	for _, seg := range segmentLiterals(cond) {
		if seg.literal {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(conditionReplacer.Replace(seg.text))
	}
	return b.String()
}

// ComparisonSymbols returns the phrase → symbol table.
func ComparisonSymbols() map[string]string {
	out := make(map[string]string, len(comparisons))
	for _, c := range comparisons {
		out[c.phrase] = c.symbol
	}
	return out
}
