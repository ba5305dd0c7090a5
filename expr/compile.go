package expr

import (
	"fmt"
	"strings"
)

// Compile renders the expression as the by_exp suffix:
//
//	column <name> <op> <value> [and|or column <name> <op> <value> ...]
//
// Terms are emitted in sequence order and never regrouped. Values are their
// plain literal form, not width padded.
func Compile(e *Expression) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	for i, t := range e.terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		if s, ok := t.Statement(); ok {
			b.WriteString("column ")
			b.WriteString(s.Column)
			b.WriteByte(' ')
			b.WriteString(string(s.Op))
			b.WriteByte(' ')
			b.WriteString(literal(s.Value))
			continue
		}
		b.WriteString(string(t.logic))
	}
	return b.String()
}

func literal(v interface{}) string {
	lit, _, err := literals.FormatLiteral(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return lit
}
