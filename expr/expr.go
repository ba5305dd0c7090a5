// Package expr builds filter expressions for by_exp row addressing and
// compiles them into the server's linear expression grammar.
//
// The grammar has no precedence and no grouping: terms are evaluated
// strictly left to right, so Where(a).And(b).Or(c) means ((a and b) or c).
package expr

import (
	"strings"

	"github.com/dan-strohschein/cdbms-driver/mapper"
	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/schema"
)

// Operator is a comparison token understood by the server.
type Operator string

const (
	Equals       Operator = "="
	NotEquals    Operator = "!="
	StrEquals    Operator = "eq"
	StrNotEquals Operator = "neq"
	MoreThan     Operator = ">"
	LessThan     Operator = "<"
)

// Valid reports whether o is one of the server's comparison tokens.
func (o Operator) Valid() bool {
	switch o {
	case Equals, NotEquals, StrEquals, StrNotEquals, MoreThan, LessThan:
		return true
	}
	return false
}

// Logic joins two statements.
type Logic string

const (
	And Logic = "and"
	Or  Logic = "or"
)

// Valid reports whether l is a known connector.
func (l Logic) Valid() bool { return l == And || l == Or }

// Statement compares one column against a literal.
type Statement struct {
	Column string
	Op     Operator
	Value  interface{}
}

// S is shorthand for building a Statement.
func S(column string, op Operator, value interface{}) Statement {
	return Statement{Column: column, Op: op, Value: value}
}

// Term is one element of an expression: either a Statement or a Logic.
type Term struct {
	stmt  *Statement
	logic Logic
}

// StatementTerm wraps a statement.
func StatementTerm(s Statement) Term { return Term{stmt: &s} }

// LogicTerm wraps a connector.
func LogicTerm(l Logic) Term { return Term{logic: l} }

// Statement returns the wrapped statement, if any.
func (t Term) Statement() (Statement, bool) {
	if t.stmt == nil {
		return Statement{}, false
	}
	return *t.stmt, true
}

// Logic returns the wrapped connector, if any.
func (t Term) Logic() (Logic, bool) {
	if t.stmt != nil {
		return "", false
	}
	return t.logic, true
}

// Expression is an ordered sequence of terms alternating Statement and
// Logic, starting and ending with a Statement.
type Expression struct {
	terms []Term
}

// Where starts an expression with its first statement.
func Where(s Statement) *Expression {
	return &Expression{terms: []Term{StatementTerm(s)}}
}

// And returns a new expression extending e with "and s". e is left unchanged,
// so a common prefix can be branched.
func (e *Expression) And(s Statement) *Expression {
	return e.join(And, s)
}

// Or returns a new expression extending e with "or s".
func (e *Expression) Or(s Statement) *Expression {
	return e.join(Or, s)
}

func (e *Expression) join(l Logic, s Statement) *Expression {
	terms := make([]Term, len(e.terms), len(e.terms)+2)
	copy(terms, e.terms)
	return &Expression{terms: append(terms, LogicTerm(l), StatementTerm(s))}
}

// FromTerms builds an expression from a raw term sequence, rejecting
// sequences that do not alternate Statement and Logic.
func FromTerms(terms []Term) (*Expression, error) {
	if len(terms) == 0 {
		return nil, invalid("expression is empty", nil)
	}
	for i, t := range terms {
		_, isStmt := t.Statement()
		wantStmt := i%2 == 0
		if isStmt != wantStmt {
			return nil, invalid("expression terms must alternate statement and connector",
				map[string]interface{}{"position": i})
		}
		if l, ok := t.Logic(); ok && !l.Valid() {
			return nil, invalid("unknown connector", map[string]interface{}{"position": i, "logic": string(l)})
		}
	}
	if len(terms)%2 == 0 {
		return nil, invalid("expression cannot end with a connector", nil)
	}

	out := make([]Term, len(terms))
	copy(out, terms)
	return &Expression{terms: out}, nil
}

// Terms returns a copy of the term sequence.
func (e *Expression) Terms() []Term {
	out := make([]Term, len(e.terms))
	copy(out, e.terms)
	return out
}

// Statements returns the statements in sequence order.
func (e *Expression) Statements() []Statement {
	var out []Statement
	for _, t := range e.terms {
		if s, ok := t.Statement(); ok {
			out = append(out, s)
		}
	}
	return out
}

var literals = mapper.NewResponseMapper()

// Check validates the expression against a table layout. Every statement
// must name a declared column, use a known operator and carry a literal the
// grammar can carry: a single token without quotes or NUL bytes.
func (e *Expression) Check(l *schema.Layout) error {
	if e == nil || len(e.terms) == 0 {
		return invalid("expression is empty", nil)
	}
	for _, s := range e.Statements() {
		if _, ok := l.Lookup(s.Column); !ok {
			return protocol.NewError(protocol.ErrorCodeUnknownColumn,
				"expression references a column the table does not declare",
				map[string]interface{}{"column": s.Column})
		}
		if !s.Op.Valid() {
			return invalid("unknown comparison operator",
				map[string]interface{}{"column": s.Column, "operator": string(s.Op)})
		}
		if _, err := s.Literal(); err != nil {
			return err
		}
	}
	return nil
}

// Literal returns the wire form of s.Value. The value must render as a
// single token without whitespace, quotes or NUL bytes.
func (s Statement) Literal() (string, error) {
	if s.Value == nil {
		return "", invalid("statement has no value", map[string]interface{}{"column": s.Column})
	}
	lit, _, err := literals.FormatLiteral(s.Value)
	if err != nil {
		return "", protocol.Wrap(protocol.ErrorCodeUnsupportedValue, err,
			"statement value cannot be written as a literal",
			map[string]interface{}{"column": s.Column})
	}
	if lit == "" || strings.ContainsAny(lit, " \t\r\n\"\x00") {
		return "", protocol.NewError(protocol.ErrorCodeInvalidLiteral,
			"expression literals must be a single token without quotes or NUL",
			map[string]interface{}{"column": s.Column, "value": lit})
	}
	return lit, nil
}

// String returns the compiled form.
func (e *Expression) String() string { return Compile(e) }

func invalid(msg string, details map[string]interface{}) error {
	return protocol.NewError(protocol.ErrorCodeInvalidExpr, msg, details)
}
