package schema

import (
	"fmt"
	"strings"

	"github.com/dan-strohschein/cdbms-driver/protocol"
)

const (
	// MaxColumnName is the longest column name the server accepts.
	MaxColumnName = 8
	// MaxColumnWidth is the widest fixed-width field the server accepts.
	MaxColumnWidth = 255
)

// DataType is the logical type tag of a column.
type DataType struct {
	tag string
}

var (
	Int   = DataType{tag: "int"}
	Str   = DataType{tag: "str"}
	Any   = DataType{tag: "any"}
	Float = DataType{tag: "dob"}
	None  = DataType{tag: ""}
)

// ModuleType returns a data type whose tag is defined by a server module.
// Values of such columns decode as text.
func ModuleType(tag string) DataType {
	return DataType{tag: tag}
}

// Tag returns the wire tag.
func (d DataType) Tag() string { return d.tag }

// IsNumeric reports whether values of this type are parsed on decode.
func (d DataType) IsNumeric() bool {
	return d == Int || d == Float
}

func (d DataType) String() string {
	if d.tag == "" {
		return "none"
	}
	return d.tag
}

// Flag is one half of a column's flag pair.
type Flag string

const (
	Primary         Flag = "p"
	NotPrimary      Flag = "np"
	AutoIncrement   Flag = "a"
	NoAutoIncrement Flag = "na"
)

func (f Flag) isKey() bool       { return f == Primary || f == NotPrimary }
func (f Flag) isIncrement() bool { return f == AutoIncrement || f == NoAutoIncrement }

// Column describes one fixed-width field. Columns are immutable.
type Column struct {
	name     string
	dataType DataType
	flags    [2]Flag
	width    int
}

// NewColumn validates and creates a column. Flags must be a key flag
// followed by an increment flag.
func NewColumn(name string, dataType DataType, flags []Flag, width int) (Column, error) {
	if name == "" || len(name) > MaxColumnName || strings.ContainsAny(name, " \t\r\n\"\x00") {
		return Column{}, protocol.NewError(protocol.ErrorCodeInvalidColumn,
			fmt.Sprintf("column name must be 1-%d characters without whitespace", MaxColumnName),
			map[string]interface{}{"column": name, "length": len(name)})
	}
	if width < 1 || width > MaxColumnWidth {
		return Column{}, protocol.NewError(protocol.ErrorCodeInvalidColumn,
			fmt.Sprintf("column width must be 1-%d", MaxColumnWidth),
			map[string]interface{}{"column": name, "width": width})
	}
	if len(flags) != 2 {
		return Column{}, protocol.NewError(protocol.ErrorCodeInvalidColumn,
			"exactly two column flags are required",
			map[string]interface{}{"column": name, "flags": len(flags)})
	}
	if !flags[0].isKey() || !flags[1].isIncrement() {
		return Column{}, protocol.NewError(protocol.ErrorCodeInvalidColumn,
			"column flags must be a key flag (p|np) followed by an increment flag (a|na)",
			map[string]interface{}{"column": name, "flags": []string{string(flags[0]), string(flags[1])}})
	}

	return Column{
		name:     name,
		dataType: dataType,
		flags:    [2]Flag{flags[0], flags[1]},
		width:    width,
	}, nil
}

// MustColumn is like NewColumn but panics on invalid input.
func MustColumn(name string, dataType DataType, flags []Flag, width int) Column {
	c, err := NewColumn(name, dataType, flags, width)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Column) Name() string { return c.name }
func (c Column) Type() DataType { return c.dataType }
func (c Column) Width() int { return c.width }
func (c Column) Flags() [2]Flag { return c.flags }
func (c Column) IsPrimary() bool { return c.flags[0] == Primary }
func (c Column) IsAutoIncrement() bool { return c.flags[1] == AutoIncrement }

// Layout is the ordered column list of a table. Order defines the wire row.
type Layout struct {
	columns []Column
	offsets []int
	index   map[string]int
	rowSize int
}

// NewLayout builds a layout, rejecting empty and duplicate column lists.
func NewLayout(columns ...Column) (*Layout, error) {
	if len(columns) == 0 {
		return nil, protocol.NewError(protocol.ErrorCodeInvalidColumn, "a table needs at least one column", nil)
	}

	l := &Layout{
		columns: make([]Column, len(columns)),
		offsets: make([]int, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(l.columns, columns)

	for i, c := range l.columns {
		if c.width == 0 {
			return nil, protocol.NewError(protocol.ErrorCodeInvalidColumn,
				"column was not created with NewColumn",
				map[string]interface{}{"position": i})
		}
		if _, dup := l.index[c.name]; dup {
			return nil, protocol.NewError(protocol.ErrorCodeInvalidColumn,
				"duplicate column name",
				map[string]interface{}{"column": c.name})
		}
		l.index[c.name] = i
		l.offsets[i] = l.rowSize
		l.rowSize += c.width
	}

	return l, nil
}

// Columns returns a copy of the columns in declaration order.
func (l *Layout) Columns() []Column {
	out := make([]Column, len(l.columns))
	copy(out, l.columns)
	return out
}

// Len returns the number of columns.
func (l *Layout) Len() int { return len(l.columns) }

// Column returns the i-th column.
func (l *Layout) Column(i int) Column { return l.columns[i] }

// Offset returns the byte offset of the i-th column within a row.
func (l *Layout) Offset(i int) int { return l.offsets[i] }

// RowSize is the sum of all column widths.
func (l *Layout) RowSize() int { return l.rowSize }

// Lookup finds a column by name.
func (l *Layout) Lookup(name string) (Column, bool) {
	i, ok := l.index[name]
	if !ok {
		return Column{}, false
	}
	return l.columns[i], true
}

// ValidateName checks a database or table identifier.
func ValidateName(kind, name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n\"\x00") {
		return protocol.NewError(protocol.ErrorCodeInvalidName,
			fmt.Sprintf("%s name must be non-empty and contain no whitespace", kind),
			map[string]interface{}{kind: name})
	}
	return nil
}
