package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/dan-strohschein/cdbms-driver/expr"
	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/row"
	"github.com/dan-strohschein/cdbms-driver/schema"
)

// Table is a handle to one table and its column layout.
type Table struct {
	name   string
	access string
	layout *schema.Layout
	db     *Database
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Access returns the access token the table was declared with.
func (t *Table) Access() string { return t.access }

// Layout returns the column layout rows are encoded with.
func (t *Table) Layout() *schema.Layout { return t.layout }

// Database returns the owning database handle.
func (t *Table) Database() *Database { return t.db }

func (t *Table) client() *Client { return t.db.client }

// prefix renders "<db> <verb> row <table>".
func (t *Table) prefix(verb string) string {
	return t.db.name + " " + verb + " row " + t.name
}

// GetOption adjusts a by_exp get.
type GetOption func(*getOptions)

type getOptions struct {
	offset int
	limit  int
}

// WithOffset skips the first n matching rows.
func WithOffset(n int) GetOption {
	return func(o *getOptions) { o.offset = n }
}

// WithLimit caps the number of rows returned.
func WithLimit(n int) GetOption {
	return func(o *getOptions) { o.limit = n }
}

// Append adds one row.
func (t *Table) Append(ctx context.Context, values *row.Values) (Result, error) {
	block, err := row.Encode(t.layout, values)
	if err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "append", fmt.Sprintf(`%s values "%s"`, t.prefix("append"), block))
}

// GetByIndex fetches the row at ordinal i. An empty response yields
// ErrRowNotFound.
func (t *Table) GetByIndex(ctx context.Context, i int) (row.Row, error) {
	if err := checkIndex(i); err != nil {
		return row.Row{}, err
	}
	rows, err := t.get(ctx, "get_index", fmt.Sprintf("%s by_index %d", t.prefix("get"), i))
	if err != nil {
		return row.Row{}, err
	}
	switch len(rows) {
	case 0:
		return row.Row{}, ErrRowNotFound
	case 1:
		rows[0].Index = i
		return rows[0], nil
	default:
		return row.Row{}, protocol.NewError(protocol.ErrorCodeUnexpectedResponse,
			"index lookup returned more than one row",
			map[string]interface{}{"index": i, "rows": len(rows)})
	}
}

// GetByExpression fetches every row matching e. No rows is not an error.
func (t *Table) GetByExpression(ctx context.Context, e *expr.Expression, opts ...GetOption) ([]row.Row, error) {
	if err := e.Check(t.layout); err != nil {
		return nil, err
	}
	o := getOptions{limit: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.offset < 0 {
		return nil, protocol.NewError(protocol.ErrorCodeInvalidExpr, "offset must not be negative",
			map[string]interface{}{"offset": o.offset})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s by_exp %s", t.prefix("get"), expr.Compile(e))
	if o.offset > 0 {
		fmt.Fprintf(&b, " offset %d", o.offset)
	}
	if o.limit >= 0 {
		fmt.Fprintf(&b, " limit %d", o.limit)
	}
	return t.get(ctx, "get_exp", b.String())
}

// UpdateByIndex replaces the row at ordinal i.
func (t *Table) UpdateByIndex(ctx context.Context, i int, values *row.Values) (Result, error) {
	if err := checkIndex(i); err != nil {
		return Result{}, err
	}
	block, err := row.Encode(t.layout, values)
	if err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "update_index", fmt.Sprintf(`%s by_index %d "%s"`, t.prefix("update"), i, block))
}

// UpdateByExpression replaces every row matching e.
func (t *Table) UpdateByExpression(ctx context.Context, e *expr.Expression, values *row.Values) (Result, error) {
	if err := e.Check(t.layout); err != nil {
		return Result{}, err
	}
	block, err := row.Encode(t.layout, values)
	if err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "update_exp",
		fmt.Sprintf(`%s by_exp %s values "%s"`, t.prefix("update"), expr.Compile(e), block))
}

// DeleteByIndex removes the row at ordinal i.
func (t *Table) DeleteByIndex(ctx context.Context, i int) (Result, error) {
	if err := checkIndex(i); err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "delete_index", fmt.Sprintf("%s by_index %d", t.prefix("delete"), i))
}

// DeleteByExpression removes every row matching e.
func (t *Table) DeleteByExpression(ctx context.Context, e *expr.Expression) (Result, error) {
	if err := e.Check(t.layout); err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "delete_exp", fmt.Sprintf("%s by_exp %s", t.prefix("delete"), expr.Compile(e)))
}

// UpdateByValue replaces every row whose column equals value.
func (t *Table) UpdateByValue(ctx context.Context, column string, value interface{}, values *row.Values) (Result, error) {
	lit, err := t.valueLiteral(column, value)
	if err != nil {
		return Result{}, err
	}
	block, err := row.Encode(t.layout, values)
	if err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "update_value",
		fmt.Sprintf(`%s by_value column %s value "%s" values "%s"`, t.prefix("update"), column, lit, block))
}

// DeleteByValue removes every row whose column equals value.
func (t *Table) DeleteByValue(ctx context.Context, column string, value interface{}) (Result, error) {
	lit, err := t.valueLiteral(column, value)
	if err != nil {
		return Result{}, err
	}
	return t.mutate(ctx, "delete_value",
		fmt.Sprintf("%s by_value column %s value %s", t.prefix("delete"), column, lit))
}

func (t *Table) valueLiteral(column string, value interface{}) (string, error) {
	if _, ok := t.layout.Lookup(column); !ok {
		return "", unknownColumn(t.name, column)
	}
	return expr.Statement{Column: column, Value: value}.Literal()
}

// Link ties masterColumn of t to slaveColumn of slave. flags choose which
// operations cascade. Both tables must live in the same database.
func (t *Table) Link(ctx context.Context, masterColumn string, slave *Table, slaveColumn string, flags ...schema.LinkFlag) (Result, error) {
	if slave.db.name != t.db.name {
		return Result{}, protocol.NewError(protocol.ErrorCodeInvalidName,
			"linked tables must be in the same database",
			map[string]interface{}{"master": t.db.name, "slave": slave.db.name})
	}
	if _, ok := t.layout.Lookup(masterColumn); !ok {
		return Result{}, unknownColumn(t.name, masterColumn)
	}
	if _, ok := slave.layout.Lookup(slaveColumn); !ok {
		return Result{}, unknownColumn(slave.name, slaveColumn)
	}
	return t.mutate(ctx, "link",
		schema.SerializeLink(t.db.name, t.name, masterColumn, slave.name, slaveColumn, flags))
}

func (t *Table) mutate(ctx context.Context, verb, command string) (Result, error) {
	return t.client().mutate(ctx, &HookContext{
		Command:  command,
		Verb:     verb,
		Database: t.db.name,
		Table:    t.name,
	})
}

// get sends a get command and decodes the whole response as rows.
func (t *Table) get(ctx context.Context, verb, command string) ([]row.Row, error) {
	c := t.client()
	var rows []row.Row
	err := c.execute(ctx, &HookContext{
		Command:  command,
		Verb:     verb,
		Database: t.db.name,
		Table:    t.name,
	}, func(hc *HookContext) error {
		if len(hc.Response) == 0 {
			rows = []row.Row{}
			return nil
		}
		if len(hc.Response) == 1 && t.layout.RowSize() != 1 {
			status := protocol.StatusCode(int8(hc.Response[0]))
			if err := status.Err(); err != nil {
				s := int8(status)
				hc.Status = &s
				return c.queryError(hc, status, err)
			}
		}
		decoded, err := row.DecodeAll(t.layout, hc.Response)
		if err != nil {
			return c.queryError(hc, 0, err)
		}
		rows = decoded
		hc.Rows = len(decoded)
		if dups := row.Duplicates(decoded); len(dups) > 0 {
			hc.Metadata["duplicate_rows"] = len(dups)
			c.logger.Debug("result contains duplicate rows",
				String("table", t.name), Int("duplicates", len(dups)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func checkIndex(i int) error {
	if i < 0 {
		return protocol.NewError(protocol.ErrorCodeInvalidExpr, "row index must not be negative",
			map[string]interface{}{"index": i})
	}
	return nil
}

func unknownColumn(table, column string) error {
	return protocol.NewError(protocol.ErrorCodeUnknownColumn, "column is not declared by the table",
		map[string]interface{}{"table": table, "column": column})
}
