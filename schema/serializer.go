package schema

import (
	"fmt"
	"strings"
)

// LinkFlag selects which operations cascade from a master column to a slave.
type LinkFlag string

const (
	CascadeDelete LinkFlag = "cdel"
	CascadeUpdate LinkFlag = "cupd"
	CascadeAppend LinkFlag = "capp"
	CascadeFind   LinkFlag = "cfnd"
)

// SerializeColumn generates one column declaration body.
// Format: name size "type" key-flag increment-flag
func SerializeColumn(c Column) string {
	return fmt.Sprintf(`%s %d "%s" %s %s`, c.name, c.width, c.dataType.tag, c.flags[0], c.flags[1])
}

// SerializeColumns space-joins every column declaration in layout order.
func SerializeColumns(l *Layout) string {
	decls := make([]string, 0, l.Len())
	for _, c := range l.columns {
		decls = append(decls, SerializeColumn(c))
	}
	return strings.Join(decls, " ")
}

// SerializeCreateDatabase generates a database creation command.
func SerializeCreateDatabase(name string) string {
	return fmt.Sprintf("create database %s", name)
}

// SerializeDeleteDatabase generates a database removal command.
func SerializeDeleteDatabase(name string) string {
	return fmt.Sprintf("delete database %s", name)
}

// SerializeCreateTable generates a table creation command.
func SerializeCreateTable(database, table, access string, l *Layout) string {
	return fmt.Sprintf("%s create table %s %s columns ( %s )", database, table, access, SerializeColumns(l))
}

// SerializeDeleteTable generates a table removal command.
func SerializeDeleteTable(database, table string) string {
	return fmt.Sprintf("%s delete table %s", database, table)
}

// SerializeLink generates a master/slave column link command.
func SerializeLink(database, master, masterColumn, slave, slaveColumn string, flags []LinkFlag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return fmt.Sprintf("%s link master %s %s to_slave %s %s ( %s )",
		database, master, masterColumn, slave, slaveColumn, strings.Join(parts, " "))
}

// SerializeSync generates a commit-boundary command.
func SerializeSync(database string) string {
	return database + " sync"
}

// SerializeRollback generates an abort-boundary command.
func SerializeRollback(database string) string {
	return database + " rollback"
}
