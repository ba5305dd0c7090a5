package schema

import (
	"testing"
)

func pigLayout(t *testing.T) *Layout {
	t.Helper()
	flags := []Flag{NotPrimary, NoAutoIncrement}
	l, err := NewLayout(
		MustColumn("uid", Int, flags, 4),
		MustColumn("huid", Int, flags, 4),
		MustColumn("name", Str, flags, 16),
		MustColumn("weight", Int, flags, 4),
	)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	return l
}

func TestSerializeColumn(t *testing.T) {
	tests := []struct {
		name     string
		column   Column
		expected string
	}{
		{
			name:     "int column",
			column:   MustColumn("uid", Int, []Flag{Primary, AutoIncrement}, 4),
			expected: `uid 4 "int" p a`,
		},
		{
			name:     "string column",
			column:   MustColumn("name", Str, []Flag{NotPrimary, NoAutoIncrement}, 16),
			expected: `name 16 "str" np na`,
		},
		{
			name:     "float column",
			column:   MustColumn("ratio", Float, []Flag{NotPrimary, NoAutoIncrement}, 8),
			expected: `ratio 8 "dob" np na`,
		},
		{
			name:     "untyped column",
			column:   MustColumn("blob", None, []Flag{NotPrimary, NoAutoIncrement}, 10),
			expected: `blob 10 "" np na`,
		},
		{
			name:     "module type",
			column:   MustColumn("h", ModuleType("hash"), []Flag{NotPrimary, NoAutoIncrement}, 32),
			expected: `h 32 "hash" np na`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SerializeColumn(tt.column); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSerializeCreateTable(t *testing.T) {
	cmd := SerializeCreateTable("dbtest", "pigs", "same", pigLayout(t))

	expected := `dbtest create table pigs same columns ( uid 4 "int" np na huid 4 "int" np na name 16 "str" np na weight 4 "int" np na )`
	if cmd != expected {
		t.Errorf("expected %q, got %q", expected, cmd)
	}
}

func TestSerializeDatabaseCommands(t *testing.T) {
	tests := []struct {
		got      string
		expected string
	}{
		{SerializeCreateDatabase("dbtest"), "create database dbtest"},
		{SerializeDeleteDatabase("dbtest"), "delete database dbtest"},
		{SerializeDeleteTable("dbtest", "pigs"), "dbtest delete table pigs"},
		{SerializeSync("dbtest"), "dbtest sync"},
		{SerializeRollback("dbtest"), "dbtest rollback"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, tt.got)
		}
	}
}

func TestSerializeLink(t *testing.T) {
	cmd := SerializeLink("dbtest", "pigs", "uid", "owners", "pid", []LinkFlag{CascadeAppend, CascadeDelete})

	expected := "dbtest link master pigs uid to_slave owners pid ( capp cdel )"
	if cmd != expected {
		t.Errorf("expected %q, got %q", expected, cmd)
	}
}
