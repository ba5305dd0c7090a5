package client

import (
	"context"

	"github.com/dan-strohschein/cdbms-driver/schema"
)

// Database is a handle to one server-side database. Handles are cheap and
// hold no server resources.
type Database struct {
	name   string
	client *Client
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// Client returns the client the handle sends commands through.
func (d *Database) Client() *Client { return d.client }

// CreateTable creates a table with the given columns and returns its handle.
func (d *Database) CreateTable(ctx context.Context, name, access string, columns ...schema.Column) (*Table, error) {
	t, err := d.GetTable(name, access, columns...)
	if err != nil {
		return nil, err
	}
	if _, err := d.client.mutate(ctx, &HookContext{
		Command:  schema.SerializeCreateTable(d.name, name, access, t.layout),
		Verb:     "create_table",
		Database: d.name,
		Table:    name,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTable binds a handle to an existing table. The columns must match the
// server's declaration; nothing is sent to verify them.
func (d *Database) GetTable(name, access string, columns ...schema.Column) (*Table, error) {
	if err := schema.ValidateName("table", name); err != nil {
		return nil, err
	}
	if err := schema.ValidateName("access", access); err != nil {
		return nil, err
	}
	layout, err := schema.NewLayout(columns...)
	if err != nil {
		return nil, err
	}
	return &Table{name: name, access: access, layout: layout, db: d}, nil
}

// RemoveTable deletes a table on the server.
func (d *Database) RemoveTable(ctx context.Context, name string) (Result, error) {
	if err := schema.ValidateName("table", name); err != nil {
		return Result{}, err
	}
	return d.client.mutate(ctx, &HookContext{
		Command:  schema.SerializeDeleteTable(d.name, name),
		Verb:     "delete_table",
		Database: d.name,
		Table:    name,
	})
}

// Sync commits pending changes.
func (d *Database) Sync(ctx context.Context) (Result, error) {
	return d.client.mutate(ctx, &HookContext{
		Command:  schema.SerializeSync(d.name),
		Verb:     "sync",
		Database: d.name,
	})
}

// Rollback discards changes made since the last sync.
func (d *Database) Rollback(ctx context.Context) (Result, error) {
	return d.client.mutate(ctx, &HookContext{
		Command:  schema.SerializeRollback(d.name),
		Verb:     "rollback",
		Database: d.name,
	})
}
