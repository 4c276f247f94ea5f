// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package postgres provides a PostgreSQL table backed keyed resource.
//
// A table stores each value as a JSONB row keyed by a text primary key and
// exposes the same resource surface as the in-memory store: GET on the
// container lists keys, and each key resolves to a child supporting GET, PUT
// and DELETE. Database access goes through the [Querier] interface, which
// *pgxpool.Pool satisfies.
//
// The expected table shape is:
//
//	CREATE TABLE notes (
//	    key   TEXT PRIMARY KEY,
//	    value JSONB NOT NULL
//	)
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of the pgx interface the table depends on. It is
// satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TableOptions holds configuration for a [Table].
type TableOptions struct {
	entryOptions []resource.Option
}

// TableOption configures a [Table] created by [NewTable].
type TableOption func(*TableOptions)

// EntryOptions applies resource options, such as
// [resource.DefaultSecurity], to every resolved entry resource.
func EntryOptions(opts ...resource.Option) TableOption {
	return func(to *TableOptions) {
		to.entryOptions = append(to.entryOptions, opts...)
	}
}

// Table is a keyed value store backed by a PostgreSQL table. It is safe for
// concurrent use to the extent its querier is.
type Table struct {
	db           Querier
	name         string
	keyCodec     codec.Codec
	valueCodec   codec.Codec
	entryOptions []resource.Option

	listStmt   string
	getStmt    string
	putStmt    string
	deleteStmt string
}

// NewTable constructs a table resource over db. The table name is quoted into
// every statement; key and value codecs convert between runtime values and
// the key's text form and the value's JSONB form.
func NewTable(db Querier, name string, keyCodec, valueCodec codec.Codec, opts ...TableOption) *Table {
	to := &TableOptions{}
	for _, opt := range opts {
		opt(to)
	}

	ident := quoteIdentifier(name)

	return &Table{
		db:           db,
		name:         name,
		keyCodec:     keyCodec,
		valueCodec:   valueCodec,
		entryOptions: to.entryOptions,
		listStmt:   fmt.Sprintf("SELECT key FROM %s ORDER BY key", ident),
		getStmt:    fmt.Sprintf("SELECT value FROM %s WHERE key = $1", ident),
		putStmt:    fmt.Sprintf("INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", ident),
		deleteStmt: fmt.Sprintf("DELETE FROM %s WHERE key = $1", ident),
	}
}

// quoteIdentifier double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// List reports the stored keys in ascending order.
func (t *Table) List(ctx context.Context) ([]string, error) {
	rows, err := t.db.Query(ctx, t.listStmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		err = rows.Scan(&key)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Get reports the value stored under the given key.
func (t *Table) Get(ctx context.Context, key any) (any, error) {
	k, err := t.keyCodec.EncodeString(key)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = t.db.QueryRow(ctx, t.getStmt, k).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.NotFound("no value stored under key: " + k)
	}
	if err != nil {
		return nil, err
	}

	return t.valueCodec.Decode(value)
}

// Put stores a value under the given key, replacing any previous value.
func (t *Table) Put(ctx context.Context, key, value any) error {
	k, err := t.keyCodec.EncodeString(key)
	if err != nil {
		return err
	}

	v, err := t.valueCodec.Encode(value)
	if err != nil {
		return err
	}

	_, err = t.db.Exec(ctx, t.putStmt, k, v)
	return err
}

// Delete removes the value stored under the given key.
func (t *Table) Delete(ctx context.Context, key any) error {
	k, err := t.keyCodec.EncodeString(key)
	if err != nil {
		return err
	}

	tag, err := t.db.Exec(ctx, t.deleteStmt, k)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httperr.NotFound("no value stored under key: " + k)
	}
	return nil
}

// Resource exposes the table as a resource: GET on the container lists keys
// and each key resolves to a child supporting GET, PUT and DELETE.
func (t *Table) Resource(name string, opts ...resource.Option) *resource.Resource {
	opts = append(opts,
		resource.WithOperation(resource.NewOperation(
			http.MethodGet,
			"list",
			func(ctx context.Context, args resource.Args) (any, error) {
				return t.List(ctx)
			},
			resource.Returns(codec.JSON([]string{})),
		)),
		resource.WithIndex(resource.Index{
			Param: "key",
			Codec: t.keyCodec,
			Resolve: func(ctx context.Context, key any) (*resource.Resource, error) {
				return t.entry(key), nil
			},
		}),
	)
	return resource.New(name, opts...)
}

func (t *Table) entry(key any) *resource.Resource {
	keyParam := resource.Param{
		Name:     "key",
		In:       resource.InPath,
		Codec:    t.keyCodec,
		Required: true,
	}

	opts := append([]resource.Option{}, t.entryOptions...)
	opts = append(opts,
		resource.WithOperation(resource.NewOperation(
			http.MethodGet,
			"get",
			func(ctx context.Context, args resource.Args) (any, error) {
				return t.Get(ctx, args["key"])
			},
			resource.WithParam(keyParam),
			resource.Returns(t.valueCodec),
		)),
		resource.WithOperation(resource.NewOperation(
			http.MethodPut,
			"put",
			func(ctx context.Context, args resource.Args) (any, error) {
				return nil, t.Put(ctx, args["key"], args["value"])
			},
			resource.WithParam(keyParam),
			resource.WithParam(resource.Param{
				Name:     "value",
				In:       resource.InBody,
				Codec:    t.valueCodec,
				Required: true,
			}),
		)),
		resource.WithOperation(resource.NewOperation(
			http.MethodDelete,
			"delete",
			func(ctx context.Context, args resource.Args) (any, error) {
				return nil, t.Delete(ctx, args["key"])
			},
			resource.WithParam(keyParam),
		)),
	)
	return resource.New(fmt.Sprint(key), opts...)
}
