// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/resource"
	"github.com/resinhq/resin/rest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Title string `json:"title"`
}

// fakeQuerier emulates the small slice of PostgreSQL behaviour the table
// depends on, keyed off the statement text.
type fakeQuerier struct {
	values map[string][]byte
	execs  []string
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		values: make(map[string][]byte),
	}
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)

	if strings.HasPrefix(sql, "INSERT") {
		q.values[arguments[0].(string)] = arguments[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}

	if strings.HasPrefix(sql, "DELETE") {
		key := arguments[0].(string)
		if _, ok := q.values[key]; !ok {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(q.values, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}

	return pgconn.CommandTag{}, nil
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	keys := make([]string, 0, len(q.values))
	for k := range q.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &fakeRows{keys: keys}, nil
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	value, ok := q.values[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: value}
}

type fakeRows struct {
	keys []string
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	return r.pos < len(r.keys)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.keys[r.pos]
	r.pos++
	return nil
}

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.value
	return nil
}

func TestNewTable(t *testing.T) {
	t.Run("will quote the table identifier", func(t *testing.T) {
		t.Run("if the name is plain", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			assert.Equal(t, `SELECT key FROM "notes" ORDER BY key`, table.listStmt)
			assert.Equal(t, `SELECT value FROM "notes" WHERE key = $1`, table.getStmt)
			assert.Equal(t, `INSERT INTO "notes" (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, table.putStmt)
			assert.Equal(t, `DELETE FROM "notes" WHERE key = $1`, table.deleteStmt)
		})

		t.Run("if the name contains a quote", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), `weird"name`, codec.String(), codec.JSON(note{}))

			assert.Contains(t, table.getStmt, `"weird""name"`)
		})
	})
}

func TestTable(t *testing.T) {
	t.Run("will round-trip a value", func(t *testing.T) {
		t.Run("if it is put then got", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			err := table.Put(context.Background(), "greeting", note{Title: "hi"})
			require.NoError(t, err)

			v, err := table.Get(context.Background(), "greeting")
			require.NoError(t, err)
			assert.Equal(t, note{Title: "hi"}, v)
		})
	})

	t.Run("will list stored keys in order", func(t *testing.T) {
		t.Run("if values are stored", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			require.NoError(t, table.Put(context.Background(), "b", note{}))
			require.NoError(t, table.Put(context.Background(), "a", note{}))

			keys, err := table.List(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, keys)
		})
	})

	t.Run("will return a 404", func(t *testing.T) {
		t.Run("if the key was never stored", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			_, err := table.Get(context.Background(), "missing")
			require.Error(t, err)
		})

		t.Run("if a never stored key is deleted", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			err := table.Delete(context.Background(), "missing")
			require.Error(t, err)
		})
	})

	t.Run("will serve through the dispatch pipeline", func(t *testing.T) {
		t.Run("if mounted as a resource", func(t *testing.T) {
			table := NewTable(newFakeQuerier(), "notes", codec.String(), codec.JSON(note{}))

			root := resource.New(
				"root",
				resource.WithChild(table.Resource("notes")),
			)
			app := rest.NewApplication(root, rest.WithLogHandler(slog.DiscardHandler))

			resp := app.Handle(context.Background(), &rest.Request{
				Method: http.MethodPut,
				Path:   "/notes/greeting",
				Body:   rest.BytesStream([]byte(`{"title": "hi"}`), "application/json"),
			})
			require.Equal(t, http.StatusNoContent, resp.StatusCode)

			resp = app.Handle(context.Background(), &rest.Request{
				Method: http.MethodGet,
				Path:   "/notes/greeting",
			})
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var got note
			err := json.NewDecoder(resp.Body).Decode(&got)
			require.NoError(t, err)
			assert.Equal(t, note{Title: "hi"}, got)

			resp = app.Handle(context.Background(), &rest.Request{
				Method: http.MethodDelete,
				Path:   "/notes/greeting",
			})
			require.Equal(t, http.StatusNoContent, resp.StatusCode)

			resp = app.Handle(context.Background(), &rest.Request{
				Method: http.MethodGet,
				Path:   "/notes/greeting",
			})
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})
}
