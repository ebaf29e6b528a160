package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"smartline/internal/blobstore"
)

// databaseName is the fixed key the whole engine state is exported under.
const databaseName = "smartline.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    user_name TEXT NOT NULL,
    address TEXT NOT NULL,
    region TEXT NOT NULL,
    items TEXT NOT NULL,
    total_amount REAL NOT NULL DEFAULT 0,
    raw_text TEXT NOT NULL DEFAULT '',
    timestamp INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    is_flagged INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS prices (
    id TEXT PRIMARY KEY,
    item_name TEXT NOT NULL,
    region TEXT NOT NULL,
    price REAL NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    is_available INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    role TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    sender TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);
`

type colKind int

const (
	colText colKind = iota
	colReal
	colInt
	colBool
	colJSON
)

type column struct {
	name  string // SQL column
	field string // JSON field
	kind  colKind
}

type tableDef struct {
	table  string
	keyCol string
	cols   []column
}

var tables = map[Entity]tableDef{
	EntityOrders: {
		table:  "orders",
		keyCol: "id",
		cols: []column{
			{"id", "id", colText},
			{"user_name", "userName", colText},
			{"address", "address", colText},
			{"region", "region", colText},
			{"items", "items", colJSON},
			{"total_amount", "totalAmount", colReal},
			{"raw_text", "rawText", colText},
			{"timestamp", "timestamp", colInt},
			{"status", "status", colText},
			{"is_flagged", "isFlagged", colBool},
		},
	},
	EntityPrices: {
		table:  "prices",
		keyCol: "id",
		cols: []column{
			{"id", "id", colText},
			{"item_name", "itemName", colText},
			{"region", "region", colText},
			{"price", "price", colReal},
			{"updated_at", "updatedAt", colInt},
			{"is_available", "isAvailable", colBool},
		},
	},
	EntityUsers: {
		table:  "users",
		keyCol: "username",
		cols: []column{
			{"username", "username", colText},
			{"role", "role", colText},
			{"address", "address", colText},
			{"password_hash", "passwordHash", colText},
		},
	},
	EntityMessages: {
		table:  "messages",
		keyCol: "id",
		cols: []column{
			{"id", "id", colText},
			{"text", "text", colText},
			{"sender", "sender", colText},
			{"timestamp", "timestamp", colInt},
		},
	},
}

// SQLite is the embedded relational backend. Tables live in a local scratch
// file; after every mutation the whole database file is exported into the
// blob store under a fixed name, and at open the blob is imported in full.
// There is no write-ahead log: a crash between mutation and export loses the
// mutation.
type SQLite struct {
	db    *sql.DB
	path  string
	blobs blobstore.Store
}

func NewSQLite(dir string, blobs blobstore.Store) (*SQLite, error) {
	path := filepath.Join(dir, databaseName)

	blob, err := blobs.Get(databaseName)
	if err == nil {
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			return nil, fmt.Errorf("import database: %w", err)
		}
	} else if !errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("load database blob: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db, path: path, blobs: blobs}, nil
}

func (s *SQLite) Read(ctx context.Context, entity Entity) ([]Record, error) {
	tbl, ok := tables[entity]
	if !ok {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: fmt.Errorf("unknown entity")}
	}

	names := make([]string, len(tbl.cols))
	for i, c := range tbl.cols {
		names[i] = c.name
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(names, ", "), tbl.table, tbl.keyCol)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: err}
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		dest := make([]any, len(tbl.cols))
		for i := range dest {
			dest[i] = new(sql.NullString)
		}
		for i, c := range tbl.cols {
			switch c.kind {
			case colReal:
				dest[i] = new(sql.NullFloat64)
			case colInt, colBool:
				dest[i] = new(sql.NullInt64)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &PersistenceError{Op: "read", Entity: entity, Err: fmt.Errorf("scan: %w", err)}
		}

		r := make(Record, len(tbl.cols))
		for i, c := range tbl.cols {
			switch c.kind {
			case colReal:
				r[c.field] = dest[i].(*sql.NullFloat64).Float64
			case colInt:
				r[c.field] = dest[i].(*sql.NullInt64).Int64
			case colBool:
				r[c.field] = dest[i].(*sql.NullInt64).Int64 != 0
			case colJSON:
				var v any
				raw := dest[i].(*sql.NullString).String
				if raw != "" {
					if err := json.Unmarshal([]byte(raw), &v); err != nil {
						return nil, &PersistenceError{Op: "read", Entity: entity, Err: fmt.Errorf("decode %s: %w", c.field, err)}
					}
				}
				r[c.field] = v
			default:
				r[c.field] = dest[i].(*sql.NullString).String
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: err}
	}
	return records, nil
}

func (s *SQLite) Write(ctx context.Context, m Mutation) error {
	entity := m.Entity()
	tbl, ok := tables[entity]
	if !ok {
		return &PersistenceError{Op: "write", Entity: entity, Err: fmt.Errorf("unknown entity")}
	}

	var err error
	switch op := m.(type) {
	case Insert:
		err = s.insert(ctx, tbl, op.Record)
	case Update:
		err = s.update(ctx, tbl, op.ID, op.Fields)
	case Delete:
		_, err = s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", tbl.table, tbl.keyCol), op.ID)
	default:
		err = fmt.Errorf("unsupported mutation %T", m)
	}
	if err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}

	if err := s.export(); err != nil {
		return &PersistenceError{Op: "export", Entity: entity, Err: err}
	}
	return nil
}

func (s *SQLite) insert(ctx context.Context, tbl tableDef, record Record) error {
	names := make([]string, len(tbl.cols))
	marks := make([]string, len(tbl.cols))
	args := make([]any, len(tbl.cols))
	for i, c := range tbl.cols {
		v, err := sqlValue(c, record[c.field])
		if err != nil {
			return err
		}
		names[i] = c.name
		marks[i] = "?"
		args[i] = v
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tbl.table, strings.Join(names, ", "), strings.Join(marks, ", "))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLite) update(ctx context.Context, tbl tableDef, id string, fields map[string]any) error {
	var sets []string
	var args []any
	for _, c := range tbl.cols {
		v, ok := fields[c.field]
		if !ok {
			continue
		}
		sv, err := sqlValue(c, v)
		if err != nil {
			return err
		}
		sets = append(sets, c.name+" = ?")
		args = append(args, sv)
	}
	if len(sets) == 0 {
		return fmt.Errorf("no known fields in update")
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		tbl.table, strings.Join(sets, ", "), tbl.keyCol)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func sqlValue(c column, v any) (any, error) {
	switch c.kind {
	case colJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.field, err)
		}
		return string(b), nil
	case colInt:
		switch n := v.(type) {
		case float64:
			return int64(n), nil
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case nil:
			return int64(0), nil
		}
		return nil, fmt.Errorf("field %s: expected number, got %T", c.field, v)
	case colBool:
		b, _ := v.(bool)
		return b, nil
	default:
		return v, nil
	}
}

// export writes the whole database file into the blob store. The scratch
// file is consistent here: the single connection has committed and the
// rollback journal is gone.
func (s *SQLite) export() error {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read database file: %w", err)
	}
	return s.blobs.Put(databaseName, blob)
}

func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return s.blobs.Close()
}
