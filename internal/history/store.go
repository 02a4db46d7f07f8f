// Package history persists one row per successful install in an embedded
// SQLite database. Rows are append-only: the newest row by create_time for a
// name is the currently installed version, and uninstalling a name deletes
// all of its rows.
package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS updated_info (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	version      TEXT NOT NULL,
	url          TEXT NOT NULL,
	source       TEXT NOT NULL,
	updated_time TEXT NOT NULL,
	create_time  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_updated_info_name ON updated_info(name);
`

// Record is one installation event.
type Record struct {
	ID          int64
	Name        string
	Version     string
	URL         string
	Source      string
	UpdatedTime time.Time
	CreateTime  time.Time
}

// Store is a connection pool over the history database. It is safe for
// concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger *log.Logger
}

// Config holds the parameters for opening a history store.
type Config struct {
	// Path is the filesystem path to the database file. The parent
	// directory must exist; the file is created if missing. ":memory:"
	// opens an in-memory database (pool size is forced to 1, since each
	// in-memory connection would otherwise be independent).
	Path string

	// PoolSize is the number of connections. Defaults to 4.
	PoolSize int

	// Logger receives operational messages. If nil, output is discarded.
	Logger *log.Logger
}

// Open creates the store, applying pragmas and the schema to every
// connection. The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", cfg.Path, err)
	}

	logger.Debug("history store opened", "path", cfg.Path, "pool_size", poolSize)
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes all connections. Blocks until borrowed connections return.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}

// SelectAll returns every history row, oldest first.
func (s *Store) SelectAll(ctx context.Context) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	return selectRecords(conn,
		`SELECT id, name, version, url, source, updated_time, create_time
		 FROM updated_info ORDER BY create_time ASC`, nil)
}

// SelectByName returns every history row for name, oldest first.
func (s *Store) SelectByName(ctx context.Context, name string) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	return selectRecords(conn,
		`SELECT id, name, version, url, source, updated_time, create_time
		 FROM updated_info WHERE name = ? ORDER BY create_time ASC`, []any{name})
}

// LatestByName returns the newest row by create_time for name, or nil when
// the name has no history.
func (s *Store) LatestByName(ctx context.Context, name string) (*Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	records, err := selectRecords(conn,
		`SELECT id, name, version, url, source, updated_time, create_time
		 FROM updated_info WHERE name = ?
		 ORDER BY create_time DESC LIMIT 1`, []any{name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Insert appends a row and returns its id. The record's ID field is ignored.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO updated_info (name, version, url, source, updated_time, create_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				rec.Name,
				rec.Version,
				rec.URL,
				rec.Source,
				rec.UpdatedTime.UTC().Format(time.RFC3339Nano),
				rec.CreateTime.UTC().Format(time.RFC3339Nano),
			},
		})
	if err != nil {
		return 0, fmt.Errorf("history: insert %s: %w", rec.Name, err)
	}

	id := conn.LastInsertRowID()
	s.logger.Debug("history row inserted", "name", rec.Name, "version", rec.Version, "id", id)
	return id, nil
}

// DeleteByName removes all rows for name and returns how many were deleted.
func (s *Store) DeleteByName(ctx context.Context, name string) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM updated_info WHERE name = ?`,
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return 0, fmt.Errorf("history: delete %s: %w", name, err)
	}
	return int64(conn.Changes()), nil
}

func selectRecords(conn *sqlite.Conn, query string, args []any) ([]Record, error) {
	var records []Record
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rec := Record{
				ID:      stmt.ColumnInt64(0),
				Name:    stmt.ColumnText(1),
				Version: stmt.ColumnText(2),
				URL:     stmt.ColumnText(3),
				Source:  stmt.ColumnText(4),
			}
			var err error
			if rec.UpdatedTime, err = parseTime(stmt.ColumnText(5)); err != nil {
				return fmt.Errorf("row %d updated_time: %w", rec.ID, err)
			}
			if rec.CreateTime, err = parseTime(stmt.ColumnText(6)); err != nil {
				return fmt.Errorf("row %d create_time: %w", rec.ID, err)
			}
			records = append(records, rec)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: select: %w", err)
	}
	return records, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// prepareConnection applies pragmas and the schema. Runs once per pooled
// connection, on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("history: apply schema: %w", err)
	}
	return nil
}
