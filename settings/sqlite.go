package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists setting values and generated secrets in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Persister = (*SQLiteStore)(nil)

// NewSQLiteStore opens, and creates if necessary, the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS settings (
		path_id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS secrets (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`)
	return err
}

// Load returns every persisted setting value.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path_id, type, value FROM settings ORDER BY path_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var pathID, typeName, value string
		if err := rows.Scan(&pathID, &typeName, &value); err != nil {
			return nil, err
		}

		typ, err := ParseType(typeName)
		if err != nil {
			logger.Warnf("Skipping persisted setting %s: %+v", pathID, err)
			continue
		}
		records = append(records, Record{PathID: pathID, Type: typ, Value: value})
	}

	return records, rows.Err()
}

// Save upserts all records in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (path_id, type, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path_id) DO UPDATE SET type=excluded.type, value=excluded.value, updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, record.PathID, record.Type.String(), record.Value, now); err != nil {
			return fmt.Errorf("failed to save %s: %w", record.PathID, err)
		}
	}

	return tx.Commit()
}

// Secret returns the secret stored under name.
// When there is none yet, generate is called and its result stored.
func (s *SQLiteStore) Secret(ctx context.Context, name string, generate func() (string, error)) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE name = ?`, name).Scan(&value)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	value, err = generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate secret %s: %w", name, err)
	}

	// Another process may have won the race; keep whichever value landed first.
	_, err = s.db.ExecContext(ctx, `INSERT INTO secrets (name, value, created_at) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`, name, value, time.Now())
	if err != nil {
		return "", err
	}

	err = s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE name = ?`, name).Scan(&value)
	return value, err
}
