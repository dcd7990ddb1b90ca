// Package storage keeps conversation state in SQLite: sessions, recent
// completion signatures and the contact click log.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/kwportal/igcse-tutor-bot/internal/config"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB holds separate reader and writer pools over one SQLite file. Writes are
// serialized through a single connection.
type DB struct {
	reader *sql.DB
	writer *sql.DB
	path   string
}

var pragmas = []string{
	"busy_timeout(" + fmt.Sprint(config.DatabaseBusyTimeout.Milliseconds()) + ")",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// New opens (creating if needed) the database at dbPath and applies the
// schema. MemoryPath gives a throwaway database backed by one connection.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath == MemoryPath {
		conn, err := sql.Open("sqlite", MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
		db := &DB{reader: conn, writer: conn, path: dbPath}
		if err := db.init(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return db, nil
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	writer, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	reader, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	reader.SetMaxIdleConns(2)
	reader.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	db := &DB{reader: reader, writer: writer, path: dbPath}
	if err := db.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return err
	}
	if err := InitSchema(ctx, db.writer); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(context.Background(), MemoryPath)
}

// Ping checks both pools.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if err := db.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping reader: %w", err)
	}
	return nil
}

// Close closes both pools.
func (db *DB) Close() error {
	werr := db.writer.Close()
	if db.reader == db.writer {
		return werr
	}
	rerr := db.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func unix(t time.Time) int64 {
	return t.Unix()
}
