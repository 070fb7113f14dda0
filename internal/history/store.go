package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
)

// Entry is one recorded break. The ciphertext itself is not stored, only its
// digest and length.
type Entry struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	Digest          string    `json:"digest"`
	CiphertextBytes int       `json:"ciphertext_bytes"`
	Key             []byte    `json:"key"`
	KeyLength       int       `json:"key_length"`
	TriedLength     int       `json:"tried_length"`
	Score           float64   `json:"score"`
	Strategy        string    `json:"strategy"`
	CreatedAt       time.Time `json:"created_at"`
}

// Result rebuilds the break result for ct from the stored key. It fails when
// ct is not the ciphertext the entry was recorded for.
func (e Entry) Result(ct []byte) (crack.Result, error) {
	if Digest(ct) != e.Digest {
		return crack.Result{}, fmt.Errorf("ciphertext does not match entry %d", e.ID)
	}
	plaintext, err := cipher.RepeatingXOR(ct, e.Key)
	if err != nil {
		return crack.Result{}, err
	}
	return crack.Result{
		Key:         append([]byte(nil), e.Key...),
		Plaintext:   plaintext,
		Score:       e.Score,
		KeyLength:   e.KeyLength,
		TriedLength: e.TriedLength,
	}, nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	RunID string
	Limit int
}

// Digest identifies a ciphertext in the store.
func Digest(ct []byte) string {
	sum := sha256.Sum256(ct)
	return hex.EncodeToString(sum[:])
}

// Store keeps solved ciphertexts in a SQLite database.
type Store struct {
	db         *sql.DB
	insertStmt *sql.Stmt
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(`
		INSERT INTO breaks (
			run_id, digest, ciphertext_bytes, key, key_length, tried_length,
			score, strategy, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.insertStmt = stmt
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS breaks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		ciphertext_bytes INTEGER NOT NULL,
		key BLOB NOT NULL,
		key_length INTEGER NOT NULL,
		tried_length INTEGER NOT NULL,
		score REAL NOT NULL,
		strategy TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_breaks_digest ON breaks(digest);
	CREATE INDEX IF NOT EXISTS idx_breaks_run ON breaks(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	return s.db.Close()
}

// Record stores res as the outcome of breaking ct.
func (s *Store) Record(ctx context.Context, runID string, ct []byte, res crack.Result, strategy crack.Strategy) (Entry, error) {
	e := Entry{
		RunID:           runID,
		Digest:          Digest(ct),
		CiphertextBytes: len(ct),
		Key:             append([]byte(nil), res.Key...),
		KeyLength:       res.KeyLength,
		TriedLength:     res.TriedLength,
		Score:           res.Score,
		Strategy:        string(strategy),
		CreatedAt:       time.Now().UTC(),
	}
	out, err := s.insertStmt.ExecContext(ctx,
		e.RunID, e.Digest, e.CiphertextBytes, e.Key, e.KeyLength, e.TriedLength,
		e.Score, e.Strategy, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert break: %w", err)
	}
	if e.ID, err = out.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("get last insert id: %w", err)
	}
	return e, nil
}

// Lookup returns the best scoring entry recorded for ct.
func (s *Store) Lookup(ctx context.Context, ct []byte) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+`
		WHERE digest = ? AND ciphertext_bytes = ?
		ORDER BY score DESC, id DESC
		LIMIT 1
	`, Digest(ct), len(ct))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup break: %w", err)
	}
	return e, true, nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := selectEntry
	var args []any
	if runID := strings.TrimSpace(f.RunID); runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query breaks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan break: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const selectEntry = `
	SELECT id, run_id, digest, ciphertext_bytes, key, key_length, tried_length,
		score, strategy, created_at
	FROM breaks`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var created string
	err := sc.Scan(&e.ID, &e.RunID, &e.Digest, &e.CiphertextBytes, &e.Key, &e.KeyLength,
		&e.TriedLength, &e.Score, &e.Strategy, &created)
	if err != nil {
		return Entry{}, err
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Entry{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return e, nil
}
