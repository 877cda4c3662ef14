package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// sidecarEntry is one row of the metadata sidecar.
type sidecarEntry struct {
	NodeID   string
	Vector   []float32
	Metadata VectorMetadata
}

// sqliteSidecar is the key-value metadata sidecar (vectors.db) keyed by
// nodeId, storing VectorMetadata plus raw vector bytes. Grounded on the
// teacher's internal/store/sqlite_bm25.go WAL-mode / integrity-check-
// before-open idiom, adapted from an FTS5 keyword index to a flat
// vector metadata table.
type sqliteSidecar struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

func validateSidecarIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='vectors'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table 'vectors' missing")
	}
	return nil
}

// openSidecar opens (creating if needed) the SQLite-backed metadata
// sidecar at path. An empty path opens an in-memory database.
func openSidecar(path string) (*sqliteSidecar, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sidecar directory: %w", err)
		}
		if err := validateSidecarIntegrity(path); err != nil {
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("sidecar corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, err)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sidecar database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	node_id     TEXT PRIMARY KEY,
	vector      BLOB NOT NULL,
	signature   TEXT NOT NULL,
	summary     TEXT NOT NULL,
	file_id     TEXT NOT NULL,
	file_path   TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	confidence  REAL NOT NULL,
	last_updated TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteSidecar{db: db, path: path}, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func (s *sqliteSidecar) put(ctx context.Context, nodeID string, vector []float32, meta VectorMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sidecar is closed")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO vectors (node_id, vector, signature, summary, file_id, file_path, line_number, confidence, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(node_id) DO UPDATE SET
	vector=excluded.vector, signature=excluded.signature, summary=excluded.summary,
	file_id=excluded.file_id, file_path=excluded.file_path, line_number=excluded.line_number,
	confidence=excluded.confidence, last_updated=excluded.last_updated`,
		nodeID, encodeVector(vector), meta.Signature, meta.Summary, meta.FileID,
		meta.FilePath, meta.LineNumber, meta.Confidence, meta.LastUpdated.Format(jsonTimeLayout))
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", nodeID, err)
	}
	return nil
}

const jsonTimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

func (s *sqliteSidecar) get(ctx context.Context, nodeID string) (VectorMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return VectorMetadata{}, false
	}

	row := s.db.QueryRowContext(ctx, `
SELECT signature, summary, file_id, file_path, line_number, confidence, last_updated
FROM vectors WHERE node_id = ?`, nodeID)

	var meta VectorMetadata
	var lastUpdated string
	if err := row.Scan(&meta.Signature, &meta.Summary, &meta.FileID, &meta.FilePath,
		&meta.LineNumber, &meta.Confidence, &lastUpdated); err != nil {
		return VectorMetadata{}, false
	}
	if t, err := parseTime(lastUpdated); err == nil {
		meta.LastUpdated = t
	}
	return meta, true
}

func (s *sqliteSidecar) delete(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sidecar is closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("delete vector %s: %w", nodeID, err)
	}
	return nil
}

func (s *sqliteSidecar) all(ctx context.Context) ([]sidecarEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("sidecar is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT node_id, vector, signature, summary, file_id, file_path, line_number, confidence, last_updated
FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("query all vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []sidecarEntry
	for rows.Next() {
		var e sidecarEntry
		var blob []byte
		var lastUpdated string
		if err := rows.Scan(&e.NodeID, &blob, &e.Metadata.Signature, &e.Metadata.Summary,
			&e.Metadata.FileID, &e.Metadata.FilePath, &e.Metadata.LineNumber,
			&e.Metadata.Confidence, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		e.Vector = decodeVector(blob)
		if t, err := parseTime(lastUpdated); err == nil {
			e.Metadata.LastUpdated = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *sqliteSidecar) rowCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&count)
	return count, err
}

func (s *sqliteSidecar) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(jsonTimeLayout, s)
}
