package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/fintweet/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "fintweet.db"

// lookupChunk bounds the number of bound parameters per IN (...) query.
const lookupChunk = 500

// Store is a SQLite database holding one or more collections.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.fintweet/data/fintweet.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fintweet", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL gives readers a consistent snapshot while a batch is being written.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EntryStore returns an EntryStore for the named collection.
func (s *Store) EntryStore(collection string) driven.EntryStore {
	return &entryStore{store: s, collection: collection}
}

// Collections lists every declared collection with its entry count.
func (s *Store) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.metric, c.dimensions, COUNT(e.seq)
		FROM collections c LEFT JOIN entries e ON e.collection = c.name
		GROUP BY c.name ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		var metric string
		if err := rows.Scan(&info.Name, &metric, &info.Dimensions, &info.Entries); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		info.Metric = domain.Metric(metric)
		out = append(out, info)
	}
	return out, rows.Err()
}

// CollectionInfo is a collection declaration with its size.
type CollectionInfo struct {
	domain.Collection
	Entries int
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Entry Store ====================

// Ensure entryStore implements the interface.
var _ driven.EntryStore = (*entryStore)(nil)

// entryStore implements driven.EntryStore for one collection.
type entryStore struct {
	store      *Store
	collection string
}

// EnsureCollection declares the collection or verifies the stored declaration.
func (s *entryStore) EnsureCollection(ctx context.Context, c domain.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Name != s.collection {
		return fmt.Errorf("%w: store is bound to collection %q, not %q", domain.ErrInvalidInput, s.collection, c.Name)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO collections (name, metric, dimensions) VALUES (?, ?, ?)
	`, c.Name, string(c.Metric), c.Dimensions)
	if err != nil {
		return fmt.Errorf("declaring collection: %w", err)
	}

	var existing domain.Collection
	var metric string
	err = s.store.db.QueryRowContext(ctx, `
		SELECT name, metric, dimensions FROM collections WHERE name = ?
	`, c.Name).Scan(&existing.Name, &metric, &existing.Dimensions)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}
	existing.Metric = domain.Metric(metric)

	return c.Compatible(existing)
}

// ExistingIDs returns the subset of ids already stored.
func (s *entryStore) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(ids); start += lookupChunk {
		chunk := ids[start:min(start+lookupChunk, len(ids))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, s.collection)
		for _, id := range chunk {
			args = append(args, id)
		}

		//nolint:gosec // G202: placeholders only, values are bound.
		query := "SELECT doc_id FROM entries WHERE collection = ? AND doc_id IN (" + placeholders(len(chunk)) + ")"
		rows, err := s.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("checking ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning id: %w", err)
			}
			found[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

// Insert stores entries whose doc id is new, in one transaction.
func (s *entryStore) Insert(ctx context.Context, entries []domain.IndexedEntry) ([]domain.IndexedEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO entries (collection, doc_id, clean_text, embedding)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	stored := make([]domain.IndexedEntry, 0, len(entries))
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, s.collection, e.DocID, e.CleanText, float32SliceToBytes(e.Embedding))
		if err != nil {
			return nil, fmt.Errorf("inserting entry %q: %w", e.DocID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("inserting entry %q: %w", e.DocID, err)
		}
		if n == 0 {
			continue
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading seq for %q: %w", e.DocID, err)
		}
		e.Seq = seq
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stored, nil
}

// Texts returns clean_text by doc id.
func (s *entryStore) Texts(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += lookupChunk {
		chunk := ids[start:min(start+lookupChunk, len(ids))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, s.collection)
		for _, id := range chunk {
			args = append(args, id)
		}

		//nolint:gosec // G202: placeholders only, values are bound.
		query := "SELECT doc_id, clean_text FROM entries WHERE collection = ? AND doc_id IN (" +
			placeholders(len(chunk)) + ")"
		rows, err := s.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("loading texts: %w", err)
		}
		for rows.Next() {
			var id, text string
			if err := rows.Scan(&id, &text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning text: %w", err)
			}
			out[id] = text
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Scan calls fn for every entry in insertion order.
func (s *entryStore) Scan(ctx context.Context, fn func(domain.IndexedEntry) error) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT seq, doc_id, clean_text, embedding FROM entries
		WHERE collection = ? ORDER BY seq
	`, s.collection)
	if err != nil {
		return fmt.Errorf("scanning entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.IndexedEntry
		var blob []byte
		if err := rows.Scan(&e.Seq, &e.DocID, &e.CleanText, &blob); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		e.Embedding = bytesToFloat32Slice(blob)
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of entries in the collection.
func (s *entryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE collection = ?", s.collection).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// ==================== Helper Functions ====================

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
