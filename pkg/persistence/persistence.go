// Package persistence saves and restores the memory store across restarts.
//
// Snapshots live in a SQLite file. Vectors are stored as JSON strings in
// TEXT fields, matching the rest of the record payload; the meta table
// carries the snapshot version, the codebook parameters needed to rebuild a
// compatible encoding pipeline, and the store's identity.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hypermem/hypermem-go/pkg/memory"
)

// CurrentVersion is the snapshot format version written by Save.
//
// Version 1 predates differentiation signatures; version 2 added the
// xi_signature column. Loading a version 1 snapshot upgrades it in place,
// leaving signatures empty for lazy recomputation.
const CurrentVersion = 2

// ErrVersionMismatch indicates a snapshot written by a newer release.
var ErrVersionMismatch = errors.New("snapshot version newer than supported")

// Params are the codebook parameters stored alongside a snapshot. A loaded
// store is only meaningful with a pipeline built from the same parameters.
type Params struct {
	Seed      uint64 `json:"seed"`
	InputDim  int    `json:"input_dim"`
	OutputDim int    `json:"output_dim"`
}

// Metadata describes the snapshot as a whole.
type Metadata struct {
	// StoreID is a stable identity assigned when the snapshot is first
	// created.
	StoreID string `json:"store_id"`

	CreatedAt   time.Time `json:"created_at"`
	LastSavedAt time.Time `json:"last_saved_at"`

	// Consolidations counts dream cycles run against this store.
	Consolidations uint64 `json:"consolidations"`

	// Level is the last recorded integration level.
	Level string `json:"level"`
}

// Store is a SQLite-backed snapshot file.
type Store struct {
	db   *sql.DB
	path string
	meta Metadata
}

// Open opens (or creates) a snapshot file, creating parent directories as
// needed.
//
// Parameters:
//   - path: the SQLite file path.
//
// Returns:
//   - *Store: the opened snapshot store.
//   - error: ErrVersionMismatch for snapshots from a newer release, or the
//     underlying database error.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persistence.Open: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("persistence.Open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("persistence.Open: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Metadata returns the snapshot metadata loaded at open time or written by
// the last save.
func (s *Store) Metadata() Metadata {
	return s.meta
}

// SetMetadata replaces the consolidation counter and level recorded on the
// next save.
func (s *Store) SetMetadata(consolidations uint64, level string) {
	s.meta.Consolidations = consolidations
	s.meta.Level = level
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("persistence.init: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY,
			vector TEXT NOT NULL,
			amplitude REAL NOT NULL,
			frequency REAL NOT NULL,
			phase REAL NOT NULL,
			decay_rate REAL NOT NULL,
			created_at DATETIME NOT NULL,
			layer INTEGER NOT NULL,
			links TEXT,
			content TEXT NOT NULL,
			hallucinated INTEGER NOT NULL DEFAULT 0,
			parent_ids TEXT,
			category TEXT,
			coordinates TEXT,
			xi_signature TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("persistence.init: %w", err)
	}

	version, err := s.metaInt(ctx, "version")
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		// Fresh file.
		now := time.Now().UTC()
		s.meta = Metadata{
			StoreID:   uuid.NewString(),
			CreatedAt: now,
			Level:     "dormant",
		}
		if err := s.setMeta(ctx, "version", strconv.Itoa(CurrentVersion)); err != nil {
			return err
		}
		return s.writeMetadata(ctx)
	case version > CurrentVersion:
		return fmt.Errorf("persistence.init: %w: file version %d, supported %d",
			ErrVersionMismatch, version, CurrentVersion)
	case version < CurrentVersion:
		if err := s.migrate(ctx, version); err != nil {
			return err
		}
	}

	return s.readMetadata(ctx)
}

// migrate upgrades older snapshot schemas in place. Version 1 lacked the
// xi_signature column; records keep empty signatures until the engine
// recomputes them.
func (s *Store) migrate(ctx context.Context, from int) error {
	if from == 1 {
		if _, err := s.db.ExecContext(ctx,
			`ALTER TABLE memories ADD COLUMN xi_signature TEXT`); err != nil {
			return fmt.Errorf("persistence.migrate: %w", err)
		}
	}
	return s.setMeta(ctx, "version", strconv.Itoa(CurrentVersion))
}

// Save writes the given records and codebook parameters, replacing any
// previous snapshot contents in one transaction.
func (s *Store) Save(ctx context.Context, memories []*memory.Memory, params Params) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memories
		(id, vector, amplitude, frequency, phase, decay_rate, created_at,
		 layer, links, content, hallucinated, parent_ids, category,
		 coordinates, xi_signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range memories {
		row, err := encodeRow(m)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, row.vector, m.Wave.Amplitude, m.Wave.Frequency,
			m.Wave.Phase, m.Wave.DecayRate, m.CreatedAt.UTC(), m.Layer,
			row.links, m.Content, boolToInt(m.Hallucinated), row.parents,
			m.Category, row.coordinates, row.xiSignature,
		); err != nil {
			return fmt.Errorf("persistence.Save: memory %d: %w", m.ID, err)
		}
	}

	s.meta.LastSavedAt = time.Now().UTC()
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}
	metaRows := map[string]string{
		"version":         strconv.Itoa(CurrentVersion),
		"codebook_params": string(paramsJSON),
	}
	for key, value := range metaRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
			key, value); err != nil {
			return fmt.Errorf("persistence.Save: %w", err)
		}
	}
	metaJSON, err := json.Marshal(s.meta)
	if err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('metadata', ?)`,
		string(metaJSON)); err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persistence.Save: %w", err)
	}
	return nil
}

// Load reads every record plus the codebook parameters the snapshot was
// written with.
func (s *Store) Load(ctx context.Context) ([]*memory.Memory, Params, error) {
	var params Params
	value, err := s.metaValue(ctx, "codebook_params")
	if err != nil {
		return nil, Params{}, err
	}
	if value != "" {
		if err := json.Unmarshal([]byte(value), &params); err != nil {
			return nil, Params{}, fmt.Errorf("persistence.Load: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector, amplitude, frequency, phase, decay_rate,
		       created_at, layer, links, content, hallucinated, parent_ids,
		       category, coordinates, xi_signature
		FROM memories ORDER BY id
	`)
	if err != nil {
		return nil, Params{}, fmt.Errorf("persistence.Load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*memory.Memory
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, Params{}, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, Params{}, fmt.Errorf("persistence.Load: %w", err)
	}
	return memories, params, nil
}

type encodedRow struct {
	vector      string
	links       sql.NullString
	parents     sql.NullString
	coordinates sql.NullString
	xiSignature sql.NullString
}

func encodeRow(m *memory.Memory) (encodedRow, error) {
	var row encodedRow

	vector, err := json.Marshal(m.Vector)
	if err != nil {
		return row, fmt.Errorf("persistence: encode memory %d: %w", m.ID, err)
	}
	row.vector = string(vector)

	if len(m.Links) > 0 {
		links, err := json.Marshal(m.Links)
		if err != nil {
			return row, fmt.Errorf("persistence: encode memory %d: %w", m.ID, err)
		}
		row.links = sql.NullString{String: string(links), Valid: true}
	}
	if len(m.ParentIDs) > 0 {
		parents, err := json.Marshal(m.ParentIDs)
		if err != nil {
			return row, fmt.Errorf("persistence: encode memory %d: %w", m.ID, err)
		}
		row.parents = sql.NullString{String: string(parents), Valid: true}
	}
	if m.Coordinates != nil {
		coords, err := json.Marshal(m.Coordinates)
		if err != nil {
			return row, fmt.Errorf("persistence: encode memory %d: %w", m.ID, err)
		}
		row.coordinates = sql.NullString{String: string(coords), Valid: true}
	}
	if len(m.XiSignature) > 0 {
		xi, err := json.Marshal(m.XiSignature)
		if err != nil {
			return row, fmt.Errorf("persistence: encode memory %d: %w", m.ID, err)
		}
		row.xiSignature = sql.NullString{String: string(xi), Valid: true}
	}
	return row, nil
}

func scanRow(rows *sql.Rows) (*memory.Memory, error) {
	var (
		m           memory.Memory
		vector      string
		hallucinate int
		links       sql.NullString
		parents     sql.NullString
		category    sql.NullString
		coordinates sql.NullString
		xiSignature sql.NullString
	)
	if err := rows.Scan(&m.ID, &vector, &m.Wave.Amplitude, &m.Wave.Frequency,
		&m.Wave.Phase, &m.Wave.DecayRate, &m.CreatedAt, &m.Layer, &links,
		&m.Content, &hallucinate, &parents, &category, &coordinates,
		&xiSignature); err != nil {
		return nil, fmt.Errorf("persistence.Load: %w", err)
	}

	if err := json.Unmarshal([]byte(vector), &m.Vector); err != nil {
		return nil, fmt.Errorf("persistence.Load: memory %d: %w", m.ID, err)
	}
	m.Hallucinated = hallucinate != 0
	m.Category = category.String
	if links.Valid {
		if err := json.Unmarshal([]byte(links.String), &m.Links); err != nil {
			return nil, fmt.Errorf("persistence.Load: memory %d: %w", m.ID, err)
		}
	}
	if parents.Valid {
		if err := json.Unmarshal([]byte(parents.String), &m.ParentIDs); err != nil {
			return nil, fmt.Errorf("persistence.Load: memory %d: %w", m.ID, err)
		}
	}
	if coordinates.Valid {
		if err := json.Unmarshal([]byte(coordinates.String), &m.Coordinates); err != nil {
			return nil, fmt.Errorf("persistence.Load: memory %d: %w", m.ID, err)
		}
	}
	if xiSignature.Valid {
		if err := json.Unmarshal([]byte(xiSignature.String), &m.XiSignature); err != nil {
			return nil, fmt.Errorf("persistence.Load: memory %d: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (s *Store) metaValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("persistence: read meta %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) metaInt(ctx context.Context, key string) (int, error) {
	value, err := s.metaValue(ctx, key)
	if err != nil || value == "" {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("persistence: parse meta %q: %w", key, err)
	}
	return n, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("persistence: write meta %q: %w", key, err)
	}
	return nil
}

func (s *Store) writeMetadata(ctx context.Context) error {
	metaJSON, err := json.Marshal(s.meta)
	if err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	return s.setMeta(ctx, "metadata", string(metaJSON))
}

func (s *Store) readMetadata(ctx context.Context) error {
	value, err := s.metaValue(ctx, "metadata")
	if err != nil {
		return err
	}
	if value == "" {
		s.meta = Metadata{StoreID: uuid.NewString(), CreatedAt: time.Now().UTC(), Level: "dormant"}
		return s.writeMetadata(ctx)
	}
	if err := json.Unmarshal([]byte(value), &s.meta); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
