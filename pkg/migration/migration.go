// Package migration imports existing relational data into the memory
// engine, back-filling rows as memories at a chosen layer and amplitude.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/engine"
)

// ErrMigrationSource indicates a source table that could not be read.
var ErrMigrationSource = errors.New("migration source unreadable")

// Source describes one relational table to import.
type Source struct {
	// Driver is the database/sql driver name (sqlite3, mysql, postgres).
	// The driver must be linked into the binary.
	Driver string `json:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `json:"dsn"`

	// Table is the table to read.
	Table string `json:"table"`

	// Columns are the text columns concatenated into each memory's content,
	// in order.
	Columns []string `json:"columns"`

	// Layer is the temporal layer migrated memories land on. Historical
	// material usually belongs on a deeper layer than fresh input.
	Layer int `json:"layer"`

	// Amplitude is the initial wave amplitude for migrated memories.
	Amplitude float64 `json:"amplitude"`
}

// Report summarizes one table's import.
type Report struct {
	// Table is the source table.
	Table string `json:"table"`

	// Rows is the number of rows read.
	Rows int `json:"rows"`

	// Migrated is the number of memories created.
	Migrated int `json:"migrated"`

	// Skipped counts rows with no usable text or that failed to encode.
	Skipped int `json:"skipped"`

	// Err records a table-level failure; nil on success.
	Err error `json:"-"`
}

// Migrator feeds relational rows through the engine's encoding path.
type Migrator struct {
	eng    *engine.Engine
	logger *zap.Logger
}

// New creates a migrator. logger may be nil.
func New(eng *engine.Engine, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{eng: eng, logger: logger}
}

// FromTable imports one table through an open database handle.
//
// Each row's text columns are concatenated with single spaces; rows whose
// concatenation is empty are skipped, as are rows the encoder rejects. A
// table that cannot be queried fails with ErrMigrationSource.
//
// Parameters:
//   - ctx: Context for cancellation
//   - db: Open database handle
//   - table: Table name
//   - columns: Text columns to concatenate, in order
//   - layer: Target temporal layer
//   - amplitude: Initial wave amplitude
//
// Returns a Report with row counts, and an error on table-level failure.
func (m *Migrator) FromTable(ctx context.Context, db *sql.DB, table string, columns []string, layer int, amplitude float64) (Report, error) {
	report := Report{Table: table}
	if len(columns) == 0 {
		report.Err = fmt.Errorf("migration: table %s: %w: no columns", table, ErrMigrationSource)
		return report, report.Err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		report.Err = fmt.Errorf("migration: table %s: %w: %v", table, ErrMigrationSource, err)
		return report, report.Err
	}
	defer func() { _ = rows.Close() }()

	values := make([]sql.NullString, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			report.Err = fmt.Errorf("migration: table %s: %w: %v", table, ErrMigrationSource, err)
			return report, report.Err
		}
		report.Rows++

		parts := make([]string, 0, len(values))
		for _, v := range values {
			if v.Valid && strings.TrimSpace(v.String) != "" {
				parts = append(parts, strings.TrimSpace(v.String))
			}
		}
		content := strings.Join(parts, " ")
		if content == "" {
			report.Skipped++
			continue
		}

		if _, err := m.eng.RememberAtLayer(ctx, content, layer, amplitude); err != nil {
			m.logger.Warn("row skipped",
				zap.String("table", table),
				zap.Error(err),
			)
			report.Skipped++
			continue
		}
		report.Migrated++
	}
	if err := rows.Err(); err != nil {
		report.Err = fmt.Errorf("migration: table %s: %w: %v", table, ErrMigrationSource, err)
		return report, report.Err
	}

	m.logger.Info("table migrated",
		zap.String("table", table),
		zap.Int("rows", report.Rows),
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// FromSource opens the source's connection, imports its table, and closes
// the connection.
func (m *Migrator) FromSource(ctx context.Context, src Source) (Report, error) {
	db, err := sql.Open(src.Driver, src.DSN)
	if err != nil {
		report := Report{Table: src.Table}
		report.Err = fmt.Errorf("migration: table %s: %w: %v", src.Table, ErrMigrationSource, err)
		return report, report.Err
	}
	defer func() { _ = db.Close() }()

	return m.FromTable(ctx, db, src.Table, src.Columns, src.Layer, src.Amplitude)
}

// Run imports every source in order. A failed table is recorded in its
// report and does not stop the remaining tables.
func (m *Migrator) Run(ctx context.Context, sources []Source) []Report {
	reports := make([]Report, 0, len(sources))
	for _, src := range sources {
		report, err := m.FromSource(ctx, src)
		if err != nil {
			m.logger.Warn("table failed",
				zap.String("table", src.Table),
				zap.Error(err),
			)
		}
		reports = append(reports, report)
	}
	return reports
}
