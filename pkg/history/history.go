package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/tokopt/pkg/models"
)

// Store records and queries analysis history.
type Store interface {
	// Record stores an analysis record and its per-model rows, returning the stored ID.
	Record(ctx context.Context, rec models.AnalysisRecord) (string, error)
	// List returns records created at or after since, newest first. limit <= 0 means no limit.
	List(ctx context.Context, since time.Time, limit int) ([]models.AnalysisRecord, error)
	// Get returns a single record with its per-model rows.
	Get(ctx context.Context, id string) (models.AnalysisRecord, error)
	// ModelTotals aggregates per-model rows of records created at or after since.
	ModelTotals(ctx context.Context, since time.Time) ([]models.ModelTotal, error)
	// Prune deletes records created before the cutoff and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createAnalysesTable = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	current_cost REAL NOT NULL,
	potential_savings REAL NOT NULL,
	optimization_score REAL NOT NULL,
	recommendation_count INTEGER NOT NULL,
	total_input_tokens INTEGER NOT NULL,
	total_output_tokens INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_time ON analyses(created_at);
`

const createModelUsageTable = `
CREATE TABLE IF NOT EXISTS model_usage (
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	input_cost REAL NOT NULL,
	output_cost REAL NOT NULL,
	cost REAL NOT NULL,
	PRIMARY KEY (analysis_id, model)
);
`

// New opens a SQLiteStore and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createAnalysesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	if _, err := db.Exec(createModelUsageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate model_usage table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func newID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// Record stores an analysis record and its per-model rows in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, rec models.AnalysisRecord) (string, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.ID == "" {
		rec.ID = newID(rec.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record analysis: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, run_id, source, current_cost, potential_savings, optimization_score,
		 recommendation_count, total_input_tokens, total_output_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Source, rec.CurrentCost, rec.PotentialSavings, rec.OptimizationScore,
		rec.RecommendationCount, rec.TotalInputTokens, rec.TotalOutputTokens, rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record analysis: %w", err)
	}

	for _, m := range rec.Models {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO model_usage (analysis_id, model, input_tokens, output_tokens, input_cost, output_cost, cost)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, m.Model, m.InputTokens, m.OutputTokens, m.InputCost, m.OutputCost, m.Cost,
		)
		if err != nil {
			return "", fmt.Errorf("record model usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record analysis: %w", err)
	}
	return rec.ID, nil
}

const selectAnalysis = `SELECT id, run_id, source, current_cost, potential_savings, optimization_score,
	recommendation_count, total_input_tokens, total_output_tokens, created_at FROM analyses`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.AnalysisRecord, error) {
	var r models.AnalysisRecord
	err := row.Scan(&r.ID, &r.RunID, &r.Source, &r.CurrentCost, &r.PotentialSavings, &r.OptimizationScore,
		&r.RecommendationCount, &r.TotalInputTokens, &r.TotalOutputTokens, &r.CreatedAt)
	return r, err
}

// List returns analysis records since a given time, newest first.
// Per-model rows are not loaded; use Get for a single record's detail.
func (s *SQLiteStore) List(ctx context.Context, since time.Time, limit int) ([]models.AnalysisRecord, error) {
	query := selectAnalysis + ` WHERE created_at >= ? ORDER BY created_at DESC, id DESC`
	args := []any{since.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns a single analysis record including its per-model rows.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.AnalysisRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectAnalysis+` WHERE id = ?`, id))
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("get analysis %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT model, input_tokens, output_tokens, input_cost, output_cost, cost
		 FROM model_usage WHERE analysis_id = ? ORDER BY model`,
		id,
	)
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("get model usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ModelCost
		if err := rows.Scan(&m.Model, &m.InputTokens, &m.OutputTokens, &m.InputCost, &m.OutputCost, &m.Cost); err != nil {
			return models.AnalysisRecord{}, fmt.Errorf("scan model usage: %w", err)
		}
		r.Models = append(r.Models, m)
	}
	return r, rows.Err()
}

// ModelTotals returns per-model usage aggregated across analyses since a given time.
func (s *SQLiteStore) ModelTotals(ctx context.Context, since time.Time) ([]models.ModelTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.model, COUNT(*), SUM(m.input_tokens), SUM(m.output_tokens), SUM(m.cost)
		 FROM model_usage m JOIN analyses a ON a.id = m.analysis_id
		 WHERE a.created_at >= ?
		 GROUP BY m.model ORDER BY m.model`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("model totals: %w", err)
	}
	defer rows.Close()

	var totals []models.ModelTotal
	for rows.Next() {
		var t models.ModelTotal
		if err := rows.Scan(&t.Model, &t.Analyses, &t.InputTokens, &t.OutputTokens, &t.Cost); err != nil {
			return nil, fmt.Errorf("scan model total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Prune removes analyses created before the cutoff along with their model rows.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := before.UTC()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM model_usage WHERE analysis_id IN (SELECT id FROM analyses WHERE created_at < ?)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("prune model usage: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
