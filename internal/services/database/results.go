package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"course-eligibility-engine/internal/models"
)

// ResultRepository stores recommendation run summaries.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create inserts a run summary.
func (r *ResultRepository) Create(ctx context.Context, run *models.RunSummary) error {
	topJSON, err := json.Marshal(nonNil(run.TopCourseIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal top course ids: %w", err)
	}
	signalsJSON, err := json.Marshal(nonNil(run.StrongSignals))
	if err != nil {
		return fmt.Errorf("failed to marshal strong signals: %w", err)
	}

	query := `
		INSERT INTO recommendation_runs (
			id, snapshot_version, language, eligible_count, top_course_ids,
			strong_signals, processing_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.SnapshotVersion,
		run.Language,
		run.EligibleCount,
		string(topJSON),
		string(signalsJSON),
		run.ProcessingMillis,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recommendation run: %w", err)
	}

	return nil
}

// GetByID retrieves a run summary. A missing run, or an id that is not a
// UUID, returns nil without error.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.RunSummary, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `
		SELECT id::text, snapshot_version, language, eligible_count, top_course_ids,
			strong_signals, processing_ms, created_at
		FROM recommendation_runs
		WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation run: %w", err)
	}

	return run, nil
}

// ListRecent returns the newest runs first.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]*models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id::text, snapshot_version, language, eligible_count, top_course_ids,
			strong_signals, processing_ms, created_at
		FROM recommendation_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.RunSummary, error) {
	var run models.RunSummary
	var topJSON, signalsJSON []byte

	err := row.Scan(
		&run.ID,
		&run.SnapshotVersion,
		&run.Language,
		&run.EligibleCount,
		&topJSON,
		&signalsJSON,
		&run.ProcessingMillis,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalIfPresent(topJSON, &run.TopCourseIDs); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(signalsJSON, &run.StrongSignals); err != nil {
		return nil, err
	}

	return &run, nil
}
