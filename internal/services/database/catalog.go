package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"course-eligibility-engine/internal/models"
)

// CatalogRepository handles course, requirement and tag storage.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListRequirements returns requirement records in their original file order.
func (r *CatalogRepository) ListRequirements(ctx context.Context) ([]*models.RequirementRecord, error) {
	query := `
		SELECT course_id, min_credits, subject_rules, req_malaysian, req_male, req_female,
			no_colorblind, no_disability, merit_cutoff::float8, complex_requirements,
			unsatisfiable, integrity
		FROM course_requirements
		ORDER BY position, course_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	var records []*models.RequirementRecord
	for rows.Next() {
		record, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanRequirement(row pgx.Row) (*models.RequirementRecord, error) {
	var (
		record                            models.RequirementRecord
		rulesJSON, complexJSON, integJSON []byte
		merit                             *float64
	)

	err := row.Scan(
		&record.CourseID,
		&record.MinCredits,
		&rulesJSON,
		&record.ReqMalaysian,
		&record.ReqMale,
		&record.ReqFemale,
		&record.NoColorblind,
		&record.NoDisability,
		&merit,
		&complexJSON,
		&record.Unsatisfiable,
		&integJSON,
	)
	if err != nil {
		return nil, err
	}

	if merit != nil {
		record.MeritCutoff = models.KnownScore(*merit)
	} else {
		record.MeritCutoff = models.UnknownScore()
	}

	if err := unmarshalIfPresent(rulesJSON, &record.SubjectRules); err != nil {
		return nil, fmt.Errorf("course %s subject_rules: %w", record.CourseID, err)
	}
	if err := unmarshalIfPresent(integJSON, &record.Integrity); err != nil {
		return nil, fmt.Errorf("course %s integrity: %w", record.CourseID, err)
	}
	if err := unmarshalIfPresent(complexJSON, &record.ComplexRequirements); err != nil {
		return nil, fmt.Errorf("course %s complex_requirements: %w", record.CourseID, err)
	}
	for _, g := range record.ComplexRequirements {
		if err := g.Validate(); err != nil {
			record.Unsatisfiable = true
			record.Integrity = append(record.Integrity, err.Error())
		}
	}

	return &record, nil
}

func unmarshalIfPresent(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// ListCourses returns all course metadata.
func (r *CatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	query := `
		SELECT course_id, name, level, field, source_type
		FROM courses
		ORDER BY course_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		var source string
		if err := rows.Scan(&c.CourseID, &c.Name, &c.Level, &c.Field, &source); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		c.SourceType = models.SourceType(source)
		courses = append(courses, c)
	}

	return courses, rows.Err()
}

// ListTags returns the tag catalog.
func (r *CatalogRepository) ListTags(ctx context.Context) (models.TagCatalog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT course_id, signal, weight FROM course_tags`)
	if err != nil {
		return nil, fmt.Errorf("failed to query course tags: %w", err)
	}
	defer rows.Close()

	tags := make(models.TagCatalog)
	for rows.Next() {
		var courseID, signal string
		var weight float64
		if err := rows.Scan(&courseID, &signal, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan course tag: %w", err)
		}
		if tags[courseID] == nil {
			tags[courseID] = make(models.TagProfile)
		}
		tags[courseID][signal] = weight
	}

	return tags, rows.Err()
}

// ImportStats reports how many rows ReplaceCatalog wrote.
type ImportStats struct {
	Requirements int `json:"requirements"`
	Courses      int `json:"courses"`
	Tags         int `json:"tags"`
}

// ReplaceCatalog swaps the stored catalog for the given data in one transaction.
func (r *CatalogRepository) ReplaceCatalog(ctx context.Context, requirements []*models.RequirementRecord, courses []models.Course, tags models.TagCatalog) (*ImportStats, error) {
	stats := &ImportStats{}
	now := time.Now().UTC()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{"course_tags", "course_requirements", "courses"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, c := range courses {
			_, err := tx.Exec(ctx, `
				INSERT INTO courses (course_id, name, level, field, source_type, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				c.CourseID, c.Name, c.Level, c.Field, string(c.SourceType), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert course %s: %w", c.CourseID, err)
			}
			stats.Courses++
		}

		for i, rec := range requirements {
			if err := insertRequirement(ctx, tx, i, rec, now); err != nil {
				return err
			}
			stats.Requirements++
		}

		for courseID, profile := range tags {
			for signal, weight := range profile {
				_, err := tx.Exec(ctx,
					`INSERT INTO course_tags (course_id, signal, weight) VALUES ($1, $2, $3)`,
					courseID, signal, weight,
				)
				if err != nil {
					return fmt.Errorf("failed to insert tag %s/%s: %w", courseID, signal, err)
				}
				stats.Tags++
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func insertRequirement(ctx context.Context, tx pgx.Tx, position int, rec *models.RequirementRecord, now time.Time) error {
	rulesJSON, err := json.Marshal(nonNil(rec.SubjectRules))
	if err != nil {
		return fmt.Errorf("failed to marshal subject rules: %w", err)
	}
	complexJSON, err := json.Marshal(nonNil(rec.ComplexRequirements))
	if err != nil {
		return fmt.Errorf("failed to marshal complex requirements: %w", err)
	}
	integJSON, err := json.Marshal(nonNil(rec.Integrity))
	if err != nil {
		return fmt.Errorf("failed to marshal integrity notes: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO course_requirements (
			course_id, position, min_credits, subject_rules, req_malaysian, req_male, req_female,
			no_colorblind, no_disability, merit_cutoff, complex_requirements, unsatisfiable,
			integrity, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.CourseID,
		position,
		rec.MinCredits,
		string(rulesJSON),
		rec.ReqMalaysian,
		rec.ReqMale,
		rec.ReqFemale,
		rec.NoColorblind,
		rec.NoDisability,
		rec.MeritCutoff.Ptr(),
		string(complexJSON),
		rec.Unsatisfiable,
		string(integJSON),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert requirement %s: %w", rec.CourseID, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
