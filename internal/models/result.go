// Package models defines the data structures for the course eligibility engine.
package models

import (
	"time"
)

// RankedCourse is an eligible course with its fit score and reasons.
type RankedCourse struct {
	EligibleCourse
	FitScore   float64  `json:"fit_score"`
	FitReasons []string `json:"fit_reasons"`
}

// RankedResult splits ranked courses into the top five and the remainder.
type RankedResult struct {
	Top5 []RankedCourse `json:"top_5"`
	Rest []RankedCourse `json:"rest"`
}

// All returns the full ranked list in order.
func (r RankedResult) All() []RankedCourse {
	all := make([]RankedCourse, 0, len(r.Top5)+len(r.Rest))
	all = append(all, r.Top5...)
	all = append(all, r.Rest...)
	return all
}

// RunSummary is the persisted record of one recommendation run.
type RunSummary struct {
	ID               string    `json:"id" db:"id"`
	SnapshotVersion  string    `json:"snapshot_version" db:"snapshot_version"`
	Language         string    `json:"language" db:"language"`
	EligibleCount    int       `json:"eligible_count" db:"eligible_count"`
	TopCourseIDs     []string  `json:"top_course_ids" db:"top_course_ids"`
	StrongSignals    []string  `json:"strong_signals" db:"strong_signals"`
	ProcessingMillis int64     `json:"processing_ms" db:"processing_ms"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
