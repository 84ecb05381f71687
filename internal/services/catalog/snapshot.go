// Package catalog loads the read-only data every evaluation runs against and
// swaps it atomically on reload.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/quiz"
)

// Warning kinds.
const (
	WarnRequirementIntegrity = "requirement_integrity"
	WarnRequirementRow       = "requirement_row"
	WarnMissingCourse        = "missing_course"
	WarnMissingTags          = "missing_tags"
	WarnOrphanTags           = "orphan_tags"
)

// Warning is a data integrity problem found while loading. Warnings never fail a load.
type Warning struct {
	Kind     string `json:"kind"`
	CourseID string `json:"course_id,omitempty"`
	Detail   string `json:"detail"`
}

// RawData is what a Source returns before the snapshot is assembled.
type RawData struct {
	Requirements []*models.RequirementRecord
	RowErrors    []error
	Courses      []models.Course
	Tags         models.TagCatalog
	// Banks may be empty, in which case the embedded editions are used.
	Banks []*quiz.Bank
}

// Snapshot is an immutable view of requirements, courses, tags and quiz banks.
type Snapshot struct {
	Version      string                      `json:"version"`
	Source       string                      `json:"source"`
	LoadedAt     time.Time                   `json:"loaded_at"`
	Requirements []*models.RequirementRecord `json:"-"`
	Courses      map[string]models.Course    `json:"-"`
	Tags         models.TagCatalog           `json:"-"`
	Banks        *quiz.Banks                 `json:"-"`
	Warnings     []Warning                   `json:"warnings"`
}

// Requirement returns the requirement record of a course.
func (s *Snapshot) Requirement(courseID string) (*models.RequirementRecord, bool) {
	for _, r := range s.Requirements {
		if r.CourseID == courseID {
			return r, true
		}
	}
	return nil, false
}

// Course returns course metadata by id.
func (s *Snapshot) Course(courseID string) (models.Course, bool) {
	c, ok := s.Courses[courseID]
	return c, ok
}

// Stats summarizes the snapshot for health output and logs.
type Stats struct {
	Version      string `json:"version"`
	Source       string `json:"source"`
	Requirements int    `json:"requirements"`
	Courses      int    `json:"courses"`
	Tagged       int    `json:"tagged"`
	Languages    int    `json:"languages"`
	Warnings     int    `json:"warnings"`
}

// Stats returns counts for the snapshot.
func (s *Snapshot) Stats() Stats {
	langs := 0
	if s.Banks != nil {
		langs = len(s.Banks.Languages())
	}
	return Stats{
		Version:      s.Version,
		Source:       s.Source,
		Requirements: len(s.Requirements),
		Courses:      len(s.Courses),
		Tagged:       len(s.Tags),
		Languages:    langs,
		Warnings:     len(s.Warnings),
	}
}

// Build assembles a snapshot, collecting integrity warnings. Question bank
// editions that disagree fail the build.
func Build(source string, raw *RawData, defaultLang string, logger *zap.Logger) (*Snapshot, error) {
	var banks *quiz.Banks
	var err error
	if len(raw.Banks) > 0 {
		banks, err = quiz.NewBanks(raw.Banks, defaultLang)
	} else {
		banks, err = quiz.DefaultBanks(defaultLang)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question banks: %w", err)
	}

	snap := &Snapshot{
		Source:       source,
		LoadedAt:     time.Now().UTC(),
		Requirements: raw.Requirements,
		Courses:      make(map[string]models.Course, len(raw.Courses)),
		Tags:         raw.Tags,
		Banks:        banks,
	}
	if snap.Tags == nil {
		snap.Tags = models.TagCatalog{}
	}
	for _, c := range raw.Courses {
		snap.Courses[c.CourseID] = c
	}

	snap.Warnings = integrityWarnings(raw, snap)
	snap.Version, err = version(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to compute catalog version: %w", err)
	}

	if logger != nil {
		for _, w := range snap.Warnings {
			logger.Warn("Catalog data integrity warning",
				zap.String("kind", w.Kind),
				zap.String("course_id", w.CourseID),
				zap.String("detail", w.Detail),
			)
		}
	}

	return snap, nil
}

func integrityWarnings(raw *RawData, snap *Snapshot) []Warning {
	warnings := make([]Warning, 0)

	for _, err := range raw.RowErrors {
		warnings = append(warnings, Warning{Kind: WarnRequirementRow, Detail: err.Error()})
	}

	required := make(map[string]bool, len(raw.Requirements))
	for _, r := range raw.Requirements {
		required[r.CourseID] = true
		for _, note := range r.Integrity {
			warnings = append(warnings, Warning{Kind: WarnRequirementIntegrity, CourseID: r.CourseID, Detail: note})
		}
		if _, ok := snap.Courses[r.CourseID]; !ok {
			warnings = append(warnings, Warning{Kind: WarnMissingCourse, CourseID: r.CourseID, Detail: "requirement has no course metadata"})
		}
		if _, ok := snap.Tags[r.CourseID]; !ok {
			warnings = append(warnings, Warning{Kind: WarnMissingTags, CourseID: r.CourseID, Detail: "course has no tag profile"})
		}
	}

	orphans := make([]string, 0)
	for id := range snap.Tags {
		if !required[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		warnings = append(warnings, Warning{Kind: WarnOrphanTags, CourseID: id, Detail: "tag profile for unknown course"})
	}

	return warnings
}

// version hashes the content so identical data always gets the same version.
func version(snap *Snapshot) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)

	values := []interface{}{snap.Requirements}

	ids := make([]string, 0, len(snap.Courses))
	for id := range snap.Courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		values = append(values, snap.Courses[id])
	}

	// json sorts map keys, so the tag catalog encodes deterministically
	values = append(values, snap.Tags)

	for _, lang := range snap.Banks.Languages() {
		b := snap.Banks.Edition(lang)
		values = append(values, lang, b.Version, b.Questions())
	}

	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil))[:12], nil
}
