// Package models defines the data structures for the course eligibility engine.
package models

// SourceType identifies the institution stream offering a course.
type SourceType string

const (
	SourceTypePoly   SourceType = "poly"
	SourceTypeTVET   SourceType = "tvet"
	SourceTypeUA     SourceType = "ua"
	SourceTypePISMP  SourceType = "pismp"
	SourceTypeKK     SourceType = "kk"
	SourceTypeMatric SourceType = "matric"
	SourceTypeSTPM   SourceType = "stpm"

	// SourceTypeUnknown groups courses whose metadata has no source type.
	SourceTypeUnknown SourceType = "unknown"
)

// Course is the metadata of a study programme.
type Course struct {
	CourseID   string     `json:"course_id" yaml:"course_id" db:"course_id"`
	Name       string     `json:"name" yaml:"name" db:"name"`
	Level      string     `json:"level" yaml:"level" db:"level"`
	Field      string     `json:"field" yaml:"field" db:"field"`
	SourceType SourceType `json:"source_type" yaml:"source_type" db:"source_type"`
}

// TagProfile maps signal names to how strongly a course satisfies them.
type TagProfile map[string]float64

// Weight returns the weight of a signal, and whether the tag map names it.
func (t TagProfile) Weight(signal string) (float64, bool) {
	w, ok := t[signal]
	return w, ok
}

// TagCatalog maps course ids to tag profiles.
type TagCatalog map[string]TagProfile

// Lookup returns the tag profile of a course, and whether the catalog has one.
func (c TagCatalog) Lookup(courseID string) (TagProfile, bool) {
	t, ok := c[courseID]
	return t, ok
}

// MeritLabel buckets a student's merit against a course cutoff.
type MeritLabel string

const (
	MeritLabelHigh   MeritLabel = "High"
	MeritLabelFair   MeritLabel = "Fair"
	MeritLabelLow    MeritLabel = "Low"
	MeritLabelNoData MeritLabel = "no_data"
)

// Merit label colors shown next to each course.
const (
	MeritColorHigh   = "#22c55e"
	MeritColorFair   = "#f59e0b"
	MeritColorLow    = "#ef4444"
	MeritColorNoData = "#9ca3af"
)

// Color returns the display color of the label.
func (l MeritLabel) Color() string {
	switch l {
	case MeritLabelHigh:
		return MeritColorHigh
	case MeritLabelFair:
		return MeritColorFair
	case MeritLabelLow:
		return MeritColorLow
	default:
		return MeritColorNoData
	}
}

// EligibleCourse is a course the student qualifies for, with its merit annotation.
type EligibleCourse struct {
	Course
	MeritCutoff  OptionalScore `json:"merit_cutoff"`
	StudentMerit OptionalScore `json:"student_merit"`
	MeritLabel   MeritLabel    `json:"merit_label"`
	MeritColor   string        `json:"merit_color"`
}
