// Package models defines the data structures for the course eligibility engine.
package models

import (
	"sort"
	"strings"
)

// Grade is an SPM examination grade code.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeD      Grade = "D"
	GradeE      Grade = "E"
	GradeG      Grade = "G"
)

// gradeScale lists every grade from best to fail. Position defines the order.
var gradeScale = []Grade{
	GradeAPlus,
	GradeA,
	GradeAMinus,
	GradeBPlus,
	GradeB,
	GradeCPlus,
	GradeC,
	GradeD,
	GradeE,
	GradeG,
}

// gradePoints are the points used when deriving an academic merit score.
var gradePoints = map[Grade]float64{
	GradeAPlus:  18,
	GradeA:      16,
	GradeAMinus: 14,
	GradeBPlus:  12,
	GradeB:      10,
	GradeCPlus:  8,
	GradeC:      6,
	GradeD:      4,
	GradeE:      2,
	GradeG:      0,
}

// MaxGradePoints is the point value of the best grade.
const MaxGradePoints = 18.0

// GradeScale returns the grade scale ordered from best to fail.
func GradeScale() []Grade {
	out := make([]Grade, len(gradeScale))
	copy(out, gradeScale)
	return out
}

// ParseGrade normalizes a grade code such as " a- " into a Grade.
func ParseGrade(s string) (Grade, bool) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if g.IsValid() {
		return g, true
	}
	return "", false
}

// IsValid checks if the grade is on the scale.
func (g Grade) IsValid() bool {
	return g.rank() >= 0
}

// rank returns the position on the scale (0 = best) or -1 when unknown.
func (g Grade) rank() int {
	for i, valid := range gradeScale {
		if g == valid {
			return i
		}
	}
	return -1
}

// AtLeast reports whether g is at or above threshold. Unknown grades never qualify.
func (g Grade) AtLeast(threshold Grade) bool {
	r, t := g.rank(), threshold.rank()
	if r < 0 || t < 0 {
		return false
	}
	return r <= t
}

// Points returns the merit points for the grade.
func (g Grade) Points() (float64, bool) {
	p, ok := gradePoints[g]
	return p, ok
}

// GradeRecord maps subject codes to grades. A missing subject was not attempted.
type GradeRecord map[string]Grade

// Lookup returns the grade for a subject, normalizing the subject code.
func (r GradeRecord) Lookup(subject string) (Grade, bool) {
	g, ok := r[NormalizeSubject(subject)]
	return g, ok
}

// Meets reports whether the subject was attempted with at least the threshold grade.
func (r GradeRecord) Meets(subject string, threshold Grade) bool {
	g, ok := r.Lookup(subject)
	if !ok {
		return false
	}
	return g.AtLeast(threshold)
}

// CountAtLeast counts the attempted subjects at or above threshold.
func (r GradeRecord) CountAtLeast(threshold Grade) int {
	count := 0
	for _, g := range r {
		if g.AtLeast(threshold) {
			count++
		}
	}
	return count
}

// Normalize returns a copy with normalized subject codes and only valid grades.
// When several spellings map to one subject the best grade is kept. Invalid
// entries and the losing spellings are reported back, sorted by subject code.
func (r GradeRecord) Normalize() (GradeRecord, []string) {
	subjects := make([]string, 0, len(r))
	for subject := range r {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	out := make(GradeRecord, len(r))
	from := make(map[string]string, len(r))
	var ignored []string
	for _, subject := range subjects {
		g, ok := ParseGrade(string(r[subject]))
		if !ok {
			ignored = append(ignored, subject)
			continue
		}

		canonical := NormalizeSubject(subject)
		if current, seen := out[canonical]; seen {
			if current.AtLeast(g) {
				ignored = append(ignored, subject)
				continue
			}
			ignored = append(ignored, from[canonical])
		}
		out[canonical] = g
		from[canonical] = subject
	}
	sort.Strings(ignored)
	return out, ignored
}

// subjectAliases maps common spellings to canonical subject codes.
var subjectAliases = map[string]string{
	"bahasa_melayu":      "bm",
	"malay":              "bm",
	"english":            "eng",
	"bi":                 "eng",
	"bahasa_inggeris":    "eng",
	"mathematics":        "math",
	"matematik":          "math",
	"maths":              "math",
	"additional_math":    "addmath",
	"add_math":           "addmath",
	"matematik_tambahan": "addmath",
	"history":            "hist",
	"sejarah":            "hist",
	"science":            "sci",
	"sains":              "sci",
	"physics":            "phy",
	"fizik":              "phy",
	"chemistry":          "chem",
	"kimia":              "chem",
	"biology":            "bio",
	"biologi":            "bio",
	"moral":              "pm",
	"pendidikan_moral":   "pm",
	"pendidikan_islam":   "pi",
	"islamic_studies":    "pi",
}

// NormalizeSubject converts a subject code to its canonical lower-case form.
func NormalizeSubject(subject string) string {
	normalized := strings.ToLower(strings.TrimSpace(subject))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	if canonical, ok := subjectAliases[normalized]; ok {
		return canonical
	}
	return normalized
}
