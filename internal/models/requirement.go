// Package models defines the data structures for the course eligibility engine.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SubjectLevel is the grade threshold a named subject rule asks for.
type SubjectLevel string

const (
	SubjectLevelPass        SubjectLevel = "pass"
	SubjectLevelCredit      SubjectLevel = "credit"
	SubjectLevelDistinction SubjectLevel = "distinction"
)

// ValidSubjectLevels returns all subject levels ordered from weakest to strongest.
func ValidSubjectLevels() []SubjectLevel {
	return []SubjectLevel{
		SubjectLevelPass,
		SubjectLevelCredit,
		SubjectLevelDistinction,
	}
}

// IsValid checks if the subject level is valid.
func (l SubjectLevel) IsValid() bool {
	for _, valid := range ValidSubjectLevels() {
		if l == valid {
			return true
		}
	}
	return false
}

// SubjectRule requires one subject at a level, e.g. credit_math.
type SubjectRule struct {
	Subject string       `json:"subject" yaml:"subject"`
	Level   SubjectLevel `json:"level" yaml:"level"`
}

// Key returns the flag name the rule was loaded from.
func (r SubjectRule) Key() string {
	return string(r.Level) + "_" + r.Subject
}

// ORGroup is satisfied when at least Count of Subjects meet Grade.
type ORGroup struct {
	Count    int      `json:"count" yaml:"count"`
	Grade    Grade    `json:"grade" yaml:"grade"`
	Subjects []string `json:"subjects" yaml:"subjects"`
}

// Validate checks the structural sanity of an OR-group.
func (g ORGroup) Validate() error {
	if len(g.Subjects) == 0 {
		return ErrEmptyORGroup
	}
	if g.Count < 1 || g.Count > len(g.Subjects) {
		return fmt.Errorf("%w: count %d with %d subjects", ErrInvalidORGroupCount, g.Count, len(g.Subjects))
	}
	if !g.Grade.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidGrade, g.Grade)
	}
	return nil
}

// OptionalScore is a numeric value with an explicit unknown state.
type OptionalScore struct {
	Value float64
	Known bool
}

// KnownScore returns a known score.
func KnownScore(v float64) OptionalScore {
	return OptionalScore{Value: v, Known: true}
}

// UnknownScore returns the unknown state.
func UnknownScore() OptionalScore {
	return OptionalScore{}
}

// Ptr returns nil for unknown, for JSON output.
func (s OptionalScore) Ptr() *float64 {
	if !s.Known {
		return nil
	}
	v := s.Value
	return &v
}

// MarshalJSON encodes unknown as null.
func (s OptionalScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ptr())
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (s *OptionalScore) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*s = KnownScore(v)
	case string:
		*s = ParseScore(v)
	default:
		*s = UnknownScore()
	}
	return nil
}

// ParseScore coerces merit values such as "85.5", "85.5%" or "85,5" into a score.
// Anything unparsable is unknown.
func ParseScore(raw string) OptionalScore {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "null") {
		return UnknownScore()
	}

	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return UnknownScore()
	}
	return KnownScore(v)
}

// RequirementRecord holds the admission rules of one course.
type RequirementRecord struct {
	CourseID            string        `json:"course_id"`
	MinCredits          int           `json:"min_credits"`
	SubjectRules        []SubjectRule `json:"subject_rules,omitempty"`
	ReqMalaysian        bool          `json:"req_malaysian"`
	ReqMale             bool          `json:"req_male"`
	ReqFemale           bool          `json:"req_female"`
	NoColorblind        bool          `json:"no_colorblind"`
	NoDisability        bool          `json:"no_disability"`
	MeritCutoff         OptionalScore `json:"merit_cutoff"`
	ComplexRequirements []ORGroup     `json:"complex_requirements,omitempty"`

	// Integrity lists data problems found while loading the record.
	Integrity []string `json:"integrity,omitempty"`
	// Unsatisfiable is set when a rule could not be read (an unparsable
	// OR-group clause or min_credits). Such a record never admits anyone.
	Unsatisfiable bool `json:"unsatisfiable,omitempty"`
}

// complexDocument is the embedded structured text format of OR-groups.
// Both a bare list and an object with an "or_groups" key are accepted.
type complexDocument struct {
	ORGroups []ORGroup `json:"or_groups"`
}

// ParseComplexRequirements parses and validates the OR-group clause of a record.
func ParseComplexRequirements(raw string) ([]ORGroup, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "[]" || s == "{}" || strings.EqualFold(s, "null") {
		return nil, nil
	}

	var groups []ORGroup
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &groups); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidComplexRequirements, err)
		}
	} else {
		var doc complexDocument
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidComplexRequirements, err)
		}
		groups = doc.ORGroups
	}

	for i := range groups {
		grade, ok := ParseGrade(string(groups[i].Grade))
		if ok {
			groups[i].Grade = grade
		}
		for j, subject := range groups[i].Subjects {
			groups[i].Subjects[j] = NormalizeSubject(subject)
		}
		if err := groups[i].Validate(); err != nil {
			return nil, fmt.Errorf("or_group[%d]: %w", i, err)
		}
	}

	return groups, nil
}

// HasRule reports whether the record names a subject rule for subject at level.
func (r *RequirementRecord) HasRule(subject string, level SubjectLevel) bool {
	subject = NormalizeSubject(subject)
	for _, rule := range r.SubjectRules {
		if rule.Subject == subject && rule.Level == level {
			return true
		}
	}
	return false
}

// AddRule adds a subject rule, ignoring duplicates.
func (r *RequirementRecord) AddRule(subject string, level SubjectLevel) {
	subject = NormalizeSubject(subject)
	if r.HasRule(subject, level) {
		return
	}
	r.SubjectRules = append(r.SubjectRules, SubjectRule{Subject: subject, Level: level})
}
