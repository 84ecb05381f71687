// Package models defines the data structures for the course eligibility engine.
package models

import (
	"strings"
)

// Gender of the student as used by req_male/req_female rules.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// NormalizeGender converts common gender spellings to standard values.
func NormalizeGender(s string) Gender {
	normalized := strings.ToLower(strings.TrimSpace(s))

	genderMap := map[string]Gender{
		"male":      GenderMale,
		"m":         GenderMale,
		"lelaki":    GenderMale,
		"l":         GenderMale,
		"female":    GenderFemale,
		"f":         GenderFemale,
		"perempuan": GenderFemale,
		"p":         GenderFemale,
	}

	if mapped, ok := genderMap[normalized]; ok {
		return mapped
	}
	return ""
}

// Student is the per-request input to eligibility evaluation.
// Nil attribute pointers mean the student did not say.
type Student struct {
	Grades       GradeRecord   `json:"grades"`
	MeritScore   OptionalScore `json:"merit_score"`
	Cocurricular *float64      `json:"cocurricular,omitempty"`
	IsMalaysian  *bool         `json:"is_malaysian,omitempty"`
	Gender       Gender        `json:"gender,omitempty"`
	ColorBlind   *bool         `json:"color_blind,omitempty"`
	Disability   *bool         `json:"disability,omitempty"`
}

// Normalize cleans grade codes and gender. Invalid grade entries are returned.
func (s Student) Normalize() (Student, []string) {
	grades, invalid := s.Grades.Normalize()
	s.Grades = grades
	s.Gender = NormalizeGender(string(s.Gender))
	return s, invalid
}
