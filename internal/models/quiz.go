// Package models defines the data structures for the course eligibility engine.
package models

// SignalCategory groups related preference signals.
type SignalCategory string

const (
	CategoryWorkPreference    SignalCategory = "work_preference"
	CategoryLearningTolerance SignalCategory = "learning_tolerance"
	CategoryEnvironment       SignalCategory = "environment"
	CategoryValueTradeoff     SignalCategory = "value_tradeoff"
	CategoryEnergySensitivity SignalCategory = "energy_sensitivity"
)

// SignalCategories returns the five fixed categories in canonical order.
func SignalCategories() []SignalCategory {
	return []SignalCategory{
		CategoryWorkPreference,
		CategoryLearningTolerance,
		CategoryEnvironment,
		CategoryValueTradeoff,
		CategoryEnergySensitivity,
	}
}

// IsValid checks if the category is one of the fixed five.
func (c SignalCategory) IsValid() bool {
	for _, valid := range SignalCategories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Option is one answer choice and the signals it contributes.
type Option struct {
	Text    string                            `json:"text" yaml:"text"`
	Signals map[SignalCategory]map[string]int `json:"signals" yaml:"signals"`
}

// Question is a quiz question with ordered options.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []Option `json:"options" yaml:"options"`
}

// Answer is one submitted quiz answer. QuestionID is empty when the client left it out.
type Answer struct {
	QuestionID  string `json:"question_id"`
	OptionIndex int    `json:"option_index"`
}

// SignalProfile is the accumulated signal score per category.
type SignalProfile map[SignalCategory]map[string]int

// NewSignalProfile returns a profile with every category present and empty.
func NewSignalProfile() SignalProfile {
	p := make(SignalProfile, len(SignalCategories()))
	for _, c := range SignalCategories() {
		p[c] = make(map[string]int)
	}
	return p
}

// Add folds one option's contribution into the profile.
func (p SignalProfile) Add(contribution map[SignalCategory]map[string]int) {
	for category, signals := range contribution {
		if p[category] == nil {
			p[category] = make(map[string]int)
		}
		for signal, weight := range signals {
			p[category][signal] += weight
		}
	}
}

// Total returns the summed score of a signal across categories.
func (p SignalProfile) Total(signal string) int {
	total := 0
	for _, signals := range p {
		total += signals[signal]
	}
	return total
}

// Signal strength classes.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
)

// SignalStrength classifies each positive signal as strong or moderate.
type SignalStrength map[string]string
