package eligibility

import (
	"math"

	"course-eligibility-engine/internal/models"
)

// Merit score composition.
const (
	AcademicWeight     = 90.0
	MaxCocurricular    = 10.0
	meritDecimalPlaces = 100.0
)

// ComputeMerit derives a merit score from grades when the student did not supply one.
// The academic part is the mean grade points of attempted subjects scaled to 90,
// plus the co-curricular mark clamped to 0-10. No valid grades means unknown.
func ComputeMerit(grades models.GradeRecord, cocurricular *float64) models.OptionalScore {
	var total float64
	attempted := 0
	for _, grade := range grades {
		points, ok := grade.Points()
		if !ok {
			continue
		}
		total += points
		attempted++
	}
	if attempted == 0 {
		return models.UnknownScore()
	}

	score := total / float64(attempted) / models.MaxGradePoints * AcademicWeight
	if cocurricular != nil && !math.IsNaN(*cocurricular) {
		score += math.Max(0, math.Min(MaxCocurricular, *cocurricular))
	}

	return models.KnownScore(math.Round(score*meritDecimalPlaces) / meritDecimalPlaces)
}

// StudentMerit returns the supplied merit score, or one computed from grades.
func StudentMerit(student models.Student) models.OptionalScore {
	if student.MeritScore.Known {
		return student.MeritScore
	}
	return ComputeMerit(student.Grades, student.Cocurricular)
}

// MeritLabel buckets merit against cutoff. Either side unknown gives no_data.
func (p Policy) MeritLabel(merit, cutoff models.OptionalScore) models.MeritLabel {
	if !merit.Known || !cutoff.Known {
		return models.MeritLabelNoData
	}
	switch {
	case merit.Value >= cutoff.Value:
		return models.MeritLabelHigh
	case merit.Value >= cutoff.Value-p.FairBand:
		return models.MeritLabelFair
	default:
		return models.MeritLabelLow
	}
}
