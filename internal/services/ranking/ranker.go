// Package ranking orders eligible courses by how well they fit a student's signals.
package ranking

import (
	"sort"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/utils"
)

// TopN is the size of the highlighted group.
const TopN = 5

// MinReasonContribution is the score x weight a signal must exceed to be given as a reason.
const MinReasonContribution = 0.5

// Ranker scores courses against the tag catalog.
type Ranker struct {
	tags     models.TagCatalog
	language string
	logger   *zap.Logger
}

// NewRanker creates a ranker whose fit reasons are written in language.
func NewRanker(tags models.TagCatalog, language string, logger *zap.Logger) *Ranker {
	return &Ranker{
		tags:     tags,
		language: language,
		logger:   utils.OrNop(logger).With(zap.String("component", "ranking")),
	}
}

// WithLanguage returns a ranker sharing the catalog with reasons in another language.
func (r *Ranker) WithLanguage(language string) *Ranker {
	out := *r
	out.language = language
	return &out
}

type contribution struct {
	signal string
	value  float64
}

// Rank scores every course and splits them into the top five and the rest.
// Equal scores keep their input order. Courses without tags score 0.
func (r *Ranker) Rank(courses []models.EligibleCourse, profile models.SignalProfile) models.RankedResult {
	signals := orderedSignals(profile)

	ranked := make([]models.RankedCourse, len(courses))
	for i, course := range courses {
		ranked[i] = r.score(course, signals)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FitScore > ranked[j].FitScore
	})

	n := TopN
	if len(ranked) < n {
		n = len(ranked)
	}

	result := models.RankedResult{
		Top5: make([]models.RankedCourse, n),
		Rest: make([]models.RankedCourse, len(ranked)-n),
	}
	copy(result.Top5, ranked[:n])
	copy(result.Rest, ranked[n:])

	return result
}

// signalScore is one (signal, accumulated score) pair of the profile.
type signalScore struct {
	signal string
	score  int
}

// orderedSignals flattens the profile in canonical category order and signal
// name order, so float sums are always added up the same way.
func orderedSignals(profile models.SignalProfile) []signalScore {
	categories := models.SignalCategories()
	known := make(map[models.SignalCategory]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}

	var extra []models.SignalCategory
	for c := range profile {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	categories = append(categories, extra...)

	var out []signalScore
	for _, c := range categories {
		names := make([]string, 0, len(profile[c]))
		for name := range profile[c] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, signalScore{signal: name, score: profile[c][name]})
		}
	}
	return out
}

func (r *Ranker) score(course models.EligibleCourse, signals []signalScore) models.RankedCourse {
	ranked := models.RankedCourse{
		EligibleCourse: course,
		FitReasons:     []string{},
	}

	tags, ok := r.tags.Lookup(course.CourseID)
	if !ok {
		r.logger.Warn("Course has no tag profile",
			zap.String("course_id", course.CourseID),
		)
		return ranked
	}

	bySignal := make(map[string]float64)
	var order []string
	for _, s := range signals {
		weight, ok := tags.Weight(s.signal)
		if !ok {
			continue
		}
		c := float64(s.score) * weight
		ranked.FitScore += c
		if _, seen := bySignal[s.signal]; !seen {
			order = append(order, s.signal)
		}
		bySignal[s.signal] += c
	}

	var reasons []contribution
	for _, signal := range order {
		if v := bySignal[signal]; v > MinReasonContribution {
			reasons = append(reasons, contribution{signal: signal, value: v})
		}
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].value != reasons[j].value {
			return reasons[i].value > reasons[j].value
		}
		return reasons[i].signal < reasons[j].signal
	})

	for _, c := range reasons {
		ranked.FitReasons = append(ranked.FitReasons, Phrase(r.language, c.signal))
	}

	return ranked
}
