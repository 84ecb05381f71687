package matcher

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/eligibility"
	"course-eligibility-engine/internal/services/insights"
	"course-eligibility-engine/internal/services/quiz"
)

// QuestionSet is one language edition of the quiz.
type QuestionSet struct {
	Language  string            `json:"lang"`
	Version   string            `json:"version"`
	Languages []string          `json:"languages"`
	Questions []models.Question `json:"questions"`
}

// Questions returns the quiz in the best matching language.
func (s *Service) Questions(lang string) (*QuestionSet, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	bank := snap.Banks.Edition(lang)
	return &QuestionSet{
		Language:  bank.Language,
		Version:   bank.Version,
		Languages: snap.Banks.Languages(),
		Questions: bank.Questions(),
	}, nil
}

// QuizReport is the processed quiz without eligibility.
type QuizReport struct {
	Language string `json:"lang"`
	*quiz.Result
}

// SubmitQuiz validates and folds answers.
func (s *Service) SubmitQuiz(_ context.Context, lang string, answers []models.Answer) (*QuizReport, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	bank := snap.Banks.Edition(lang)

	result, err := quiz.NewProcessor(bank, s.logger).Process(answers)
	if err != nil {
		return nil, err
	}
	return &QuizReport{Language: bank.Language, Result: result}, nil
}

// EligibilityReport lists eligible courses and why the others were rejected.
type EligibilityReport struct {
	SnapshotVersion string                  `json:"snapshot_version"`
	StudentMerit    models.OptionalScore    `json:"student_merit"`
	Eligible        []models.EligibleCourse `json:"eligible"`
	Ineligible      []eligibility.Result    `json:"ineligible"`
	Insights        models.Insights         `json:"insights"`
}

// CheckEligibility evaluates every course without ranking.
func (s *Service) CheckEligibility(_ context.Context, student models.Student, lang string) (*EligibilityReport, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}

	report := &EligibilityReport{
		SnapshotVersion: snap.Version,
		StudentMerit:    eligibility.StudentMerit(normalized(student)),
		Eligible:        s.evaluator.EvaluateAll(student, snap.Requirements, snap.Courses),
		Ineligible:      make([]eligibility.Result, 0),
	}
	for _, req := range snap.Requirements {
		if result := s.evaluator.Evaluate(student, req); !result.Eligible {
			report.Ineligible = append(report.Ineligible, result)
		}
	}

	aggregator, err := insights.NewAggregator(lang)
	if err != nil {
		return nil, err
	}
	report.Insights = aggregator.Generate(report.Eligible)

	s.logger.Info("Eligibility check complete",
		zap.Int("eligible", len(report.Eligible)),
		zap.Int("ineligible", len(report.Ineligible)),
	)

	return report, nil
}

// Reload refreshes the catalog snapshot.
func (s *Service) Reload(ctx context.Context) (catalog.Stats, error) {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return catalog.Stats{}, err
	}
	return snap.Stats(), nil
}

// Stats describes the active snapshot.
func (s *Service) Stats() (catalog.Stats, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return catalog.Stats{}, err
	}
	return snap.Stats(), nil
}

func normalized(student models.Student) models.Student {
	out, _ := student.Normalize()
	return out
}

// signalsWith returns the signals at a strength level, sorted.
func signalsWith(strength models.SignalStrength, level string) []string {
	out := make([]string, 0)
	for signal, v := range strength {
		if v == level {
			out = append(out, signal)
		}
	}
	sort.Strings(out)
	return out
}
