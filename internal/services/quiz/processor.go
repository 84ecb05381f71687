package quiz

import (
	"fmt"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/utils"
)

// Strength thresholds.
const (
	StrongScore   = 2
	ModerateScore = 1
)

// Result is the processed quiz.
type Result struct {
	StudentSignals models.SignalProfile  `json:"student_signals"`
	SignalStrength models.SignalStrength `json:"signal_strength"`
}

// Processor folds answers against one bank edition.
type Processor struct {
	bank   *Bank
	logger *zap.Logger
}

// NewProcessor creates a processor for a bank edition.
func NewProcessor(bank *Bank, logger *zap.Logger) *Processor {
	return &Processor{
		bank:   bank,
		logger: utils.OrNop(logger).With(zap.String("component", "quiz")),
	}
}

// Process validates every answer, then accumulates the chosen options' signals.
// Validation errors are *models.ValidationError wrapping the quiz sentinels.
func (p *Processor) Process(answers []models.Answer) (*Result, error) {
	if len(answers) == 0 {
		return nil, models.NewValidationError(-1, models.ErrNoAnswers, "")
	}

	chosen := make([]models.Option, 0, len(answers))
	for i, a := range answers {
		opt, err := p.resolve(i, a)
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, opt)
	}

	profile := models.NewSignalProfile()
	for _, opt := range chosen {
		profile.Add(opt.Signals)
	}

	strength := Classify(profile)

	p.logger.Debug("Quiz processed",
		zap.String("language", p.bank.Language),
		zap.Int("answers", len(answers)),
		zap.Int("signals", len(strength)),
	)

	return &Result{
		StudentSignals: profile,
		SignalStrength: strength,
	}, nil
}

func (p *Processor) resolve(i int, a models.Answer) (models.Option, error) {
	if a.QuestionID == "" {
		return models.Option{}, models.NewValidationError(i, models.ErrMissingQuestionID, "")
	}

	q, ok := p.bank.Question(a.QuestionID)
	if !ok {
		return models.Option{}, models.NewValidationError(i, models.ErrUnknownQuestionID, a.QuestionID)
	}

	if a.OptionIndex < 0 || a.OptionIndex >= len(q.Options) {
		return models.Option{}, models.NewValidationError(i, models.ErrOptionOutOfRange,
			fmt.Sprintf("%s has %d options, got %d", q.ID, len(q.Options), a.OptionIndex))
	}

	return q.Options[a.OptionIndex], nil
}

// Classify marks signals scoring 2 or more as strong and exactly 1 as moderate.
// Signals at 0 or below are left out. A signal named in several categories is
// classified on its summed score.
func Classify(profile models.SignalProfile) models.SignalStrength {
	strength := make(models.SignalStrength)
	for _, signals := range profile {
		for signal := range signals {
			if _, done := strength[signal]; done {
				continue
			}
			switch total := profile.Total(signal); {
			case total >= StrongScore:
				strength[signal] = models.StrengthStrong
			case total == ModerateScore:
				strength[signal] = models.StrengthModerate
			}
		}
	}
	return strength
}
