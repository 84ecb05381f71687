// Package matcher runs the recommendation pipeline: quiz signals, eligibility,
// fit ranking and insights against the current catalog snapshot.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/eligibility"
	"course-eligibility-engine/internal/services/insights"
	"course-eligibility-engine/internal/services/quiz"
	"course-eligibility-engine/internal/services/ranking"
	"course-eligibility-engine/internal/services/ses"
	"course-eligibility-engine/internal/utils"
)

// ResultCache stores encoded recommendations.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	Create(ctx context.Context, run *models.RunSummary) error
}

// Mailer sends result summaries.
type Mailer interface {
	SendResultsSummary(ctx context.Context, params ses.SummaryParams) (*ses.SendEmailResult, error)
}

// KeyFunc derives a cache key from a catalog version and request.
type KeyFunc func(snapshotVersion string, request any) (string, error)

// Service handles the recommendation pipeline
type Service struct {
	store     *catalog.Store
	evaluator *eligibility.Evaluator
	logger    *zap.Logger

	cache    ResultCache
	cacheKey KeyFunc
	runs     RunRecorder
	mailer   Mailer
	now      func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithCache enables result caching.
func WithCache(c ResultCache, key KeyFunc) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheKey = key
	}
}

// WithRunRecorder enables run persistence.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.runs = r }
}

// WithMailer enables summary emails for requests that carry an address.
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new matcher service
func NewService(store *catalog.Store, policy eligibility.Policy, logger *zap.Logger, opts ...Option) *Service {
	logger = utils.OrNop(logger)
	s := &Service{
		store:     store,
		evaluator: eligibility.NewEvaluator(policy, logger),
		logger:    logger.With(zap.String("component", "matcher")),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is one student's recommendation request.
type Request struct {
	Student  models.Student  `json:"student"`
	Answers  []models.Answer `json:"answers"`
	Language string          `json:"lang,omitempty"`
	Email    string          `json:"email,omitempty"`
}

// cacheable is the part of a request that determines its result.
type cacheable struct {
	Student  models.Student  `json:"student"`
	Answers  []models.Answer `json:"answers"`
	Language string          `json:"lang"`
}

// Recommendation is the full pipeline output.
type Recommendation struct {
	RunID            string              `json:"run_id"`
	SnapshotVersion  string              `json:"snapshot_version"`
	Language         string              `json:"lang"`
	EligibleCount    int                 `json:"eligible_count"`
	Quiz             *quiz.Result        `json:"quiz"`
	Ranked           models.RankedResult `json:"ranked"`
	Insights         models.Insights     `json:"insights"`
	ProcessingMillis int64               `json:"processing_ms"`
	Cached           bool                `json:"cached"`
}

// Recommend runs the full pipeline. Quiz answers are validated before any
// evaluation; a *models.ValidationError is returned for malformed answers.
func (s *Service) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	startTime := s.now()

	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	bank := snap.Banks.Edition(req.Language)
	lang := bank.Language

	// Stage 1: quiz signals
	quizResult, err := quiz.NewProcessor(bank, s.logger).Process(req.Answers)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stage 1 complete: Quiz signals",
		zap.String("lang", lang),
		zap.Int("answers", len(req.Answers)),
		zap.Int("strong", countStrength(quizResult.SignalStrength, models.StrengthStrong)),
	)

	key := s.lookupKey(snap.Version, req, lang)
	if cached := s.fromCache(ctx, key); cached != nil {
		s.notify(ctx, req.Email, cached)
		return cached, nil
	}

	// Stage 2: eligibility
	eligible := s.evaluator.EvaluateAll(req.Student, snap.Requirements, snap.Courses)

	s.logger.Info("Stage 2 complete: Eligibility",
		zap.Int("requirements", len(snap.Requirements)),
		zap.Int("eligible", len(eligible)),
		zap.Int("filtered_out", len(snap.Requirements)-len(eligible)),
	)

	// Stage 3: fit ranking
	ranked := ranking.NewRanker(snap.Tags, lang, s.logger).Rank(eligible, quizResult.StudentSignals)

	s.logger.Info("Stage 3 complete: Fit ranking",
		zap.Int("top", len(ranked.Top5)),
		zap.Int("rest", len(ranked.Rest)),
	)

	// Stage 4: insights
	aggregator, err := insights.NewAggregator(lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create insights aggregator: %w", err)
	}
	summary := aggregator.Generate(eligible)

	rec := &Recommendation{
		RunID:            uuid.NewString(),
		SnapshotVersion:  snap.Version,
		Language:         lang,
		EligibleCount:    len(eligible),
		Quiz:             quizResult,
		Ranked:           ranked,
		Insights:         summary,
		ProcessingMillis: s.now().Sub(startTime).Milliseconds(),
	}

	s.logger.Info("Recommendation pipeline complete",
		zap.String("run_id", rec.RunID),
		zap.String("snapshot_version", rec.SnapshotVersion),
		zap.Int("eligible", rec.EligibleCount),
		zap.Int64("processing_ms", rec.ProcessingMillis),
	)

	s.record(ctx, rec, startTime)
	s.toCache(ctx, key, rec)
	s.notify(ctx, req.Email, rec)

	return rec, nil
}

func (s *Service) lookupKey(version string, req Request, lang string) string {
	if s.cache == nil || s.cacheKey == nil {
		return ""
	}
	key, err := s.cacheKey(version, cacheable{Student: req.Student, Answers: req.Answers, Language: lang})
	if err != nil {
		s.logger.Warn("Failed to derive cache key", zap.Error(err))
		return ""
	}
	return key
}

func (s *Service) fromCache(ctx context.Context, key string) *Recommendation {
	if key == "" {
		return nil
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache lookup failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var rec Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Discarding unreadable cache entry", zap.Error(err))
		return nil
	}
	rec.Cached = true

	s.logger.Info("Recommendation served from cache", zap.String("run_id", rec.RunID))
	return &rec
}

func (s *Service) toCache(ctx context.Context, key string, rec *Recommendation) {
	if key == "" {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("Failed to encode recommendation for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("Cache store failed", zap.Error(err))
	}
}

// record persists a run summary. Failures are logged and never fail the request.
func (s *Service) record(ctx context.Context, rec *Recommendation, at time.Time) {
	if s.runs == nil {
		return
	}

	top := make([]string, 0, len(rec.Ranked.Top5))
	for _, c := range rec.Ranked.Top5 {
		top = append(top, c.CourseID)
	}

	run := &models.RunSummary{
		ID:               rec.RunID,
		SnapshotVersion:  rec.SnapshotVersion,
		Language:         rec.Language,
		EligibleCount:    rec.EligibleCount,
		TopCourseIDs:     top,
		StrongSignals:    signalsWith(rec.Quiz.SignalStrength, models.StrengthStrong),
		ProcessingMillis: rec.ProcessingMillis,
		CreatedAt:        at.UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("Failed to record recommendation run", zap.String("run_id", rec.RunID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, email string, rec *Recommendation) {
	if s.mailer == nil || strings.TrimSpace(email) == "" {
		return
	}
	_, err := s.mailer.SendResultsSummary(ctx, ses.SummaryParams{
		To:          email,
		Language:    rec.Language,
		RunID:       rec.RunID,
		SummaryText: rec.Insights.SummaryText,
		TopCourses:  rec.Ranked.Top5,
	})
	if err != nil {
		s.logger.Warn("Failed to send results summary", zap.String("run_id", rec.RunID), zap.Error(err))
	}
}

func countStrength(strength models.SignalStrength, level string) int {
	n := 0
	for _, v := range strength {
		if v == level {
			n++
		}
	}
	return n
}
