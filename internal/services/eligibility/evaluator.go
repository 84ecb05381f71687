// Package eligibility decides which courses a student qualifies for.
package eligibility

import (
	"fmt"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/utils"
)

// Failed check names that are not subject rules.
const (
	CheckMinCredits    = "min_credits"
	CheckReqMalaysian  = "req_malaysian"
	CheckReqMale       = "req_male"
	CheckReqFemale     = "req_female"
	CheckNoColorblind  = "no_colorblind"
	CheckNoDisability  = "no_disability"
	CheckUnsatisfiable = "unsatisfiable"
)

// Policy holds the grade thresholds and merit banding.
type Policy struct {
	PassThreshold        models.Grade
	CreditThreshold      models.Grade
	DistinctionThreshold models.Grade
	// FairBand is how far below the cutoff a merit score still counts as Fair.
	FairBand float64
}

// DefaultPolicy returns E for pass, C for credit, A- for distinction and a 5 point Fair band.
func DefaultPolicy() Policy {
	return Policy{
		PassThreshold:        models.GradeE,
		CreditThreshold:      models.GradeC,
		DistinctionThreshold: models.GradeAMinus,
		FairBand:             5.0,
	}
}

// NewPolicy builds a policy from configured grade codes.
func NewPolicy(credit, distinction string, fairBand float64) (Policy, error) {
	p := DefaultPolicy()
	if credit != "" {
		g, ok := models.ParseGrade(credit)
		if !ok {
			return Policy{}, fmt.Errorf("credit threshold: %w: %q", models.ErrInvalidGrade, credit)
		}
		p.CreditThreshold = g
	}
	if distinction != "" {
		g, ok := models.ParseGrade(distinction)
		if !ok {
			return Policy{}, fmt.Errorf("distinction threshold: %w: %q", models.ErrInvalidGrade, distinction)
		}
		p.DistinctionThreshold = g
	}
	p.FairBand = fairBand
	return p, p.Validate()
}

// Validate checks that distinction is at least credit and credit at least pass.
func (p Policy) Validate() error {
	if !p.CreditThreshold.AtLeast(p.PassThreshold) {
		return fmt.Errorf("credit threshold %s is below pass threshold %s", p.CreditThreshold, p.PassThreshold)
	}
	if !p.DistinctionThreshold.AtLeast(p.CreditThreshold) {
		return fmt.Errorf("distinction threshold %s is below credit threshold %s", p.DistinctionThreshold, p.CreditThreshold)
	}
	if p.FairBand < 0 {
		return fmt.Errorf("fair band must not be negative")
	}
	return nil
}

// Threshold returns the grade a subject rule level asks for.
func (p Policy) Threshold(level models.SubjectLevel) (models.Grade, bool) {
	switch level {
	case models.SubjectLevelPass:
		return p.PassThreshold, true
	case models.SubjectLevelCredit:
		return p.CreditThreshold, true
	case models.SubjectLevelDistinction:
		return p.DistinctionThreshold, true
	default:
		return "", false
	}
}

// Result is the outcome of evaluating one requirement record.
type Result struct {
	CourseID     string               `json:"course_id"`
	Eligible     bool                 `json:"eligible"`
	MeritLabel   models.MeritLabel    `json:"merit_label"`
	MeritColor   string               `json:"merit_color"`
	StudentMerit models.OptionalScore `json:"student_merit"`
	FailedChecks []string             `json:"failed_checks,omitempty"`
}

// Evaluator applies admission rules to a student.
type Evaluator struct {
	policy Policy
	logger *zap.Logger
}

// NewEvaluator creates an evaluator. A nil logger disables logging.
func NewEvaluator(policy Policy, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		policy: policy,
		logger: utils.OrNop(logger).With(zap.String("component", "eligibility")),
	}
}

// Policy returns the evaluator's policy.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate checks one requirement record. It never fails: malformed data makes
// the course ineligible or its merit label no_data.
func (e *Evaluator) Evaluate(student models.Student, req *models.RequirementRecord) Result {
	student, _ = student.Normalize()
	return e.evaluate(student, StudentMerit(student), req)
}

// EvaluateAll returns the courses the student is eligible for, in repository order.
// Courses without metadata are kept with only their id.
func (e *Evaluator) EvaluateAll(student models.Student, requirements []*models.RequirementRecord, courses map[string]models.Course) []models.EligibleCourse {
	student, invalid := student.Normalize()
	if len(invalid) > 0 {
		e.logger.Debug("Ignoring invalid or duplicate grades", zap.Strings("subjects", invalid))
	}
	merit := StudentMerit(student)

	eligible := make([]models.EligibleCourse, 0)
	for _, req := range requirements {
		if req == nil {
			continue
		}
		result := e.evaluate(student, merit, req)
		if !result.Eligible {
			continue
		}

		course, ok := courses[req.CourseID]
		if !ok {
			e.logger.Warn("Course metadata missing",
				zap.String("course_id", req.CourseID),
			)
			course = models.Course{CourseID: req.CourseID}
		}

		eligible = append(eligible, models.EligibleCourse{
			Course:       course,
			MeritCutoff:  req.MeritCutoff,
			StudentMerit: merit,
			MeritLabel:   result.MeritLabel,
			MeritColor:   result.MeritColor,
		})
	}

	e.logger.Debug("Eligibility evaluated",
		zap.Int("requirements", len(requirements)),
		zap.Int("eligible", len(eligible)),
	)

	return eligible
}

// evaluate expects a normalized student.
func (e *Evaluator) evaluate(student models.Student, merit models.OptionalScore, req *models.RequirementRecord) Result {
	var failed []string

	if req.Unsatisfiable {
		failed = append(failed, CheckUnsatisfiable)
	}

	if student.Grades.CountAtLeast(e.policy.CreditThreshold) < req.MinCredits {
		failed = append(failed, CheckMinCredits)
	}

	for _, rule := range req.SubjectRules {
		threshold, ok := e.policy.Threshold(rule.Level)
		if !ok || !student.Grades.Meets(rule.Subject, threshold) {
			failed = append(failed, rule.Key())
		}
	}

	failed = append(failed, e.checkFlags(student, req)...)

	for i, group := range req.ComplexRequirements {
		if !orGroupSatisfied(student.Grades, group) {
			failed = append(failed, fmt.Sprintf("or_group[%d]", i))
		}
	}

	label := e.policy.MeritLabel(merit, req.MeritCutoff)

	return Result{
		CourseID:     req.CourseID,
		Eligible:     len(failed) == 0,
		MeritLabel:   label,
		MeritColor:   label.Color(),
		StudentMerit: merit,
		FailedChecks: failed,
	}
}

// checkFlags compares demographic and medical flags. An attribute the student
// did not state never satisfies a requirement on it.
func (e *Evaluator) checkFlags(student models.Student, req *models.RequirementRecord) []string {
	var failed []string

	if req.ReqMalaysian && (student.IsMalaysian == nil || !*student.IsMalaysian) {
		failed = append(failed, CheckReqMalaysian)
	}
	if req.ReqMale && student.Gender != models.GenderMale {
		failed = append(failed, CheckReqMale)
	}
	if req.ReqFemale && student.Gender != models.GenderFemale {
		failed = append(failed, CheckReqFemale)
	}
	if req.NoColorblind && (student.ColorBlind == nil || *student.ColorBlind) {
		failed = append(failed, CheckNoColorblind)
	}
	if req.NoDisability && (student.Disability == nil || *student.Disability) {
		failed = append(failed, CheckNoDisability)
	}

	return failed
}

// orGroupSatisfied counts listed subjects at the group grade. Duplicate
// subjects in the list count once.
func orGroupSatisfied(grades models.GradeRecord, group models.ORGroup) bool {
	seen := make(map[string]bool, len(group.Subjects))
	met := 0
	for _, subject := range group.Subjects {
		if seen[subject] {
			continue
		}
		seen[subject] = true
		if grades.Meets(subject, group.Grade) {
			met++
			if met >= group.Count {
				return true
			}
		}
	}
	return false
}
