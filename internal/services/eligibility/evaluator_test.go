package eligibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/eligibility"
)

func boolPtr(b bool) *bool { return &b }

func newEvaluator() *eligibility.Evaluator {
	return eligibility.NewEvaluator(eligibility.DefaultPolicy(), nil)
}

func TestEvaluate_SubjectRules(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "POLY-01"}
	req.AddRule("bm", models.SubjectLevelPass)
	req.AddRule("math", models.SubjectLevelCredit)
	req.AddRule("phy", models.SubjectLevelDistinction)

	tests := []struct {
		name   string
		grades models.GradeRecord
		failed []string
	}{
		{
			name:   "all met",
			grades: models.GradeRecord{"bm": "E", "math": "C", "phy": "A-"},
		},
		{
			name:   "pass boundary fails at G",
			grades: models.GradeRecord{"bm": "G", "math": "C", "phy": "A"},
			failed: []string{"pass_bm"},
		},
		{
			name:   "credit boundary fails at D",
			grades: models.GradeRecord{"bm": "A", "math": "D", "phy": "A+"},
			failed: []string{"credit_math"},
		},
		{
			name:   "distinction boundary fails at B+",
			grades: models.GradeRecord{"bm": "A", "math": "A", "phy": "B+"},
			failed: []string{"distinction_phy"},
		},
		{
			name:   "unattempted subject fails",
			grades: models.GradeRecord{"math": "A"},
			failed: []string{"pass_bm", "distinction_phy"},
		},
	}

	evaluator := newEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluator.Evaluate(models.Student{Grades: tt.grades}, req)
			assert.Equal(t, len(tt.failed) == 0, result.Eligible)
			assert.Equal(t, tt.failed, result.FailedChecks)
		})
	}
}

func TestEvaluate_GradeCodesAreNormalized(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "UA-01"}
	req.AddRule("math", models.SubjectLevelCredit)

	result := newEvaluator().Evaluate(models.Student{Grades: models.GradeRecord{"Mathematics": " b+ "}}, req)
	assert.True(t, result.Eligible)
}

func TestEvaluate_MinCreditsCountsAnySubject(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "TVET-01", MinCredits: 3}

	evaluator := newEvaluator()

	three := models.GradeRecord{"art": "C", "geo": "B", "pm": "A", "bm": "D"}
	assert.True(t, evaluator.Evaluate(models.Student{Grades: three}, req).Eligible)

	two := models.GradeRecord{"art": "C", "geo": "B", "pm": "D", "bm": "D"}
	result := evaluator.Evaluate(models.Student{Grades: two}, req)
	assert.False(t, result.Eligible)
	assert.Equal(t, []string{eligibility.CheckMinCredits}, result.FailedChecks)
}

func TestEvaluate_DemographicFlagsFailClosed(t *testing.T) {
	req := &models.RequirementRecord{
		CourseID:     "PISMP-01",
		ReqMalaysian: true,
		ReqFemale:    true,
		NoColorblind: true,
		NoDisability: true,
	}
	evaluator := newEvaluator()

	unknown := evaluator.Evaluate(models.Student{}, req)
	assert.False(t, unknown.Eligible)
	assert.Equal(t, []string{
		eligibility.CheckReqMalaysian,
		eligibility.CheckReqFemale,
		eligibility.CheckNoColorblind,
		eligibility.CheckNoDisability,
	}, unknown.FailedChecks)

	stated := models.Student{
		IsMalaysian: boolPtr(true),
		Gender:      "Perempuan",
		ColorBlind:  boolPtr(false),
		Disability:  boolPtr(false),
	}
	assert.True(t, evaluator.Evaluate(stated, req).Eligible)

	stated.ColorBlind = boolPtr(true)
	result := evaluator.Evaluate(stated, req)
	assert.False(t, result.Eligible)
	assert.Equal(t, []string{eligibility.CheckNoColorblind}, result.FailedChecks)
}

func TestEvaluate_ReqMale(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "ILP-01", ReqMale: true}
	evaluator := newEvaluator()

	assert.True(t, evaluator.Evaluate(models.Student{Gender: "m"}, req).Eligible)
	assert.False(t, evaluator.Evaluate(models.Student{Gender: "female"}, req).Eligible)
	assert.False(t, evaluator.Evaluate(models.Student{}, req).Eligible)
}

func TestEvaluate_ORGroupAnyThreeOfTen(t *testing.T) {
	subjects := []string{"bm", "eng", "math", "hist", "sci", "phy", "chem", "bio", "addmath", "pm"}
	req := &models.RequirementRecord{
		CourseID: "KK-01",
		ComplexRequirements: []models.ORGroup{
			{Count: 3, Grade: models.GradeC, Subjects: subjects},
		},
	}
	evaluator := newEvaluator()

	// every choice of three subjects at C satisfies the group
	for i := 0; i < len(subjects); i++ {
		for j := i + 1; j < len(subjects); j++ {
			for k := j + 1; k < len(subjects); k++ {
				grades := models.GradeRecord{}
				for _, s := range subjects {
					grades[s] = models.GradeD
				}
				grades[subjects[i]] = models.GradeC
				grades[subjects[j]] = models.GradeC
				grades[subjects[k]] = models.GradeC

				result := evaluator.Evaluate(models.Student{Grades: grades}, req)
				require.True(t, result.Eligible, "subjects %s %s %s", subjects[i], subjects[j], subjects[k])
			}
		}
	}

	two := models.GradeRecord{"bm": "A", "eng": "C", "math": "D", "sci": "E"}
	result := evaluator.Evaluate(models.Student{Grades: two}, req)
	assert.False(t, result.Eligible)
	assert.Equal(t, []string{"or_group[0]"}, result.FailedChecks)
}

func TestEvaluate_MultipleORGroupsAreANDed(t *testing.T) {
	req := &models.RequirementRecord{
		CourseID: "UA-02",
		ComplexRequirements: []models.ORGroup{
			{Count: 1, Grade: models.GradeC, Subjects: []string{"phy", "chem"}},
			{Count: 1, Grade: models.GradeB, Subjects: []string{"math", "addmath"}},
		},
	}
	evaluator := newEvaluator()

	assert.True(t, evaluator.Evaluate(models.Student{Grades: models.GradeRecord{"chem": "C", "addmath": "B"}}, req).Eligible)

	result := evaluator.Evaluate(models.Student{Grades: models.GradeRecord{"chem": "C", "addmath": "C+"}}, req)
	assert.False(t, result.Eligible)
	assert.Equal(t, []string{"or_group[1]"}, result.FailedChecks)
}

func TestEvaluate_DuplicateSubjectsInGroupCountOnce(t *testing.T) {
	req := &models.RequirementRecord{
		CourseID: "KK-02",
		ComplexRequirements: []models.ORGroup{
			{Count: 2, Grade: models.GradeC, Subjects: []string{"bm", "bm", "eng"}},
		},
	}
	result := newEvaluator().Evaluate(models.Student{Grades: models.GradeRecord{"bm": "A"}}, req)
	assert.False(t, result.Eligible)
}

func TestEvaluate_UnsatisfiableRecord(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "BAD-01", Unsatisfiable: true}
	result := newEvaluator().Evaluate(models.Student{Grades: models.GradeRecord{"bm": "A+"}}, req)
	assert.False(t, result.Eligible)
	assert.Contains(t, result.FailedChecks, eligibility.CheckUnsatisfiable)
}

func TestEvaluate_MeritLabels(t *testing.T) {
	tests := []struct {
		name   string
		merit  models.OptionalScore
		cutoff models.OptionalScore
		label  models.MeritLabel
		color  string
	}{
		{"above cutoff", models.KnownScore(90), models.KnownScore(85), models.MeritLabelHigh, models.MeritColorHigh},
		{"at cutoff", models.KnownScore(85), models.KnownScore(85), models.MeritLabelHigh, models.MeritColorHigh},
		{"within band", models.KnownScore(80), models.KnownScore(85), models.MeritLabelFair, models.MeritColorFair},
		{"below band", models.KnownScore(79.9), models.KnownScore(85), models.MeritLabelLow, models.MeritColorLow},
		{"unknown cutoff", models.KnownScore(90), models.UnknownScore(), models.MeritLabelNoData, models.MeritColorNoData},
		{"unparsable cutoff", models.KnownScore(90), models.ParseScore("tiada"), models.MeritLabelNoData, models.MeritColorNoData},
	}

	evaluator := newEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.RequirementRecord{CourseID: "X", MeritCutoff: tt.cutoff}
			result := evaluator.Evaluate(models.Student{MeritScore: tt.merit}, req)
			assert.Equal(t, tt.label, result.MeritLabel)
			assert.Equal(t, tt.color, result.MeritColor)
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	req := &models.RequirementRecord{
		CourseID:    "POLY-02",
		MinCredits:  2,
		MeritCutoff: models.KnownScore(70),
		ComplexRequirements: []models.ORGroup{
			{Count: 1, Grade: models.GradeB, Subjects: []string{"sci", "phy"}},
		},
	}
	req.AddRule("eng", models.SubjectLevelPass)
	student := models.Student{Grades: models.GradeRecord{"eng": "B", "sci": "C", "math": "A"}}

	evaluator := newEvaluator()
	first := evaluator.Evaluate(student, req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, evaluator.Evaluate(student, req))
	}
}

func TestEvaluate_AliasedSubjectsAreDeterministic(t *testing.T) {
	req := &models.RequirementRecord{CourseID: "POLY-03"}
	req.AddRule("math", models.SubjectLevelCredit)
	student := models.Student{Grades: models.GradeRecord{"math": "A", "mathematics": "G", "matematik": "G", "maths": "G"}}

	evaluator := newEvaluator()
	for i := 0; i < 200; i++ {
		result := evaluator.Evaluate(student, req)
		require.True(t, result.Eligible, "call %d", i)
		assert.Empty(t, result.FailedChecks)
	}
}

func TestEvaluateAll(t *testing.T) {
	open := &models.RequirementRecord{CourseID: "A", MeritCutoff: models.KnownScore(50)}
	closed := &models.RequirementRecord{CourseID: "B", MinCredits: 9}
	orphan := &models.RequirementRecord{CourseID: "C"}

	courses := map[string]models.Course{
		"A": {CourseID: "A", Name: "Diploma Kejuruteraan Mekanikal", Field: "Kejuruteraan", SourceType: models.SourceTypePoly},
		"B": {CourseID: "B", Name: "Ijazah Perubatan", SourceType: models.SourceTypeUA},
	}
	student := models.Student{Grades: models.GradeRecord{"bm": "A", "eng": "B"}, MeritScore: models.KnownScore(60)}

	eligible := newEvaluator().EvaluateAll(student, []*models.RequirementRecord{open, closed, nil, orphan}, courses)

	require.Len(t, eligible, 2)
	assert.Equal(t, "A", eligible[0].CourseID)
	assert.Equal(t, "Kejuruteraan", eligible[0].Field)
	assert.Equal(t, models.MeritLabelHigh, eligible[0].MeritLabel)
	assert.Equal(t, models.KnownScore(60), eligible[0].StudentMerit)
	assert.Equal(t, "C", eligible[1].CourseID)
	assert.Equal(t, models.MeritLabelNoData, eligible[1].MeritLabel)
}

func TestEvaluateAll_Empty(t *testing.T) {
	eligible := newEvaluator().EvaluateAll(models.Student{}, nil, nil)
	assert.NotNil(t, eligible)
	assert.Empty(t, eligible)
}

func TestNewPolicy(t *testing.T) {
	p, err := eligibility.NewPolicy("c+", "a", 3)
	require.NoError(t, err)
	assert.Equal(t, models.GradeCPlus, p.CreditThreshold)
	assert.Equal(t, models.GradeA, p.DistinctionThreshold)
	assert.Equal(t, 3.0, p.FairBand)

	_, err = eligibility.NewPolicy("Z", "", 5)
	assert.ErrorIs(t, err, models.ErrInvalidGrade)

	_, err = eligibility.NewPolicy("A", "B", 5)
	assert.Error(t, err, "distinction below credit")
}
