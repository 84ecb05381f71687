package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/utils"
)

// Object names inside a catalog directory or prefix.
const (
	RequirementsCSV  = "requirements.csv"
	RequirementsXLSX = "requirements.xlsx"
	CoursesFile      = "courses.yaml"
	TagsFile         = "tags.yaml"
	QuizDir          = "quiz"
)

// ErrUnsupportedFormat is returned for requirement files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported requirements format")

type coursesDocument struct {
	Courses []models.Course `yaml:"courses"`
}

type tagsDocument struct {
	Tags map[string]map[string]float64 `yaml:"tags"`
}

// DecodeRequirements parses a requirements file by its extension.
func DecodeRequirements(name string, data []byte) ([]*models.RequirementRecord, []error) {
	parser := utils.NewRequirementParser()
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return parser.ParseRequirements(string(data))
	case ".xlsx":
		return parser.ParseXLSX(bytes.NewReader(data))
	default:
		return nil, []error{fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)}
	}
}

// DecodeCourses parses a courses YAML document.
func DecodeCourses(data []byte) ([]models.Course, error) {
	var doc coursesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse courses: %w", err)
	}
	for i := range doc.Courses {
		doc.Courses[i].CourseID = strings.TrimSpace(doc.Courses[i].CourseID)
		if doc.Courses[i].CourseID == "" {
			return nil, fmt.Errorf("course %d: %w", i, models.ErrEmptyCourseID)
		}
		doc.Courses[i].SourceType = models.SourceType(strings.ToLower(strings.TrimSpace(string(doc.Courses[i].SourceType))))
	}
	return doc.Courses, nil
}

// DecodeTags parses a tag catalog YAML document. Non-finite weights are dropped.
func DecodeTags(data []byte) (models.TagCatalog, error) {
	var doc tagsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tags: %w", err)
	}

	tags := make(models.TagCatalog, len(doc.Tags))
	for courseID, weights := range doc.Tags {
		profile := make(models.TagProfile, len(weights))
		for signal, w := range weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				continue
			}
			profile[signal] = w
		}
		tags[strings.TrimSpace(courseID)] = profile
	}
	return tags, nil
}
