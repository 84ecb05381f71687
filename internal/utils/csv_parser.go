// Package utils provides logging and data file parsing for the course eligibility engine.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"course-eligibility-engine/internal/models"
)

// Requirement parser errors
var (
	ErrEmptyCSV        = errors.New("CSV content is empty")
	ErrMissingColumns  = errors.New("missing required columns")
	ErrNoDataRows      = errors.New("file contains no data rows")
	ErrDuplicateCourse = errors.New("duplicate course_id")
)

// RequiredColumns defines the columns that must be present.
var RequiredColumns = []string{
	"course_id",
}

// ExpectedColumns are recovered with a neutral default when absent.
var ExpectedColumns = []string{
	"min_credits",
	"merit_cutoff",
	"complex_requirements",
	"req_malaysian",
	"req_male",
	"req_female",
	"no_colorblind",
	"no_disability",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// course_id aliases
	"courseid":    "course_id",
	"course_code": "course_id",
	"code":        "course_id",
	"kod":         "course_id",
	"kod_kursus":  "course_id",
	"id":          "course_id",

	// min_credits aliases
	"min_credit":      "min_credits",
	"mincredits":      "min_credits",
	"minimum_credits": "min_credits",
	"credits":         "min_credits",
	"bil_kredit":      "min_credits",

	// merit aliases
	"merit":        "merit_cutoff",
	"cutoff":       "merit_cutoff",
	"merit_pct":    "merit_cutoff",
	"purata_merit": "merit_cutoff",

	// OR-group aliases
	"or_groups": "complex_requirements",
	"complex":   "complex_requirements",

	// demographic/medical aliases
	"malaysian_only":  "req_malaysian",
	"warganegara":     "req_malaysian",
	"male_only":       "req_male",
	"female_only":     "req_female",
	"no_colourblind":  "no_colorblind",
	"no_color_blind":  "no_colorblind",
	"no_colour_blind": "no_colorblind",
	"no_oku":          "no_disability",
}

// subjectRulePrefixes maps column prefixes to subject rule levels.
var subjectRulePrefixes = []struct {
	prefix string
	level  models.SubjectLevel
}{
	{"distinction_", models.SubjectLevelDistinction},
	{"dist_", models.SubjectLevelDistinction},
	{"credit_", models.SubjectLevelCredit},
	{"kredit_", models.SubjectLevelCredit},
	{"pass_", models.SubjectLevelPass},
	{"lulus_", models.SubjectLevelPass},
}

// RequirementParser handles parsing of requirement CSV and XLSX files.
type RequirementParser struct {
	columnMapping map[string]int
	ruleColumns   map[int]models.SubjectRule
	missing       []string
}

// NewRequirementParser creates a new requirement parser instance.
func NewRequirementParser() *RequirementParser {
	return &RequirementParser{
		columnMapping: make(map[string]int),
		ruleColumns:   make(map[int]models.SubjectRule),
	}
}

// MissingColumns returns the expected columns absent from the last parsed header.
func (p *RequirementParser) MissingColumns() []string {
	return p.missing
}

// ParseRequirements parses CSV content into requirement records.
// Records keep file order; data problems that can be recovered are attached
// to the record's Integrity list rather than returned as errors.
func (p *RequirementParser) ParseRequirements(content string) ([]*models.RequirementRecord, []error) {
	if strings.TrimSpace(content) == "" {
		return nil, []error{ErrEmptyCSV}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, []error{fmt.Errorf("failed to read CSV: %w", err)}
		}
		rows = append(rows, record)
	}

	return p.parseRows(rows)
}

// parseRows parses a header row followed by data rows.
func (p *RequirementParser) parseRows(rows [][]string) ([]*models.RequirementRecord, []error) {
	if len(rows) == 0 {
		return nil, []error{ErrEmptyCSV}
	}

	if err := p.buildColumnMapping(rows[0]); err != nil {
		return nil, []error{err}
	}

	var records []*models.RequirementRecord
	var parseErrors []error
	seen := make(map[string]int)

	for i, row := range rows[1:] {
		lineNum := i + 2 // Header is line 1
		if isBlankRow(row) {
			continue
		}

		record, err := p.parseRow(row)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		if first, ok := seen[record.CourseID]; ok {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w %s (first seen on line %d)", lineNum, ErrDuplicateCourse, record.CourseID, first))
			continue
		}
		seen[record.CourseID] = lineNum

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return records, parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *RequirementParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)
	p.ruleColumns = make(map[int]models.SubjectRule)
	p.missing = nil

	for i, col := range header {
		normalized := normalizeColumn(col)
		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}

		if rule, ok := subjectRuleColumn(normalized); ok {
			p.ruleColumns[i] = rule
			continue
		}

		p.columnMapping[normalized] = i
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for _, expected := range ExpectedColumns {
		if _, ok := p.columnMapping[expected]; !ok {
			p.missing = append(p.missing, expected)
		}
	}

	return nil
}

// parseRow parses a single row into a requirement record.
func (p *RequirementParser) parseRow(row []string) (*models.RequirementRecord, error) {
	getValue := func(column string) (string, bool) {
		idx, ok := p.columnMapping[column]
		if !ok || idx >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[idx]), true
	}

	courseID, _ := getValue("course_id")
	if courseID == "" {
		return nil, models.ErrEmptyCourseID
	}

	record := &models.RequirementRecord{
		CourseID:    courseID,
		MeritCutoff: models.UnknownScore(),
	}

	for _, column := range p.missing {
		record.Integrity = append(record.Integrity, "missing column "+column)
	}

	// min_credits
	if raw, ok := getValue("min_credits"); ok {
		credits, err := parseInt(raw)
		switch {
		case raw == "":
			record.MinCredits = 0
		case err != nil || credits < 0:
			record.Unsatisfiable = true
			record.Integrity = append(record.Integrity, fmt.Sprintf("unparsable min_credits %q", raw))
		default:
			record.MinCredits = credits
		}
	}

	// merit_cutoff
	if raw, ok := getValue("merit_cutoff"); ok {
		record.MeritCutoff = models.ParseScore(raw)
		if !record.MeritCutoff.Known && !isNullMarker(raw) {
			record.Integrity = append(record.Integrity, fmt.Sprintf("unparsable merit_cutoff %q", raw))
		}
	}

	// demographic/medical flags
	flags := []struct {
		column string
		target *bool
	}{
		{"req_malaysian", &record.ReqMalaysian},
		{"req_male", &record.ReqMale},
		{"req_female", &record.ReqFemale},
		{"no_colorblind", &record.NoColorblind},
		{"no_disability", &record.NoDisability},
	}
	for _, flag := range flags {
		raw, ok := getValue(flag.column)
		if !ok {
			continue
		}
		value, valid := ParseFlag(raw)
		if !valid {
			record.Unsatisfiable = true
			record.Integrity = append(record.Integrity, fmt.Sprintf("unparsable %s %q", flag.column, raw))
		}
		*flag.target = value
	}

	// subject rule flags, in column order
	for idx := 0; idx < len(row); idx++ {
		rule, ok := p.ruleColumns[idx]
		if !ok {
			continue
		}
		value, valid := ParseFlag(row[idx])
		if !valid {
			record.Unsatisfiable = true
			record.Integrity = append(record.Integrity, fmt.Sprintf("unparsable %s %q", rule.Key(), row[idx]))
		}
		if value {
			record.AddRule(rule.Subject, rule.Level)
		}
	}

	// complex_requirements
	if raw, ok := getValue("complex_requirements"); ok {
		groups, err := models.ParseComplexRequirements(raw)
		if err != nil {
			record.Unsatisfiable = true
			record.Integrity = append(record.Integrity, err.Error())
		} else {
			record.ComplexRequirements = groups
		}
	}

	return record, nil
}

// subjectRuleColumn recognizes pass_/credit_/distinction_ columns.
func subjectRuleColumn(column string) (models.SubjectRule, bool) {
	for _, candidate := range subjectRulePrefixes {
		if strings.HasPrefix(column, candidate.prefix) {
			subject := strings.TrimPrefix(column, candidate.prefix)
			if subject == "" {
				return models.SubjectRule{}, false
			}
			return models.SubjectRule{
				Subject: models.NormalizeSubject(subject),
				Level:   candidate.level,
			}, true
		}
	}
	return models.SubjectRule{}, false
}

// ParseFlag interprets boolean-ish cells. Empty cells are false.
// The second return value is false when the cell could not be interpreted.
func ParseFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "true", "t", "yes", "y", "ya", "x", "✓":
		return true, true
	case "", "0", "0.0", "false", "f", "no", "n", "tidak", "-":
		return false, true
	default:
		return false, false
	}
}

func normalizeColumn(col string) string {
	normalized := strings.ToLower(strings.TrimSpace(col))
	normalized = strings.TrimPrefix(normalized, "\ufeff")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return normalized
}

// isNullMarker reports cells that mean "no value" rather than bad data.
func isNullMarker(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "-", "n/a", "na", "null":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseInt parses a string to int, handling common formats.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// Handle float strings (e.g., "5.0")
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}

	return strconv.Atoi(s)
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string) (*CSVValidationResult, error) {
	result := &CSVValidationResult{
		Valid:          false,
		RowCount:       0,
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result, nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result, nil
	}

	normalizedColumns := make(map[string]bool)
	for _, col := range header {
		normalized := normalizeColumn(col)
		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}
		normalizedColumns[normalized] = true
		result.Columns = append(result.Columns, col)
	}

	for _, required := range RequiredColumns {
		if !normalizedColumns[required] {
			result.MissingColumns = append(result.MissingColumns, required)
		}
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result, nil
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
