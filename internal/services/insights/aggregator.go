// Package insights summarizes an eligible course list.
package insights

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"course-eligibility-engine/internal/models"
)

// MaxTopFields caps the top_fields list.
const MaxTopFields = 5

var matcher = language.NewMatcher(supported)

// Aggregator builds insights in one language.
type Aggregator struct {
	tag     language.Tag
	printer *message.Printer
}

// builtin is built once; the catalog is read-only after construction.
var builtin, builtinErr = newCatalog()

// NewAggregator creates an aggregator for a language tag or Accept-Language
// value. Unsupported languages fall back to English.
func NewAggregator(lang string) (*Aggregator, error) {
	if builtinErr != nil {
		return nil, fmt.Errorf("failed to build message catalog: %w", builtinErr)
	}

	tag := resolve(lang)
	return &Aggregator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builtin)),
	}, nil
}

func resolve(lang string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Language returns the base language the aggregator writes in.
func (a *Aggregator) Language() string {
	base, _ := a.tag.Base()
	return base.String()
}

// Generate aggregates the eligible courses. Empty input yields empty lists,
// zero counts and the "no eligible courses" message.
func (a *Aggregator) Generate(courses []models.EligibleCourse) models.Insights {
	out := models.Insights{
		StreamBreakdown:   a.streams(courses),
		TopFields:         topFields(courses),
		LevelDistribution: levels(courses),
		MeritSummary:      meritSummary(courses),
	}

	switch {
	case len(courses) == 0:
		out.SummaryText = a.printer.Sprintf(keyEmpty)
	case len(out.TopFields) == 0:
		out.SummaryText = a.printer.Sprintf(keySummaryNoField, len(courses), len(out.StreamBreakdown))
	default:
		out.SummaryText = a.printer.Sprintf(keySummary, len(courses), len(out.StreamBreakdown), out.TopFields[0].Field)
	}

	return out
}

// Label returns the display label of a source type.
func (a *Aggregator) Label(source models.SourceType) string {
	if label, ok := streamLabels[a.tag][source]; ok {
		return label
	}
	return strings.ToUpper(string(source))
}

// streams counts by source type, most first, ties alphabetical by source type.
// Courses without a source type are counted as unknown so the counts add up.
func (a *Aggregator) streams(courses []models.EligibleCourse) []models.StreamCount {
	counts := make(map[models.SourceType]int)
	for _, c := range courses {
		source := c.SourceType
		if strings.TrimSpace(string(source)) == "" {
			source = models.SourceTypeUnknown
		}
		counts[source]++
	}

	out := make([]models.StreamCount, 0, len(counts))
	for source, count := range counts {
		out = append(out, models.StreamCount{SourceType: source, Label: a.Label(source), Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SourceType < out[j].SourceType
	})
	return out
}

// topFields counts by field, most first, ties in first-seen order, at most five.
func topFields(courses []models.EligibleCourse) []models.FieldCount {
	index := make(map[string]int)
	out := make([]models.FieldCount, 0)
	for _, c := range courses {
		field := strings.TrimSpace(c.Field)
		if field == "" {
			continue
		}
		if i, ok := index[field]; ok {
			out[i].Count++
			continue
		}
		index[field] = len(out)
		out = append(out, models.FieldCount{Field: field, Count: 1})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > MaxTopFields {
		out = out[:MaxTopFields]
	}
	return out
}

// levels counts by level in first-seen order.
func levels(courses []models.EligibleCourse) []models.LevelCount {
	index := make(map[string]int)
	out := make([]models.LevelCount, 0)
	for _, c := range courses {
		level := strings.TrimSpace(c.Level)
		if level == "" {
			continue
		}
		if i, ok := index[level]; ok {
			out[i].Count++
			continue
		}
		index[level] = len(out)
		out = append(out, models.LevelCount{Level: level, Count: 1})
	}
	return out
}

func meritSummary(courses []models.EligibleCourse) models.MeritSummary {
	var s models.MeritSummary
	for _, c := range courses {
		switch strings.ToLower(string(c.MeritLabel)) {
		case "high":
			s.High++
		case "fair":
			s.Fair++
		case "low":
			s.Low++
		default:
			s.NoData++
		}
	}
	return s
}
