// Package models defines the data structures for the course eligibility engine.
package models

// StreamCount counts eligible courses of one source type.
type StreamCount struct {
	SourceType SourceType `json:"source_type"`
	Label      string     `json:"label"`
	Count      int        `json:"count"`
}

// FieldCount counts eligible courses in one field of study.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// LevelCount counts eligible courses at one qualification level.
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// MeritSummary counts eligible courses per merit bucket.
type MeritSummary struct {
	High   int `json:"high"`
	Fair   int `json:"fair"`
	Low    int `json:"low"`
	NoData int `json:"no_data"`
}

// Insights summarizes an eligible course list.
type Insights struct {
	StreamBreakdown   []StreamCount `json:"stream_breakdown"`
	TopFields         []FieldCount  `json:"top_fields"`
	LevelDistribution []LevelCount  `json:"level_distribution"`
	MeritSummary      MeritSummary  `json:"merit_summary"`
	SummaryText       string        `json:"summary_text"`
}
