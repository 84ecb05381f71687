package ranking

import (
	"fmt"
	"strings"
)

// reasonPhrases are the fit reason texts per language and signal.
var reasonPhrases = map[string]map[string]string{
	"en": {
		"hands_on":                "Lots of hands-on, practical work",
		"problem_solving":         "Built around solving technical problems",
		"people_helping":          "You will work closely with and help people",
		"creative":                "Room for creative and design work",
		"workshop_environment":    "Training happens in workshops and labs",
		"office_environment":      "Mostly office-based work",
		"field_environment":       "Work outdoors or on site",
		"high_people_environment": "A busy, people-facing environment",
		"learning_by_doing":       "You learn by doing, not just reading",
		"concept_first":           "Strong grounding in theory",
		"project_based":           "Project-based learning",
		"rote_tolerant":           "Structured, exam-focused study",
		"stability_priority":      "Leads to stable employment",
		"allowance_priority":      "Allowance or paid training available",
		"pathway_priority":        "Clear pathway to a degree",
		"fast_employment":         "Quick route into a job",
		"quality_priority":        "Well-recognised qualification",
		"low_people_tolerance":    "Suits people who prefer quieter work",
		"high_people_tolerance":   "Suits people who enjoy being around others",
		"physical_fatigue":        "Light on physical strain",
		"mental_fatigue":          "Light on heavy desk work",
	},
	"ms": {
		"hands_on":                "Banyak kerja amali secara langsung",
		"problem_solving":         "Berteraskan penyelesaian masalah teknikal",
		"people_helping":          "Anda akan bekerja rapat dan membantu orang lain",
		"creative":                "Ruang untuk kerja kreatif dan reka bentuk",
		"workshop_environment":    "Latihan dijalankan di bengkel dan makmal",
		"office_environment":      "Kebanyakan kerja di pejabat",
		"field_environment":       "Bekerja di luar atau di tapak",
		"high_people_environment": "Persekitaran sibuk yang berdepan dengan orang ramai",
		"learning_by_doing":       "Belajar melalui amali, bukan sekadar membaca",
		"concept_first":           "Asas teori yang kukuh",
		"project_based":           "Pembelajaran berasaskan projek",
		"rote_tolerant":           "Pembelajaran berstruktur dan berfokus peperiksaan",
		"stability_priority":      "Membawa kepada pekerjaan yang stabil",
		"allowance_priority":      "Elaun atau latihan berbayar disediakan",
		"pathway_priority":        "Laluan jelas ke peringkat ijazah",
		"fast_employment":         "Laluan pantas ke alam pekerjaan",
		"quality_priority":        "Kelayakan yang diiktiraf",
		"low_people_tolerance":    "Sesuai untuk mereka yang suka suasana tenang",
		"high_people_tolerance":   "Sesuai untuk mereka yang suka bersama orang ramai",
		"physical_fatigue":        "Kurang beban fizikal",
		"mental_fatigue":          "Kurang kerja meja yang berat",
	},
}

// fallbackFormat is used for signals without a phrase.
var fallbackFormat = map[string]string{
	"en": "Matches your %s preference",
	"ms": "Sepadan dengan keutamaan %s anda",
}

// Phrase returns the fit reason for a signal in lang, falling back to English
// and then to a generic sentence built from the signal name.
func Phrase(lang, signal string) string {
	if _, ok := reasonPhrases[lang]; !ok {
		lang = "en"
	}
	if phrase, ok := reasonPhrases[lang][signal]; ok {
		return phrase
	}
	return fmt.Sprintf(fallbackFormat[lang], strings.ReplaceAll(signal, "_", " "))
}
