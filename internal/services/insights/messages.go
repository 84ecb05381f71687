package insights

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"

	"course-eligibility-engine/internal/models"
)

// Message keys.
const (
	keySummary        = "summary"
	keySummaryNoField = "summary_no_field"
	keyEmpty          = "empty"
)

var malay = language.Make("ms")

// supported lists the summary languages, default first.
var supported = []language.Tag{language.English, malay}

// streamLabels are the display names of each source type per language.
var streamLabels = map[language.Tag]map[models.SourceType]string{
	language.English: {
		models.SourceTypePoly:    "Politeknik",
		models.SourceTypeTVET:    "TVET",
		models.SourceTypeUA:      "Public University",
		models.SourceTypePISMP:   "PISMP",
		models.SourceTypeKK:      "Community College",
		models.SourceTypeMatric:  "Matriculation",
		models.SourceTypeSTPM:    "Form Six (STPM)",
		models.SourceTypeUnknown: "Other",
	},
	malay: {
		models.SourceTypePoly:    "Politeknik",
		models.SourceTypeTVET:    "TVET",
		models.SourceTypeUA:      "Universiti Awam",
		models.SourceTypePISMP:   "PISMP",
		models.SourceTypeKK:      "Kolej Komuniti",
		models.SourceTypeMatric:  "Matrikulasi",
		models.SourceTypeSTPM:    "Tingkatan Enam (STPM)",
		models.SourceTypeUnknown: "Lain-lain",
	},
}

func newCatalog() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	steps := []error{
		b.Set(language.English, keySummary,
			catalog.Var("courses", plural.Selectf(1, "%d", "one", "course", "other", "courses")),
			catalog.Var("streams", plural.Selectf(2, "%d", "one", "stream", "other", "streams")),
			catalog.String("You are eligible for %[1]d ${courses} across %[2]d ${streams}. Your strongest field is %[3]s.")),
		b.Set(language.English, keySummaryNoField,
			catalog.Var("courses", plural.Selectf(1, "%d", "one", "course", "other", "courses")),
			catalog.Var("streams", plural.Selectf(2, "%d", "one", "stream", "other", "streams")),
			catalog.String("You are eligible for %[1]d ${courses} across %[2]d ${streams}.")),
		b.SetString(language.English, keyEmpty,
			"You have no eligible courses yet. Try checking your grades or exploring other pathways."),

		b.SetString(malay, keySummary,
			"Anda layak untuk %[1]d kursus merentasi %[2]d aliran. Bidang paling menonjol anda ialah %[3]s."),
		b.SetString(malay, keySummaryNoField,
			"Anda layak untuk %[1]d kursus merentasi %[2]d aliran."),
		b.SetString(malay, keyEmpty,
			"Tiada kursus yang layak buat masa ini. Cuba semak keputusan anda atau terokai laluan lain."),
	}
	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}
