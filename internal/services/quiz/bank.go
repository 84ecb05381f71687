// Package quiz turns quiz answers into a student signal profile.
package quiz

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"course-eligibility-engine/internal/models"
)

//go:embed banks/*.yaml
var defaultBanks embed.FS

// Bank is one language edition of the question bank. It is immutable once built.
type Bank struct {
	Language  string
	Version   string
	questions []models.Question
	index     map[string]int
}

// bankDocument is the on-disk format of a bank.
type bankDocument struct {
	Language  string            `yaml:"language"`
	Version   string            `yaml:"version"`
	Questions []models.Question `yaml:"questions"`
}

// NewBank validates questions and builds an edition.
func NewBank(lang, version string, questions []models.Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%s: %w", lang, models.ErrEmptyQuestionBank)
	}

	b := &Bank{
		Language:  lang,
		Version:   version,
		questions: make([]models.Question, len(questions)),
		index:     make(map[string]int, len(questions)),
	}

	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("%s: question %d has no id", lang, i)
		}
		if _, dup := b.index[q.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate question id %s", lang, q.ID)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%s: question %s has no options", lang, q.ID)
		}
		for j, opt := range q.Options {
			for category := range opt.Signals {
				if !category.IsValid() {
					return nil, fmt.Errorf("%s: question %s option %d: unknown signal category %q", lang, q.ID, j, category)
				}
			}
		}
		b.index[q.ID] = i
		b.questions[i] = q
	}

	return b, nil
}

// LoadBank parses and validates a YAML bank document.
func LoadBank(data []byte) (*Bank, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc bankDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	return NewBank(doc.Language, doc.Version, doc.Questions)
}

// Question returns a question by id.
func (b *Bank) Question(id string) (models.Question, bool) {
	i, ok := b.index[id]
	if !ok {
		return models.Question{}, false
	}
	return b.questions[i], true
}

// Questions returns the questions in order.
func (b *Bank) Questions() []models.Question {
	out := make([]models.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// IDs returns the question ids in order.
func (b *Bank) IDs() []string {
	ids := make([]string, len(b.questions))
	for i, q := range b.questions {
		ids[i] = q.ID
	}
	return ids
}

// ValidateEditions checks that every edition has the same question ids in the
// same order, and the same number of options per question.
func ValidateEditions(banks []*Bank) error {
	if len(banks) == 0 {
		return models.ErrEmptyQuestionBank
	}

	ref := banks[0]
	for _, b := range banks[1:] {
		if len(b.questions) != len(ref.questions) {
			return fmt.Errorf("%w: %s has %d questions, %s has %d",
				models.ErrEditionMismatch, ref.Language, len(ref.questions), b.Language, len(b.questions))
		}
		for i, q := range b.questions {
			want := ref.questions[i]
			if q.ID != want.ID {
				return fmt.Errorf("%w: position %d is %s in %s but %s in %s",
					models.ErrEditionMismatch, i, want.ID, ref.Language, q.ID, b.Language)
			}
			if len(q.Options) != len(want.Options) {
				return fmt.Errorf("%w: question %s has %d options in %s but %d in %s",
					models.ErrEditionMismatch, q.ID, len(want.Options), ref.Language, len(q.Options), b.Language)
			}
		}
	}

	return nil
}

// Banks is the set of language editions with language negotiation.
type Banks struct {
	editions map[string]*Bank
	langs    []string
	matcher  language.Matcher
}

// NewBanks validates editions against each other. The default language is
// listed first and wins when negotiation finds nothing better.
func NewBanks(editions []*Bank, defaultLang string) (*Banks, error) {
	if err := ValidateEditions(editions); err != nil {
		return nil, err
	}

	bs := &Banks{editions: make(map[string]*Bank, len(editions))}
	for _, b := range editions {
		if _, dup := bs.editions[b.Language]; dup {
			return nil, fmt.Errorf("duplicate question bank edition %s", b.Language)
		}
		bs.editions[b.Language] = b
		bs.langs = append(bs.langs, b.Language)
	}

	sort.SliceStable(bs.langs, func(i, j int) bool {
		return bs.langs[i] == defaultLang && bs.langs[j] != defaultLang
	})
	if _, ok := bs.editions[defaultLang]; defaultLang != "" && !ok {
		return nil, fmt.Errorf("%w: default %s", models.ErrUnsupportedLanguage, defaultLang)
	}

	tags := make([]language.Tag, len(bs.langs))
	for i, l := range bs.langs {
		tags[i] = language.Make(l)
	}
	bs.matcher = language.NewMatcher(tags)

	return bs, nil
}

// Edition returns the best edition for a language tag or Accept-Language value.
func (bs *Banks) Edition(lang string) *Bank {
	if b, ok := bs.editions[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return b
	}

	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return bs.editions[bs.langs[0]]
	}
	_, idx, _ := bs.matcher.Match(tags...)
	return bs.editions[bs.langs[idx]]
}

// Languages returns the edition languages, default first.
func (bs *Banks) Languages() []string {
	out := make([]string, len(bs.langs))
	copy(out, bs.langs)
	return out
}

// Default returns the default edition.
func (bs *Banks) Default() *Bank {
	return bs.editions[bs.langs[0]]
}

// LoadBanksFS loads every *.yaml bank in dir.
func LoadBanksFS(fsys fs.FS, dir string) ([]*Bank, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read question banks: %w", err)
	}

	var banks []*Bank
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		b, err := LoadBank(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		banks = append(banks, b)
	}

	if len(banks) == 0 {
		return nil, models.ErrEmptyQuestionBank
	}
	return banks, nil
}

// DefaultBanks returns the embedded English and Malay editions.
func DefaultBanks(defaultLang string) (*Banks, error) {
	editions, err := LoadBanksFS(defaultBanks, "banks")
	if err != nil {
		return nil, err
	}
	return NewBanks(editions, defaultLang)
}
