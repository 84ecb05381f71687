package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
)

const requirementsCSV = `course_id,min_credits,credit_math,req_malaysian,req_male,req_female,no_colorblind,no_disability,merit_cutoff,complex_requirements
POLY-DKM,3,1,1,0,0,1,0,72.5,
TVET-WELD,0,0,1,0,0,0,0,,
`

const coursesYAML = `courses:
  - course_id: POLY-DKM
    name: Diploma Kejuruteraan Mekanikal
    level: Diploma
    field: Kejuruteraan
    source_type: POLY
  - course_id: TVET-WELD
    name: Sijil Kimpalan
    level: Sijil
    field: Kejuruteraan
    source_type: tvet
`

const tagsYAML = `tags:
  POLY-DKM:
    hands_on: 1.0
    workshop_environment: 0.8
  TVET-WELD:
    hands_on: 1.0
    allowance_priority: 1.0
`

func catalogFS() fstest.MapFS {
	return fstest.MapFS{
		"requirements.csv": {Data: []byte(requirementsCSV)},
		"courses.yaml":     {Data: []byte(coursesYAML)},
		"tags.yaml":        {Data: []byte(tagsYAML)},
	}
}

func TestFileSource_Load(t *testing.T) {
	raw, err := catalog.NewFSSource(catalogFS()).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, raw.Requirements, 2)
	assert.Equal(t, "POLY-DKM", raw.Requirements[0].CourseID)
	assert.Equal(t, "TVET-WELD", raw.Requirements[1].CourseID)
	require.Len(t, raw.Courses, 2)
	assert.Equal(t, models.SourceTypePoly, raw.Courses[0].SourceType)
	assert.Equal(t, 0.8, raw.Tags["POLY-DKM"]["workshop_environment"])
	assert.Empty(t, raw.Banks)
}

func TestFileSource_MissingFiles(t *testing.T) {
	fsys := catalogFS()
	delete(fsys, "requirements.csv")
	_, err := catalog.NewFSSource(fsys).Load(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoRequirements)

	fsys = catalogFS()
	delete(fsys, "tags.yaml")
	_, err = catalog.NewFSSource(fsys).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_RequirementsWithoutDataRows(t *testing.T) {
	fsys := catalogFS()
	fsys["requirements.csv"] = &fstest.MapFile{Data: []byte("course_id,min_credits\n")}

	_, err := catalog.NewFSSource(fsys).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_SampleData(t *testing.T) {
	store := catalog.NewStore(catalog.NewFileSource("../../../data"), "en", zap.NewNop())
	snap, err := store.Reload(context.Background())
	require.NoError(t, err)

	stats := snap.Stats()
	assert.Equal(t, 9, stats.Requirements)
	assert.Equal(t, 9, stats.Courses)
	assert.Equal(t, 9, stats.Tagged)
	assert.Equal(t, 2, stats.Languages)
	assert.Empty(t, snap.Warnings)
}

func TestBuild_IntegrityWarnings(t *testing.T) {
	raw := &catalog.RawData{
		Requirements: []*models.RequirementRecord{
			{CourseID: "A", MeritCutoff: models.UnknownScore(), Integrity: []string{"unparsable merit_cutoff \"x\""}},
			{CourseID: "B", MeritCutoff: models.UnknownScore()},
		},
		RowErrors: []error{errors.New("line 4: course_id cannot be empty")},
		Courses:   []models.Course{{CourseID: "A"}},
		Tags: models.TagCatalog{
			"A":     {"hands_on": 1},
			"GHOST": {"hands_on": 1},
		},
	}

	snap, err := catalog.Build("test", raw, "en", zap.NewNop())
	require.NoError(t, err)

	kinds := make(map[string][]string)
	for _, w := range snap.Warnings {
		kinds[w.Kind] = append(kinds[w.Kind], w.CourseID)
	}
	assert.Equal(t, []string{""}, kinds[catalog.WarnRequirementRow])
	assert.Equal(t, []string{"A"}, kinds[catalog.WarnRequirementIntegrity])
	assert.Equal(t, []string{"B"}, kinds[catalog.WarnMissingCourse])
	assert.Equal(t, []string{"B"}, kinds[catalog.WarnMissingTags])
	assert.Equal(t, []string{"GHOST"}, kinds[catalog.WarnOrphanTags])
}

func TestBuild_VersionIsContentHash(t *testing.T) {
	load := func(fsys fstest.MapFS) *catalog.Snapshot {
		raw, err := catalog.NewFSSource(fsys).Load(context.Background())
		require.NoError(t, err)
		snap, err := catalog.Build("test", raw, "en", nil)
		require.NoError(t, err)
		return snap
	}

	first := load(catalogFS())
	second := load(catalogFS())
	assert.Len(t, first.Version, 12)
	assert.Equal(t, first.Version, second.Version)

	changed := catalogFS()
	changed["tags.yaml"] = &fstest.MapFile{Data: []byte(strings.Replace(tagsYAML, "0.8", "0.9", 1))}
	assert.NotEqual(t, first.Version, load(changed).Version)
}

func TestBuild_FailsWhenContentCannotBeHashed(t *testing.T) {
	raw := &catalog.RawData{
		Requirements: []*models.RequirementRecord{{CourseID: "A", MeritCutoff: models.UnknownScore()}},
		Courses:      []models.Course{{CourseID: "A"}},
		Tags:         models.TagCatalog{"A": {"hands_on": math.NaN()}},
	}

	snap, err := catalog.Build("test", raw, "en", nil)
	assert.Nil(t, snap)
	assert.ErrorContains(t, err, "failed to compute catalog version")
}

func TestBuild_RejectsMismatchedBankEditions(t *testing.T) {
	fsys := catalogFS()
	fsys["quiz/en.yaml"] = &fstest.MapFile{Data: []byte(`language: en
version: "1"
questions:
  - id: q1
    prompt: One?
    options:
      - text: A
        signals: {}
`)}
	fsys["quiz/ms.yaml"] = &fstest.MapFile{Data: []byte(`language: ms
version: "1"
questions:
  - id: q9
    prompt: Satu?
    options:
      - text: A
        signals: {}
`)}

	raw, err := catalog.NewFSSource(fsys).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Banks, 2)

	_, err = catalog.Build("test", raw, "en", nil)
	assert.ErrorIs(t, err, models.ErrEditionMismatch)
}

func TestSnapshot_Lookups(t *testing.T) {
	raw, err := catalog.NewFSSource(catalogFS()).Load(context.Background())
	require.NoError(t, err)
	snap, err := catalog.Build("test", raw, "en", nil)
	require.NoError(t, err)

	r, ok := snap.Requirement("TVET-WELD")
	require.True(t, ok)
	assert.Equal(t, 0, r.MinCredits)
	_, ok = snap.Requirement("NOPE")
	assert.False(t, ok)

	c, ok := snap.Course("POLY-DKM")
	require.True(t, ok)
	assert.Equal(t, "Kejuruteraan", c.Field)
}

type flakySource struct {
	mu   sync.Mutex
	fail bool
	fsys fstest.MapFS
}

func (s *flakySource) Name() string { return "flaky" }

func (s *flakySource) Load(ctx context.Context) (*catalog.RawData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("source unavailable")
	}
	return catalog.NewFSSource(s.fsys).Load(ctx)
}

func TestStore_ReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	src := &flakySource{fsys: catalogFS()}
	store := catalog.NewStore(src, "en", zap.NewNop())

	_, err := store.Snapshot()
	assert.ErrorIs(t, err, catalog.ErrNotLoaded)
	assert.Nil(t, store.Current())

	first, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, store.Current())

	src.fail = true
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, first, store.Current())
}

func TestStore_ConcurrentReadsDuringReload(t *testing.T) {
	store := catalog.NewStore(&flakySource{fsys: catalogFS()}, "en", zap.NewNop())
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap, err := store.Snapshot()
				if assert.NoError(t, err) {
					assert.Len(t, snap.Requirements, 2)
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := store.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}

type memoryObjects map[string][]byte

func (m memoryObjects) DownloadFile(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (m memoryObjects) FileExists(_ context.Context, key string) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m memoryObjects) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func TestS3Source_Load(t *testing.T) {
	objects := memoryObjects{
		"catalog/requirements.csv": []byte(requirementsCSV),
		"catalog/courses.yaml":     []byte(coursesYAML),
		"catalog/tags.yaml":        []byte(tagsYAML),
		"catalog/quiz/README.md":   []byte("ignored"),
	}

	src := catalog.NewS3Source(objects, "catalog")
	assert.Equal(t, "s3:catalog/", src.Name())

	raw, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Requirements, 2)
	assert.Len(t, raw.Courses, 2)
	assert.Len(t, raw.Tags, 2)
	assert.Empty(t, raw.Banks)
}

func TestS3Source_MissingRequirements(t *testing.T) {
	objects := memoryObjects{
		"catalog/courses.yaml": []byte(coursesYAML),
		"catalog/tags.yaml":    []byte(tagsYAML),
	}
	_, err := catalog.NewS3Source(objects, "catalog/").Load(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoRequirements)
}

type stubReader struct {
	err error
}

func (s stubReader) ListRequirements(context.Context) ([]*models.RequirementRecord, error) {
	return []*models.RequirementRecord{{CourseID: "X", MeritCutoff: models.KnownScore(60)}}, s.err
}

func (s stubReader) ListCourses(context.Context) ([]models.Course, error) {
	return []models.Course{{CourseID: "X", SourceType: models.SourceTypeKK}}, nil
}

func (s stubReader) ListTags(context.Context) (models.TagCatalog, error) {
	return models.TagCatalog{"X": {"hands_on": 1}}, nil
}

func TestPostgresSource_Load(t *testing.T) {
	raw, err := catalog.NewPostgresSource(stubReader{}).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Requirements, 1)
	assert.Len(t, raw.Courses, 1)
	assert.Len(t, raw.Tags, 1)

	_, err = catalog.NewPostgresSource(stubReader{err: errors.New("boom")}).Load(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestDecodeRequirements_UnsupportedFormat(t *testing.T) {
	_, errs := catalog.DecodeRequirements("requirements.json", []byte("{}"))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], catalog.ErrUnsupportedFormat)
}

func TestDecodeCourses_EmptyID(t *testing.T) {
	_, err := catalog.DecodeCourses([]byte("courses:\n  - name: Nameless\n"))
	assert.ErrorIs(t, err, models.ErrEmptyCourseID)
}
