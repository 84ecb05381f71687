package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/quiz"
)

// ErrNoRequirements is returned when a source has no requirements file.
var ErrNoRequirements = errors.New("no requirements file found")

// Source loads raw catalog data.
type Source interface {
	Name() string
	Load(ctx context.Context) (*RawData, error)
}

// FileSource reads the catalog from a directory:
//
//	requirements.csv or requirements.xlsx
//	courses.yaml
//	tags.yaml
//	quiz/*.yaml (optional, embedded editions otherwise)
type FileSource struct {
	fsys fs.FS
	dir  string
}

// NewFileSource creates a source over a local directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{fsys: os.DirFS(dir), dir: dir}
}

// NewFSSource creates a source over any fs.FS rooted at the catalog directory.
func NewFSSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys, dir: "."}
}

// Name identifies the source in logs and snapshot metadata.
func (s *FileSource) Name() string {
	return "file:" + s.dir
}

// Load reads all catalog files concurrently.
func (s *FileSource) Load(ctx context.Context) (*RawData, error) {
	raw := &RawData{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		name, data, err := s.readRequirements()
		if err != nil {
			return err
		}
		raw.Requirements, raw.RowErrors = DecodeRequirements(name, data)
		return fatalParse(raw.Requirements, raw.RowErrors)
	})

	g.Go(func() error {
		data, err := fs.ReadFile(s.fsys, CoursesFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", CoursesFile, err)
		}
		raw.Courses, err = DecodeCourses(data)
		return err
	})

	g.Go(func() error {
		data, err := fs.ReadFile(s.fsys, TagsFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", TagsFile, err)
		}
		raw.Tags, err = DecodeTags(data)
		return err
	})

	g.Go(func() error {
		if _, err := fs.Stat(s.fsys, QuizDir); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		banks, err := quiz.LoadBanksFS(s.fsys, QuizDir)
		if err != nil {
			return err
		}
		raw.Banks = banks
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *FileSource) readRequirements() (string, []byte, error) {
	for _, name := range []string{RequirementsCSV, RequirementsXLSX} {
		data, err := fs.ReadFile(s.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return name, data, nil
	}
	return "", nil, ErrNoRequirements
}

// ObjectStore is the subset of the S3 service the catalog needs.
type ObjectStore interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	FileExists(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// S3Source reads the same layout as FileSource from an object store prefix.
type S3Source struct {
	store  ObjectStore
	prefix string
}

// NewS3Source creates a source reading objects under prefix.
func NewS3Source(store ObjectStore, prefix string) *S3Source {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Source{store: store, prefix: prefix}
}

// Name identifies the source in logs and snapshot metadata.
func (s *S3Source) Name() string {
	return "s3:" + s.prefix
}

// Load downloads all catalog objects concurrently.
func (s *S3Source) Load(ctx context.Context) (*RawData, error) {
	raw := &RawData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		name := RequirementsCSV
		ok, err := s.store.FileExists(ctx, s.prefix+name)
		if err != nil {
			return err
		}
		if !ok {
			name = RequirementsXLSX
		}
		data, err := s.store.DownloadFile(ctx, s.prefix+name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoRequirements, err)
		}
		raw.Requirements, raw.RowErrors = DecodeRequirements(name, data)
		return fatalParse(raw.Requirements, raw.RowErrors)
	})

	g.Go(func() error {
		data, err := s.store.DownloadFile(ctx, s.prefix+CoursesFile)
		if err != nil {
			return err
		}
		raw.Courses, err = DecodeCourses(data)
		return err
	})

	g.Go(func() error {
		data, err := s.store.DownloadFile(ctx, s.prefix+TagsFile)
		if err != nil {
			return err
		}
		raw.Tags, err = DecodeTags(data)
		return err
	})

	g.Go(func() error {
		keys, err := s.store.ListKeys(ctx, s.prefix+QuizDir+"/")
		if err != nil {
			return err
		}
		for _, key := range keys {
			if path.Ext(key) != ".yaml" {
				continue
			}
			data, err := s.store.DownloadFile(ctx, key)
			if err != nil {
				return err
			}
			b, err := quiz.LoadBank(data)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			raw.Banks = append(raw.Banks, b)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// CatalogReader is the subset of the catalog repository the catalog needs.
type CatalogReader interface {
	ListRequirements(ctx context.Context) ([]*models.RequirementRecord, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListTags(ctx context.Context) (models.TagCatalog, error)
}

// PostgresSource reads requirements, courses and tags from the database.
// Question banks always come from the embedded editions.
type PostgresSource struct {
	repo CatalogReader
}

// NewPostgresSource creates a database-backed source.
func NewPostgresSource(repo CatalogReader) *PostgresSource {
	return &PostgresSource{repo: repo}
}

// Name identifies the source in logs and snapshot metadata.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load queries the three catalog tables concurrently.
func (s *PostgresSource) Load(ctx context.Context) (*RawData, error) {
	raw := &RawData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		raw.Requirements, err = s.repo.ListRequirements(ctx)
		return err
	})
	g.Go(func() (err error) {
		raw.Courses, err = s.repo.ListCourses(ctx)
		return err
	})
	g.Go(func() (err error) {
		raw.Tags, err = s.repo.ListTags(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// fatalParse fails the load when no record could be read; row-level errors
// alongside good records become warnings.
func fatalParse(records []*models.RequirementRecord, errs []error) error {
	if len(records) > 0 {
		return nil
	}
	if len(errs) == 0 {
		return ErrNoRequirements
	}
	return fmt.Errorf("failed to parse requirements: %w", errs[0])
}
