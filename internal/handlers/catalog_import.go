package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/database"
	"course-eligibility-engine/internal/utils"
)

// maxReportedIssues caps the warnings and errors returned to the caller.
const maxReportedIssues = 10

// CatalogImporter replaces the stored catalog.
type CatalogImporter interface {
	ReplaceCatalog(ctx context.Context, requirements []*models.RequirementRecord, courses []models.Course, tags models.TagCatalog) (*database.ImportStats, error)
}

// CatalogImportHandler validates the catalog whenever one of its files lands
// in S3 and, when a database is configured, imports it.
type CatalogImportHandler struct {
	store       catalog.ObjectStore
	importer    CatalogImporter
	prefix      string
	defaultLang string
	logger      *zap.Logger
}

// NewCatalogImportHandler creates a new import handler. importer may be nil,
// in which case uploads are only validated.
func NewCatalogImportHandler(store catalog.ObjectStore, importer CatalogImporter, prefix, defaultLang string, logger *zap.Logger) *CatalogImportHandler {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &CatalogImportHandler{
		store:       store,
		importer:    importer,
		prefix:      prefix,
		defaultLang: defaultLang,
		logger:      utils.Component(logger, "catalog-import"),
	}
}

// ImportResult is the result of processing an upload.
type ImportResult struct {
	Message  string                `json:"message"`
	Key      string                `json:"key,omitempty"`
	Version  string                `json:"version,omitempty"`
	Stats    *catalog.Stats        `json:"stats,omitempty"`
	Imported *database.ImportStats `json:"imported,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
	Errors   []string              `json:"errors,omitempty"`
}

// Handle processes S3 events for uploaded catalog files.
func (h *CatalogImportHandler) Handle(ctx context.Context, s3Event events.S3Event) (ImportResult, error) {
	if len(s3Event.Records) == 0 {
		return ImportResult{Message: "No records to process"}, nil
	}

	record := s3Event.Records[0]
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to decode S3 key: %w", err)
	}

	name := strings.TrimPrefix(key, h.prefix)
	if !strings.HasPrefix(key, h.prefix) {
		return ImportResult{Message: "Ignored object outside the catalog prefix", Key: key}, nil
	}
	if _, ok := CatalogContentType(name); !ok {
		return ImportResult{Message: "Ignored non-catalog object", Key: key}, nil
	}

	h.logger.Info("Processing catalog upload",
		zap.String("bucket", record.S3.Bucket.Name),
		zap.String("key", key))

	if name == catalog.RequirementsCSV {
		if problems := h.checkStructure(ctx, key); len(problems) > 0 {
			h.logger.Warn("Requirements file rejected", zap.String("key", key), zap.Strings("problems", problems))
			return ImportResult{Message: "Catalog rejected", Key: key, Errors: problems}, nil
		}
	}

	source := catalog.NewS3Source(h.store, h.prefix)
	raw, err := source.Load(ctx)
	if err != nil {
		h.logger.Warn("Catalog rejected", zap.String("key", key), zap.Error(err))
		return ImportResult{Message: "Catalog rejected", Key: key, Errors: []string{err.Error()}}, nil
	}

	snap, err := catalog.Build(source.Name(), raw, h.defaultLang, h.logger)
	if err != nil {
		h.logger.Warn("Catalog rejected", zap.String("key", key), zap.Error(err))
		return ImportResult{Message: "Catalog rejected", Key: key, Errors: []string{err.Error()}}, nil
	}

	stats := snap.Stats()
	result := ImportResult{
		Message:  "Catalog validated",
		Key:      key,
		Version:  snap.Version,
		Stats:    &stats,
		Warnings: warningLines(snap.Warnings),
	}

	h.logger.Info("Catalog validated",
		zap.String("version", snap.Version),
		zap.Int("requirements", stats.Requirements),
		zap.Int("warnings", stats.Warnings))

	if h.importer == nil {
		return result, nil
	}

	imported, err := h.importer.ReplaceCatalog(ctx, raw.Requirements, raw.Courses, raw.Tags)
	if err != nil {
		h.logger.Error("Failed to import catalog", zap.Error(err))
		return ImportResult{}, fmt.Errorf("failed to import catalog: %w", err)
	}

	h.logger.Info("Imported catalog",
		zap.String("version", snap.Version),
		zap.Int("requirements", imported.Requirements),
		zap.Int("courses", imported.Courses),
		zap.Int("tags", imported.Tags))

	result.Message = "Catalog imported"
	result.Imported = imported
	return result, nil
}

// checkStructure runs the quick header and row check on an uploaded
// requirements CSV before the whole catalog is loaded.
func (h *CatalogImportHandler) checkStructure(ctx context.Context, key string) []string {
	data, err := h.store.DownloadFile(ctx, key)
	if err != nil {
		return []string{err.Error()}
	}

	check, err := utils.ValidateCSVStructure(string(data))
	if err != nil {
		return []string{err.Error()}
	}
	if check.Valid {
		return nil
	}

	problems := make([]string, 0, len(check.Errors)+1)
	if len(check.MissingColumns) > 0 {
		problems = append(problems, "missing columns: "+strings.Join(check.MissingColumns, ", "))
	}
	problems = append(problems, check.Errors...)
	if len(problems) == 0 {
		problems = append(problems, "no requirement rows")
	}
	if len(problems) > maxReportedIssues {
		problems = problems[:maxReportedIssues]
	}
	return problems
}

func warningLines(warnings []catalog.Warning) []string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if len(lines) == maxReportedIssues {
			break
		}
		if w.CourseID != "" {
			lines = append(lines, w.Kind+" "+w.CourseID+": "+w.Detail)
		} else {
			lines = append(lines, w.Kind+": "+w.Detail)
		}
	}
	return lines
}
