package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/handlers"
	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/database"
	"course-eligibility-engine/internal/services/eligibility"
	"course-eligibility-engine/internal/services/matcher"
	s3service "course-eligibility-engine/internal/services/s3"
)

const dataDir = "../../data"

func sampleMatcher(t *testing.T) *matcher.Service {
	t.Helper()
	store := catalog.NewStore(catalog.NewFileSource(dataDir), "en", zap.NewNop())
	_, err := store.Reload(context.Background())
	require.NoError(t, err)
	return matcher.NewService(store, eligibility.DefaultPolicy(), zap.NewNop())
}

const recommendBody = `{
	"student": {
		"grades": {"bm": "A", "sejarah": "B", "math": "A", "english": "B+", "sci": "A-", "phy": "B", "chem": "C", "bio": "B"},
		"merit_score": 80,
		"is_malaysian": true,
		"gender": "L",
		"color_blind": false,
		"disability": false
	},
	"answers": [
		{"question_id": "q1_work_style", "option_index": 0},
		{"question_id": "q2_environment", "option_index": 0},
		{"question_id": "q3_learning", "option_index": 0},
		{"question_id": "q4_priority", "option_index": 0},
		{"question_id": "q5_energy", "option_index": 0},
		{"question_id": "q6_allowance", "option_index": 0}
	]
}`

func decodeError(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body["message"]
}

func TestRecommendHandler(t *testing.T) {
	h := handlers.NewRecommendHandler(sampleMatcher(t), zap.NewNop())
	ctx := context.Background()

	t.Run("preflight", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("empty body", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: "{"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown question", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodPost,
			Body:       `{"student": {"grades": {}}, "answers": [{"question_id": "q99", "option_index": 0}]}`,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp), "Unknown question_id")
	})

	t.Run("language from query", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod:            http.MethodPost,
			Body:                  recommendBody,
			QueryStringParameters: map[string]string{"lang": "ms"},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec matcher.Recommendation
		require.NoError(t, json.Unmarshal([]byte(resp.Body), &rec))
		assert.Equal(t, "ms", rec.Language)
		assert.Equal(t, 9, rec.EligibleCount)
		assert.Len(t, rec.Ranked.Top5, 5)
		assert.Equal(t, "TVET-WELD", rec.Ranked.Top5[0].CourseID)
	})

	t.Run("language from header", func(t *testing.T) {
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodPost,
			Body:       recommendBody,
			Headers:    map[string]string{"accept-language": "ms-MY"},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Body, `"lang":"ms"`)
	})
}

type failingRecommender struct {
	err error
}

func (f failingRecommender) Recommend(context.Context, matcher.Request) (*matcher.Recommendation, error) {
	return nil, f.err
}

func TestRecommendHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not loaded", catalog.ErrNotLoaded, http.StatusServiceUnavailable, catalog.ErrNotLoaded.Error()},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "Failed to generate recommendations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewRecommendHandler(failingRecommender{err: tt.err}, zap.NewNop())
			resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
				HTTPMethod: http.MethodPost,
				Body:       recommendBody,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, decodeError(t, resp))
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, handlers.StatusFor(models.NewValidationError(0, models.ErrOptionOutOfRange, "")))
	assert.Equal(t, http.StatusServiceUnavailable, handlers.StatusFor(fmt.Errorf("wrapped: %w", catalog.ErrNotLoaded)))
	assert.Equal(t, http.StatusInternalServerError, handlers.StatusFor(errors.New("other")))
}

func TestQuizHandler(t *testing.T) {
	h := handlers.NewQuizHandler(sampleMatcher(t), zap.NewNop())
	ctx := context.Background()

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"lang": "ms"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var set matcher.QuestionSet
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &set))
	assert.Equal(t, "ms", set.Language)
	assert.Len(t, set.Questions, 6)

	resp, err = h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"answers": [{"question_id": "q6_allowance", "option_index": 0}]}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"lang":"en"`)

	resp, err = h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: `{"answers": []}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type stubStats struct {
	err error
}

func (s stubStats) Stats() (catalog.Stats, error) {
	return catalog.Stats{Version: "abc123def456", Requirements: 9}, s.err
}

type stubPinger struct {
	err error
}

func (p stubPinger) HealthCheck(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy without backends", func(t *testing.T) {
		h := handlers.NewHealthHandler(stubStats{}, nil, nil, "test")
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body handlers.HealthResponse
		require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "not configured", body.Database)
		assert.Equal(t, "not configured", body.Cache)
		assert.Equal(t, "test", body.Stage)
		require.NotNil(t, body.Catalog)
		assert.Equal(t, 9, body.Catalog.Requirements)
	})

	t.Run("database down", func(t *testing.T) {
		h := handlers.NewHealthHandler(stubStats{}, stubPinger{err: errors.New("refused")}, stubPinger{}, "test")
		body := h.Check(ctx)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "disconnected", body.Database)
		assert.Equal(t, "connected", body.Cache)
	})

	t.Run("cache down only", func(t *testing.T) {
		h := handlers.NewHealthHandler(stubStats{}, nil, stubPinger{err: errors.New("refused")}, "test")
		body := h.Check(ctx)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "disconnected", body.Cache)
	})

	t.Run("catalog not loaded", func(t *testing.T) {
		h := handlers.NewHealthHandler(stubStats{err: catalog.ErrNotLoaded}, nil, nil, "test")
		resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.NotContains(t, resp.Body, `"catalog"`)
	})
}

type recordingPresigner struct {
	keys []string
	err  error
}

func (p *recordingPresigner) GeneratePresignedUploadURL(_ context.Context, key, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.keys = append(p.keys, key)
	return &s3service.PresignedURLResult{
		URL:       "https://bucket.s3.amazonaws.com/" + key + "?sig=1",
		Key:       key,
		ExpiresAt: time.Now().Add(time.Duration(expiryMinutes) * time.Minute),
	}, nil
}

func TestUploadURLHandler(t *testing.T) {
	presigner := &recordingPresigner{}
	h := handlers.NewUploadURLHandler(presigner, "catalog", zap.NewNop())
	ctx := context.Background()

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"file": "quiz/ms.yaml"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.UploadURLResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "catalog/quiz/ms.yaml", body.S3Key)
	assert.Equal(t, "application/yaml", body.ContentType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, []string{"catalog/quiz/ms.yaml"}, presigner.keys)

	resp, err = h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"file": "../secrets.csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	failing := handlers.NewUploadURLHandler(&recordingPresigner{err: errors.New("denied")}, "catalog/", zap.NewNop())
	resp, err = failing.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"file": "requirements.csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCatalogContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"requirements.csv", "text/csv", true},
		{"requirements.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
		{"courses.yaml", "application/yaml", true},
		{"tags.yaml", "application/yaml", true},
		{"quiz/en.yaml", "application/yaml", true},
		{"quiz/EN.yaml", "", false},
		{"quiz/nested/en.yaml", "", false},
		{"students.csv", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := handlers.CatalogContentType(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
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

func sampleObjects(t *testing.T) memoryObjects {
	t.Helper()
	objects := memoryObjects{}
	for _, name := range []string{catalog.RequirementsCSV, catalog.CoursesFile, catalog.TagsFile} {
		data, err := os.ReadFile(filepath.Join(dataDir, name))
		require.NoError(t, err)
		objects["catalog/"+name] = data
	}
	return objects
}

type recordingImporter struct {
	calls int
	err   error
}

func (r *recordingImporter) ReplaceCatalog(_ context.Context, reqs []*models.RequirementRecord, courses []models.Course, tags models.TagCatalog) (*database.ImportStats, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &database.ImportStats{Requirements: len(reqs), Courses: len(courses), Tags: len(tags)}, nil
}

func uploadEvent(key string) events.S3Event {
	return events.S3Event{Records: []events.S3EventRecord{{
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: "course-catalog"},
			Object: events.S3Object{Key: key},
		},
	}}}
}

func TestCatalogImportHandler_ValidatesOnly(t *testing.T) {
	h := handlers.NewCatalogImportHandler(sampleObjects(t), nil, "catalog", "en", zap.NewNop())

	result, err := h.Handle(context.Background(), uploadEvent("catalog/requirements.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Catalog validated", result.Message)
	assert.Len(t, result.Version, 12)
	require.NotNil(t, result.Stats)
	assert.Equal(t, 9, result.Stats.Requirements)
	assert.Nil(t, result.Imported)
	assert.Empty(t, result.Errors)
}

func TestCatalogImportHandler_Imports(t *testing.T) {
	importer := &recordingImporter{}
	h := handlers.NewCatalogImportHandler(sampleObjects(t), importer, "catalog/", "en", zap.NewNop())

	result, err := h.Handle(context.Background(), uploadEvent("catalog%2Ftags.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Catalog imported", result.Message)
	assert.Equal(t, "catalog/tags.yaml", result.Key)
	require.NotNil(t, result.Imported)
	assert.Equal(t, 9, result.Imported.Requirements)
	assert.Equal(t, 1, importer.calls)
}

func TestCatalogImportHandler_ImportFailure(t *testing.T) {
	importer := &recordingImporter{err: errors.New("deadlock")}
	h := handlers.NewCatalogImportHandler(sampleObjects(t), importer, "catalog/", "en", zap.NewNop())

	_, err := h.Handle(context.Background(), uploadEvent("catalog/courses.yaml"))
	assert.ErrorContains(t, err, "deadlock")
}

func TestCatalogImportHandler_Ignores(t *testing.T) {
	importer := &recordingImporter{}
	h := handlers.NewCatalogImportHandler(sampleObjects(t), importer, "catalog/", "en", zap.NewNop())
	ctx := context.Background()

	result, err := h.Handle(ctx, events.S3Event{})
	require.NoError(t, err)
	assert.Equal(t, "No records to process", result.Message)

	result, err = h.Handle(ctx, uploadEvent("uploads/requirements.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Ignored object outside the catalog prefix", result.Message)

	result, err = h.Handle(ctx, uploadEvent("catalog/notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Ignored non-catalog object", result.Message)

	assert.Zero(t, importer.calls)
}

func TestCatalogImportHandler_RejectsIncompleteCatalog(t *testing.T) {
	objects := sampleObjects(t)
	delete(objects, "catalog/courses.yaml")

	importer := &recordingImporter{}
	h := handlers.NewCatalogImportHandler(objects, importer, "catalog/", "en", zap.NewNop())

	result, err := h.Handle(context.Background(), uploadEvent("catalog/requirements.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Catalog rejected", result.Message)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "courses.yaml")
	assert.Zero(t, importer.calls)
}

func TestCatalogImportHandler_RejectsMalformedRequirements(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing column", "min_credits\n3\n", "missing columns: course_id"},
		{"header only", "course_id,min_credits\n", "no requirement rows"},
		{"empty", "", "empty file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := sampleObjects(t)
			objects["catalog/requirements.csv"] = []byte(tt.content)

			importer := &recordingImporter{}
			h := handlers.NewCatalogImportHandler(objects, importer, "catalog/", "en", zap.NewNop())

			result, err := h.Handle(context.Background(), uploadEvent("catalog/requirements.csv"))
			require.NoError(t, err)
			assert.Equal(t, "Catalog rejected", result.Message)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.want, result.Errors[0])
			assert.Zero(t, importer.calls)
		})
	}
}
