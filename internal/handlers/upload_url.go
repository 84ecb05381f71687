package handlers

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/services/catalog"
	s3service "course-eligibility-engine/internal/services/s3"
	"course-eligibility-engine/internal/utils"
)

// uploadExpiryMinutes is how long a presigned upload URL stays valid.
const uploadExpiryMinutes = 60

// Presigner generates presigned upload URLs.
type Presigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error)
}

// UploadURLHandler hands out presigned URLs for replacing catalog files.
type UploadURLHandler struct {
	presigner Presigner
	prefix    string
	logger    *zap.Logger
}

// NewUploadURLHandler creates a handler that presigns keys under prefix.
func NewUploadURLHandler(presigner Presigner, prefix string, logger *zap.Logger) *UploadURLHandler {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &UploadURLHandler{presigner: presigner, prefix: prefix, logger: utils.Component(logger, "upload-url")}
}

// UploadURLResponse is the response structure for presigned URL requests.
type UploadURLResponse struct {
	UploadURL   string `json:"uploadUrl"`
	S3Key       string `json:"s3Key"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Handle processes GET /catalog/upload-url?file=<catalog file>.
func (h *UploadURLHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")

	// Handle CORS preflight
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	file := request.QueryStringParameters["file"]
	contentType, ok := CatalogContentType(file)
	if !ok {
		return errorResponse(headers, http.StatusBadRequest,
			"file must be requirements.csv, requirements.xlsx, courses.yaml, tags.yaml or quiz/<lang>.yaml")
	}

	key := h.prefix + file
	result, err := h.presigner.GeneratePresignedUploadURL(ctx, key, contentType, uploadExpiryMinutes)
	if err != nil {
		h.logger.Error("Failed to generate presigned URL", zap.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to generate upload URL")
	}

	h.logger.Info("Generated presigned URL", zap.String("s3Key", key))

	return jsonResponse(headers, http.StatusOK, UploadURLResponse{
		UploadURL:   result.URL,
		S3Key:       key,
		ContentType: contentType,
		ExpiresIn:   uploadExpiryMinutes * 60,
	})
}

// CatalogContentType reports whether name is a catalog file and its content type.
func CatalogContentType(name string) (string, bool) {
	switch name {
	case catalog.RequirementsCSV:
		return "text/csv", true
	case catalog.RequirementsXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true
	case catalog.CoursesFile, catalog.TagsFile:
		return "application/yaml", true
	}

	dir, base := path.Split(name)
	if dir == catalog.QuizDir+"/" && path.Ext(base) == ".yaml" && isLangTag(strings.TrimSuffix(base, ".yaml")) {
		return "application/yaml", true
	}
	return "", false
}

func isLangTag(s string) bool {
	if len(s) < 2 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}
	return true
}
