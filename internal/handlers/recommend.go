package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/services/matcher"
	"course-eligibility-engine/internal/utils"
)

// Recommender runs the recommendation pipeline.
type Recommender interface {
	Recommend(ctx context.Context, req matcher.Request) (*matcher.Recommendation, error)
}

// RecommendHandler serves POST /recommend through API Gateway.
type RecommendHandler struct {
	svc    Recommender
	logger *zap.Logger
}

// NewRecommendHandler creates a new recommend handler.
func NewRecommendHandler(svc Recommender, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{svc: svc, logger: utils.Component(logger, "recommend-handler")}
}

// Handle decodes the request, runs the pipeline and returns the ranked result.
func (h *RecommendHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("POST,OPTIONS")

	// Handle CORS preflight
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}
	if request.HTTPMethod != http.MethodPost {
		return errorResponse(headers, http.StatusMethodNotAllowed, "Only POST is allowed")
	}

	var req matcher.Request
	body := request.Body
	if strings.TrimSpace(body) == "" {
		return errorResponse(headers, http.StatusBadRequest, "Request body is required")
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Language == "" {
		req.Language = RequestLanguage(request.QueryStringParameters, request.Headers)
	}

	rec, err := h.svc.Recommend(ctx, req)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Recommendation failed", zap.Error(err))
			return errorResponse(headers, status, "Failed to generate recommendations")
		}
		return errorResponse(headers, status, err.Error())
	}

	return jsonResponse(headers, http.StatusOK, rec)
}
