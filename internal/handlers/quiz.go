package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/matcher"
	"course-eligibility-engine/internal/utils"
)

// QuizService serves question sets and folds answers into signals.
type QuizService interface {
	Questions(lang string) (*matcher.QuestionSet, error)
	SubmitQuiz(ctx context.Context, lang string, answers []models.Answer) (*matcher.QuizReport, error)
}

// QuizHandler serves GET /quiz (questions) and POST /quiz (answers).
type QuizHandler struct {
	svc    QuizService
	logger *zap.Logger
}

// NewQuizHandler creates a new quiz handler.
func NewQuizHandler(svc QuizService, logger *zap.Logger) *QuizHandler {
	return &QuizHandler{svc: svc, logger: utils.Component(logger, "quiz-handler")}
}

// SubmitRequest is the body of a quiz submission.
type SubmitRequest struct {
	Language string          `json:"lang,omitempty"`
	Answers  []models.Answer `json:"answers"`
}

// Handle dispatches on the HTTP method.
func (h *QuizHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,POST,OPTIONS")
	lang := RequestLanguage(request.QueryStringParameters, request.Headers)

	switch request.HTTPMethod {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil

	case http.MethodGet:
		set, err := h.svc.Questions(lang)
		if err != nil {
			return h.fail(headers, err)
		}
		return jsonResponse(headers, http.StatusOK, set)

	case http.MethodPost:
		var req SubmitRequest
		if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
			return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
		}
		if req.Language == "" {
			req.Language = lang
		}
		report, err := h.svc.SubmitQuiz(ctx, req.Language, req.Answers)
		if err != nil {
			return h.fail(headers, err)
		}
		return jsonResponse(headers, http.StatusOK, report)

	default:
		return errorResponse(headers, http.StatusMethodNotAllowed, "Only GET and POST are allowed")
	}
}

func (h *QuizHandler) fail(headers map[string]string, err error) (events.APIGatewayProxyResponse, error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Quiz request failed", zap.Error(err))
		return errorResponse(headers, status, "Failed to process quiz")
	}
	return errorResponse(headers, status, err.Error())
}
