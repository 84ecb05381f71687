package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/handlers"
	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/matcher"
)

// Pipeline is the part of the matcher service the API exposes.
type Pipeline interface {
	Questions(lang string) (*matcher.QuestionSet, error)
	SubmitQuiz(ctx context.Context, lang string, answers []models.Answer) (*matcher.QuizReport, error)
	CheckEligibility(ctx context.Context, student models.Student, lang string) (*matcher.EligibilityReport, error)
	Recommend(ctx context.Context, req matcher.Request) (*matcher.Recommendation, error)
	Reload(ctx context.Context) (catalog.Stats, error)
}

// RunHistory reads recorded recommendation runs.
type RunHistory interface {
	GetByID(ctx context.Context, id string) (*models.RunSummary, error)
	ListRecent(ctx context.Context, limit int) ([]*models.RunSummary, error)
}

// Server holds all dependencies
type Server struct {
	matcher Pipeline
	health  *handlers.HealthHandler
	runs    RunHistory
	logger  *zap.Logger
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// EligibilityRequest is the body of an eligibility check.
type EligibilityRequest struct {
	Student  models.Student `json:"student"`
	Language string         `json:"lang,omitempty"`
}

// Routes builds the mux wrapped in CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/health", s.healthHandler)

	// Quiz
	mux.HandleFunc("/api/quiz/questions", s.questionsHandler)
	mux.HandleFunc("/api/quiz/submit", s.submitQuizHandler)

	// Eligibility and recommendations
	mux.HandleFunc("/api/eligibility/check", s.eligibilityHandler)
	mux.HandleFunc("/api/recommend", s.recommendHandler)

	// Run history
	mux.HandleFunc("/api/runs", s.runsHandler)
	mux.HandleFunc("/api/runs/", s.runHandler)

	// Admin
	mux.HandleFunc("/api/admin/reload", s.reloadHandler)

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Check(r.Context())

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, Response{
		Success: status == http.StatusOK,
		Message: "Course Eligibility Engine API is running",
		Data:    health,
	})
}

func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	set, err := s.matcher.Questions(requestLanguage(r, ""))
	if err != nil {
		s.writeError(w, err, "Failed to load questions")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: set})
}

func (s *Server) submitQuizHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req handlers.SubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.matcher.SubmitQuiz(r.Context(), requestLanguage(r, req.Language), req.Answers)
	if err != nil {
		s.writeError(w, err, "Failed to process quiz")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: report})
}

func (s *Server) eligibilityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EligibilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.matcher.CheckEligibility(r.Context(), req.Student, requestLanguage(r, req.Language))
	if err != nil {
		s.writeError(w, err, "Failed to check eligibility")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: report.Insights.SummaryText,
		Data:    report,
	})
}

func (s *Server) recommendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req matcher.Request
	if !decodeBody(w, r, &req) {
		return
	}
	req.Language = requestLanguage(r, req.Language)

	rec, err := s.matcher.Recommend(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "Failed to generate recommendations")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: rec.Insights.SummaryText,
		Data:    rec,
	})
}

func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.runs == nil {
		writeJSON(w, http.StatusOK, Response{Success: true, Data: []*models.RunSummary{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch runs"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: runs})
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "run id is required"})
		return
	}
	if s.runs == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Run history is not enabled"})
		return
	}

	run, err := s.runs.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to fetch run", zap.String("run_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch run"})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "Run not found"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: run})
}

func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.matcher.Reload(r.Context())
	if err != nil {
		s.logger.Error("Catalog reload failed", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Message: "Previous catalog is still active",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Catalog reloaded",
		Data:    stats,
	})
}

// writeError maps pipeline errors to a status. Validation messages go back
// verbatim; anything unexpected is logged and replaced by fallback.
func (s *Server) writeError(w http.ResponseWriter, err error, fallback string) {
	status := handlers.StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(fallback, zap.Error(err))
		message = fallback
	}
	writeJSON(w, status, Response{Success: false, Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return false
	}
	return true
}

// requestLanguage prefers the body value, then ?lang=, then Accept-Language.
func requestLanguage(r *http.Request, bodyLang string) string {
	if bodyLang != "" {
		return bodyLang
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
