package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"course-eligibility-engine/internal/app"
	"course-eligibility-engine/internal/services/catalog"
)

// Pinger is a backend that can report whether it is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// StatsProvider reports on the active catalog snapshot.
type StatsProvider interface {
	Stats() (catalog.Stats, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	catalog StatsProvider
	db      Pinger
	cache   Pinger
	stage   string
}

// NewHealthHandler creates a health handler. db and cache may be nil.
func NewHealthHandler(catalog StatsProvider, db, cache Pinger, stage string) *HealthHandler {
	return &HealthHandler{catalog: catalog, db: db, cache: cache, stage: stage}
}

// NewHealthHandlerFromApp creates a health handler over an application's backends.
func NewHealthHandlerFromApp(a *app.App) *HealthHandler {
	h := &HealthHandler{catalog: a.Matcher, stage: a.Config.Stage}
	if a.DB != nil {
		h.db = a.DB
	}
	if a.Cache != nil {
		h.cache = a.Cache
	}
	return h
}

// HealthResponse is the response structure for health checks.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Service   string         `json:"service"`
	Version   string         `json:"version"`
	Stage     string         `json:"stage"`
	Database  string         `json:"database,omitempty"`
	Cache     string         `json:"cache,omitempty"`
	Catalog   *catalog.Stats `json:"catalog,omitempty"`
}

// Check probes the catalog and every configured backend.
func (h *HealthHandler) Check(ctx context.Context) HealthResponse {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "course-eligibility-engine",
		Version:   getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
		Stage:     h.stage,
	}

	if h.catalog != nil {
		if stats, err := h.catalog.Stats(); err == nil {
			response.Catalog = &stats
		}
	}
	if response.Catalog == nil {
		response.Status = "degraded"
	}

	response.Database = probe(ctx, h.db)
	response.Cache = probe(ctx, h.cache)
	if response.Database == "disconnected" {
		response.Status = "degraded"
	}

	return response
}

// Handle processes health check requests.
func (h *HealthHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	response := h.Check(ctx)

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return jsonResponse(headers, statusCode, response)
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.HealthCheck(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// getEnvOrDefault returns environment variable or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
