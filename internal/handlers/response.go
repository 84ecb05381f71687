// Package handlers provides API Gateway and S3 event handlers for the course eligibility engine.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/catalog"
)

// corsHeaders returns the CORS and content headers for a set of methods.
func corsHeaders(methods string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization,Accept-Language",
		"Access-Control-Allow-Methods": methods,
		"Content-Type":                 "application/json",
	}
}

// jsonResponse marshals body into a proxy response.
func jsonResponse(headers map[string]string, statusCode int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return errorResponse(headers, http.StatusInternalServerError, "Failed to encode response")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(data),
	}, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"error":   http.StatusText(statusCode),
		"message": message,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// StatusFor maps a pipeline error to an HTTP status. Malformed input is the
// caller's fault; a missing catalog means the service is not ready yet.
func StatusFor(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RequestLanguage picks the language from the lang query parameter, falling
// back to the Accept-Language header.
func RequestLanguage(query map[string]string, headers map[string]string) string {
	if lang := strings.TrimSpace(query["lang"]); lang != "" {
		return lang
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Accept-Language") {
			return v
		}
	}
	return ""
}
