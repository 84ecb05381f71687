// Catalog upload URL Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/handlers"
	s3service "course-eligibility-engine/internal/services/s3"
	"course-eligibility-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Invalid configuration: " + err.Error())
	}

	// Initialize logger
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	store, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	handler := handlers.NewUploadURLHandler(store, cfg.S3CatalogPrefix, utils.GetLogger())

	// Start Lambda
	lambda.Start(handler.Handle)
}
