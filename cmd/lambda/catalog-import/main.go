// Catalog import Lambda entry point, triggered by S3 uploads under the catalog prefix
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/handlers"
	"course-eligibility-engine/internal/services/database"
	s3service "course-eligibility-engine/internal/services/s3"
	"course-eligibility-engine/internal/utils"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic("Invalid configuration: " + err.Error())
	}

	// Initialize logger
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()
	logger := utils.GetLogger()

	store, err := s3service.NewService(ctx, cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	// Without a database uploads are validated only
	var importer handlers.CatalogImporter
	if cfg.DatabaseConfigured() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			panic("Failed to connect to database: " + err.Error())
		}
		defer db.Close()
		importer = database.NewCatalogRepository(db)
	}

	handler := handlers.NewCatalogImportHandler(store, importer, cfg.S3CatalogPrefix, cfg.DefaultLanguage, logger)

	// Start Lambda
	lambda.Start(handler.Handle)
}
