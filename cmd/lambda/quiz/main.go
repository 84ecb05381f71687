// Quiz Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"course-eligibility-engine/internal/app"
	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/handlers"
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

	application, err := app.New(context.Background(), cfg, utils.GetLogger())
	if err != nil {
		panic("Failed to start application: " + err.Error())
	}
	defer application.Close()

	// Start Lambda
	lambda.Start(handlers.NewQuizHandler(application.Matcher, application.Logger).Handle)
}
