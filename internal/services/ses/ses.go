// Package ses sends recommendation summaries by email via AWS SES
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/utils"
)

// ErrNoSender is returned when no sender address is configured.
var ErrNoSender = errors.New("SES sender email is not configured")

// API is the subset of the SES client the service calls.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    API
	fromEmail string
	logger    *zap.Logger
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// SummaryParams is the content of a results summary email.
type SummaryParams struct {
	To          string
	Language    string
	RunID       string
	SummaryText string
	TopCourses  []models.RankedCourse
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	if appCfg.SESSenderEmail == "" {
		return nil, ErrNoSender
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:    ses.NewFromConfig(cfg),
		fromEmail: appCfg.SESSenderEmail,
		logger:    utils.Component(nil, "ses"),
	}, nil
}

// NewWithClient creates a service over an existing client.
func NewWithClient(client API, fromEmail string, logger *zap.Logger) *Service {
	return &Service{client: client, fromEmail: fromEmail, logger: utils.OrNop(logger)}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	s.logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendResultsSummary emails the top courses and summary of a recommendation run.
func (s *Service) SendResultsSummary(ctx context.Context, params SummaryParams) (*SendEmailResult, error) {
	if strings.TrimSpace(params.To) == "" {
		return nil, fmt.Errorf("recipient email is required")
	}

	htmlBody, err := renderSummaryHTML(params)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	return s.SendEmail(ctx, EmailParams{
		To:       params.To,
		Subject:  summarySubject(params.Language),
		HTMLBody: htmlBody,
		TextBody: renderSummaryText(params),
	})
}

func summarySubject(lang string) string {
	if lang == "ms" {
		return "Keputusan padanan kursus anda"
	}
	return "Your course match results"
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <p>{{.SummaryText}}</p>
    <ol>
    {{range .TopCourses}}
        <li>
            <strong>{{.Name}}</strong> ({{.CourseID}})<br>
            <span style="color: {{.MeritColor}}">{{.MeritLabel}}</span> &middot; {{printf "%.1f" .FitScore}}
        </li>
    {{end}}
    </ol>
    <p style="color: #999; font-size: 12px;">Ref: {{.RunID}}</p>
</body>
</html>`))

func renderSummaryHTML(params SummaryParams) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderSummaryText(params SummaryParams) string {
	var buf bytes.Buffer

	buf.WriteString(params.SummaryText)
	buf.WriteString("\n\n")
	for i, c := range params.TopCourses {
		fmt.Fprintf(&buf, "%d. %s (%s) - %s, fit %.1f\n", i+1, c.Name, c.CourseID, c.MeritLabel, c.FitScore)
	}
	fmt.Fprintf(&buf, "\nRef: %s\n", params.RunID)

	return buf.String()
}
