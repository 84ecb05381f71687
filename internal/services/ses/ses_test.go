package ses_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/models"
	"course-eligibility-engine/internal/services/ses"
)

type recordingSES struct {
	inputs []*awsses.SendEmailInput
	err    error
}

func (r *recordingSES) SendEmail(_ context.Context, in *awsses.SendEmailInput, _ ...func(*awsses.Options)) (*awsses.SendEmailOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.inputs = append(r.inputs, in)
	return &awsses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func topCourse() models.RankedCourse {
	return models.RankedCourse{
		EligibleCourse: models.EligibleCourse{
			Course:     models.Course{CourseID: "POLY-DKM", Name: "Diploma Kejuruteraan Mekanikal"},
			MeritLabel: models.MeritLabelHigh,
			MeritColor: models.MeritColorHigh,
		},
		FitScore: 6.5,
	}
}

func TestSendResultsSummary(t *testing.T) {
	client := &recordingSES{}
	svc := ses.NewWithClient(client, "noreply@example.com", nil)

	result, err := svc.SendResultsSummary(context.Background(), ses.SummaryParams{
		To:          "student@example.com",
		Language:    "ms",
		RunID:       "run-1",
		SummaryText: "Anda layak untuk 1 kursus merentasi 1 aliran.",
		TopCourses:  []models.RankedCourse{topCourse()},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", result.MessageID)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "noreply@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"student@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Keputusan padanan kursus anda", aws.ToString(in.Message.Subject.Data))
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "Diploma Kejuruteraan Mekanikal")
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "1. Diploma Kejuruteraan Mekanikal (POLY-DKM) - High, fit 6.5")
}

func TestSendResultsSummary_Errors(t *testing.T) {
	svc := ses.NewWithClient(&recordingSES{}, "noreply@example.com", nil)
	_, err := svc.SendResultsSummary(context.Background(), ses.SummaryParams{})
	assert.Error(t, err)

	failing := ses.NewWithClient(&recordingSES{err: errors.New("throttled")}, "noreply@example.com", nil)
	_, err = failing.SendResultsSummary(context.Background(), ses.SummaryParams{To: "a@example.com"})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewService_RequiresSender(t *testing.T) {
	_, err := ses.NewService(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ses.ErrNoSender)
}
