package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/datasprint/datasprint-api/internal/derive"
	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
)

func newPipelineFixture(t *testing.T) (*submissionService, *stubChallengeRepo, *stubSubmissionRepo, *stubUserRepo, *stubUploader) {
	t.Helper()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	challenges := &stubChallengeRepo{challenges: []models.Challenge{{
		ID:         "ch-medium",
		Title:      "Churn Prediction",
		Difficulty: models.DifficultyMedium,
		Points:     800,
		Deadline:   now.Add(72 * time.Hour),
		Status:     models.ChallengeStatusActive,
	}}}
	submissions := &stubSubmissionRepo{}
	users := newStubUserRepo(&models.User{
		ID:       "dana@example.com",
		Email:    "dana@example.com",
		Name:     "Dana",
		Role:     models.RoleUser,
		JoinedAt: now.Add(-48 * time.Hour),
	})
	uploader := &stubUploader{result: UploadResult{FileID: "obj-1", FileURL: "https://files.example.com/obj-1"}}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSubmissionService(submissions, challenges, users, uploader, validate, &recordingEvents{}, &recordingInvalidator{}, testLogger()).(*submissionService)
	svc.now = func() time.Time { return now }

	return svc, challenges, submissions, users, uploader
}

func submitActor() SubmitActor {
	return SubmitActor{UserID: "dana@example.com", Name: "Dana", Email: "dana@example.com"}
}

func TestSubmitPipelineSuccess(t *testing.T) {
	svc, challenges, submissions, users, _ := newPipelineFixture(t)

	result, err := svc.Submit(context.Background(), "ch-medium", submitActor(), "solution.csv", 64, strings.NewReader("id,churn\n1,0\n"))
	require.NoError(t, err)

	require.NotEmpty(t, result.ID)
	require.Equal(t, models.SubmissionStatusPending, result.Status)
	require.Equal(t, "Dana", result.UserName)
	require.Equal(t, "https://files.example.com/obj-1", result.FileURL)

	require.Len(t, submissions.submissions, 1)
	require.Equal(t, 1, challenges.incrementCalls["ch-medium"])

	user, err := users.GetByID(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.Len(t, user.AcceptedChallenges, 1)
	require.True(t, user.AcceptedChallenges[0].Completed)

	require.Equal(t, 800, users.derivedPoints["dana@example.com"])
	require.Contains(t, string(users.derivedBadges["dana@example.com"]), derive.BadgeBronze)
}

func TestSubmitPipelineUploadFailureLeavesNoRecord(t *testing.T) {
	svc, challenges, submissions, users, uploader := newPipelineFixture(t)
	uploader.err = errors.New("provider unavailable")

	_, err := svc.Submit(context.Background(), "ch-medium", submitActor(), "solution.csv", 64, strings.NewReader("data"))
	require.Error(t, err)

	require.Empty(t, submissions.submissions)
	require.Zero(t, challenges.incrementCalls["ch-medium"])

	user, err := users.GetByID(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.Empty(t, user.AcceptedChallenges)
}

func TestSubmitPipelineRepeatIncrementsAgain(t *testing.T) {
	svc, challenges, submissions, users, _ := newPipelineFixture(t)

	_, err := svc.Submit(context.Background(), "ch-medium", submitActor(), "first.csv", 10, strings.NewReader("a"))
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), "ch-medium", submitActor(), "second.csv", 10, strings.NewReader("b"))
	require.NoError(t, err)

	// Every submission counts, but completion and points are awarded once.
	require.Len(t, submissions.submissions, 2)
	require.Equal(t, 2, challenges.incrementCalls["ch-medium"])

	user, err := users.GetByID(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.Len(t, user.AcceptedChallenges, 1)
	require.Equal(t, 800, users.derivedPoints["dana@example.com"])
}

func TestSubmitPipelineChallengeNotFound(t *testing.T) {
	svc, _, submissions, _, uploader := newPipelineFixture(t)

	_, err := svc.Submit(context.Background(), "missing", submitActor(), "solution.csv", 10, strings.NewReader("a"))
	require.ErrorIs(t, err, ErrChallengeNotFound)
	require.Zero(t, uploader.calls)
	require.Empty(t, submissions.submissions)
}

func TestSubmitPipelineExpiredChallenge(t *testing.T) {
	svc, challenges, _, _, uploader := newPipelineFixture(t)
	challenges.challenges[0].Deadline = time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Submit(context.Background(), "ch-medium", submitActor(), "solution.csv", 10, strings.NewReader("a"))
	require.ErrorIs(t, err, ErrChallengeClosed)
	require.Zero(t, uploader.calls)
}

func TestSubmitPipelineMissingFile(t *testing.T) {
	svc, _, _, _, _ := newPipelineFixture(t)

	_, err := svc.Submit(context.Background(), "ch-medium", submitActor(), "", 0, nil)
	require.ErrorIs(t, err, ErrFileRequired)
}

func TestGradeSubmission(t *testing.T) {
	svc, _, submissions, _, _ := newPipelineFixture(t)
	submissions.submissions = []models.Submission{{
		ID:          "sub-1",
		ChallengeID: "ch-medium",
		UserID:      "dana@example.com",
		Status:      models.SubmissionStatusPending,
	}}

	score := 87
	feedback := "Solid feature engineering.<script>alert(1)</script>"
	result, err := svc.Grade(context.Background(), "sub-1", dto.SubmissionGradeRequest{Score: &score, Feedback: &feedback})
	require.NoError(t, err)

	require.Equal(t, 87, result.Score)
	require.Equal(t, models.SubmissionStatusEvaluated, result.Status)
	require.NotContains(t, result.Feedback, "<script>")
	require.Contains(t, result.Feedback, "Solid feature engineering.")
}

func TestGradeSubmissionNotFound(t *testing.T) {
	svc, _, _, _, _ := newPipelineFixture(t)

	score := 50
	_, err := svc.Grade(context.Background(), "missing", dto.SubmissionGradeRequest{Score: &score})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
