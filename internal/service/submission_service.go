package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/derive"
	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/observability"
	"github.com/datasprint/datasprint-api/internal/repository"
)

// SubmitActor identifies the submitting user. Name and email are copied onto
// the submission record so it stays readable after the profile changes.
type SubmitActor struct {
	UserID string
	Name   string
	Email  string
}

// SubmissionService runs the submission pipeline and serves submission reads.
type SubmissionService interface {
	Submit(ctx context.Context, challengeID string, actor SubmitActor, fileName string, size int64, reader io.Reader) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id string) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id string, req dto.SubmissionGradeRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	challenges  repository.ChallengeRepository
	users       repository.UserRepository
	uploads     UploadService
	validate    *validator.Validate
	sanitizer   *bluemonday.Policy
	events      ChangePublisher
	leaderboard CacheInvalidator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService wires the pipeline service.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	challenges repository.ChallengeRepository,
	users repository.UserRepository,
	uploads UploadService,
	validate *validator.Validate,
	events ChangePublisher,
	leaderboard CacheInvalidator,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		challenges:  challenges,
		users:       users,
		uploads:     uploads,
		validate:    validate,
		sanitizer:   bluemonday.UGCPolicy(),
		events:      events,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("datasprint/submission"),
		now:         time.Now,
	}
}

// Submit runs the pipeline in strict order: forward the file, create the
// submission record, bump the challenge counter, mark the challenge completed
// for the user, then recompute the user's derived points and badges.
//
// An upload failure aborts before any record is written. Once the submission
// record exists it is durable: later step failures are logged and counted but
// never roll it back, and the next derivation read converges the totals.
func (s *submissionService) Submit(ctx context.Context, challengeID string, actor SubmitActor, fileName string, size int64, reader io.Reader) (dto.SubmissionResponse, error) {
	if actor.UserID == "" {
		return dto.SubmissionResponse{}, ErrUserNotFound
	}
	if fileName == "" || reader == nil {
		observability.Submissions().WithLabelValues("rejected").Inc()
		return dto.SubmissionResponse{}, ErrFileRequired
	}

	ctx, span := s.tracer.Start(ctx, "submission.pipeline", trace.WithAttributes(
		attribute.String("challenge.id", challengeID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		observability.Submissions().WithLabelValues("rejected").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrChallengeNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	now := s.now().UTC()
	if challenge.Status == models.ChallengeStatusUpcoming {
		observability.Submissions().WithLabelValues("rejected").Inc()
		return dto.SubmissionResponse{}, ErrChallengeNotStarted
	}
	if challenge.IsExpired(now) {
		observability.Submissions().WithLabelValues("rejected").Inc()
		return dto.SubmissionResponse{}, ErrChallengeClosed
	}

	result, err := s.uploads.Forward(ctx, fileName, size, reader)
	if err != nil {
		observability.Submissions().WithLabelValues("upload_failed").Inc()
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		UserID:      actor.UserID,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
		FileName:    fileName,
		FileURL:     result.FileURL,
		Status:      models.SubmissionStatusPending,
		SubmittedAt: now,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		observability.Submissions().WithLabelValues("record_failed").Inc()
		s.logger.Error().Err(err).Str("challenge_id", challenge.ID).Msg("failed to create submission record")
		return dto.SubmissionResponse{}, err
	}

	if err := s.challenges.IncrementSubmissionCount(ctx, challenge.ID); err != nil {
		observability.SubmissionStepFailures().WithLabelValues("increment_counter").Inc()
		s.logger.Error().Err(err).Str("challenge_id", challenge.ID).Msg("failed to increment submission counter")
	}

	entry := models.AcceptedChallenge{UserID: actor.UserID, ChallengeID: challenge.ID, AcceptedAt: now}
	if err := s.users.AcceptChallenge(ctx, &entry); err != nil {
		observability.SubmissionStepFailures().WithLabelValues("accept_entry").Inc()
		s.logger.Error().Err(err).Str("user_id", actor.UserID).Msg("failed to ensure accepted-challenge entry")
	}

	if err := s.users.MarkChallengeCompleted(ctx, actor.UserID, challenge.ID); err != nil {
		observability.SubmissionStepFailures().WithLabelValues("mark_completed").Inc()
		s.logger.Error().Err(err).Str("user_id", actor.UserID).Msg("failed to mark challenge completed")
	}

	s.recomputeDerived(ctx, actor.UserID)

	if err := s.users.TouchLastActive(ctx, actor.UserID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", actor.UserID).Msg("failed to refresh last activity")
	}

	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionSubmissions,
		Action:     dto.ChangeActionCreated,
		DocumentID: submission.ID,
	})
	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionChallenges,
		Action:     dto.ChangeActionUpdated,
		DocumentID: challenge.ID,
	})
	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionUsers,
		Action:     dto.ChangeActionUpdated,
		DocumentID: actor.UserID,
	})
	s.leaderboard.Invalidate(ctx)

	observability.Submissions().WithLabelValues("success").Inc()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("challenge_id", challenge.ID).
		Str("user_id", actor.UserID).
		Msg("submission accepted")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		ChallengeID: filter.ChallengeID,
		UserID:      filter.UserID,
		Status:      filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Grade records the administrator's score and feedback. Grading does not feed
// the points system; totals come from challenge completion alone.
func (s *submissionService) Grade(ctx context.Context, id string, req dto.SubmissionGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if req.Score != nil {
		submission.Score = *req.Score
	}
	if req.Feedback != nil {
		submission.Feedback = s.sanitizer.Sanitize(*req.Feedback)
	}
	if req.Status != nil {
		submission.Status = *req.Status
	} else if req.Score != nil {
		submission.Status = models.SubmissionStatusEvaluated
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		s.logger.Error().Err(err).Str("submission_id", id).Msg("failed to grade submission")
		return dto.SubmissionResponse{}, err
	}

	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionSubmissions,
		Action:     dto.ChangeActionUpdated,
		DocumentID: submission.ID,
	})

	return dto.NewSubmissionResponse(submission), nil
}

// recomputeDerived reloads the user and persists freshly derived totals and
// badges. Failures are logged only; the next profile read converges.
func (s *submissionService) recomputeDerived(ctx context.Context, userID string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		observability.SubmissionStepFailures().WithLabelValues("recompute").Inc()
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to reload user for derivation")
		return
	}

	challenges, err := s.challenges.List(ctx)
	if err != nil {
		observability.SubmissionStepFailures().WithLabelValues("recompute").Inc()
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load challenges for derivation")
		return
	}

	stats := derive.UserStats(user, challenges)
	badges := derive.Badges(user.BadgeList(), stats, s.now())

	if err := s.users.UpdateDerivedState(ctx, userID, stats.TotalPoints, encodeBadges(badges)); err != nil {
		observability.SubmissionStepFailures().WithLabelValues("recompute").Inc()
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to persist derived state")
	}
}
