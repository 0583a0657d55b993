package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/repository"
)

// ChallengeService exposes the curated challenge catalogue.
type ChallengeService interface {
	List(ctx context.Context) ([]dto.ChallengeResponse, error)
	Get(ctx context.Context, id string) (dto.ChallengeResponse, error)
	Create(ctx context.Context, req dto.ChallengeCreateRequest) (dto.ChallengeResponse, error)
	Update(ctx context.Context, id string, req dto.ChallengeUpdateRequest) (dto.ChallengeResponse, error)
	Delete(ctx context.Context, id string) error
}

type challengeService struct {
	repo        repository.ChallengeRepository
	validate    *validator.Validate
	sanitizer   *bluemonday.Policy
	events      ChangePublisher
	leaderboard CacheInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewChallengeService wires the challenge catalogue service.
func NewChallengeService(
	repo repository.ChallengeRepository,
	validate *validator.Validate,
	events ChangePublisher,
	leaderboard CacheInvalidator,
	logger zerolog.Logger,
) ChallengeService {
	return &challengeService{
		repo:        repo,
		validate:    validate,
		sanitizer:   bluemonday.UGCPolicy(),
		events:      events,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "challenge_service").Logger(),
		now:         time.Now,
	}
}

func (s *challengeService) List(ctx context.Context) ([]dto.ChallengeResponse, error) {
	challenges, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewChallengeResponseSlice(challenges), nil
}

func (s *challengeService) Get(ctx context.Context, id string) (dto.ChallengeResponse, error) {
	challenge, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChallengeResponse{}, ErrChallengeNotFound
		}
		return dto.ChallengeResponse{}, err
	}

	return dto.NewChallengeResponse(challenge), nil
}

func (s *challengeService) Create(ctx context.Context, req dto.ChallengeCreateRequest) (dto.ChallengeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ChallengeResponse{}, err
	}

	points := models.DefaultPoints(req.Difficulty)
	if req.Points != nil {
		points = *req.Points
	}

	status := req.Status
	if status == "" {
		status = models.ChallengeStatusActive
	}

	challenge := models.Challenge{
		ID:          uuid.NewString(),
		Title:       s.sanitizer.Sanitize(req.Title),
		Description: s.sanitizer.Sanitize(req.Description),
		Difficulty:  req.Difficulty,
		Points:      points,
		Deadline:    req.Deadline,
		DatasetURL:  req.DatasetURL,
		MaxScore:    models.ChallengeMaxScore,
		Tags:        encodeTags(req.Tags),
		Status:      status,
	}

	if err := s.repo.Create(ctx, &challenge); err != nil {
		s.logger.Error().Err(err).Msg("failed to create challenge")
		return dto.ChallengeResponse{}, err
	}

	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionChallenges,
		Action:     dto.ChangeActionCreated,
		DocumentID: challenge.ID,
	})
	s.leaderboard.Invalidate(ctx)

	s.logger.Info().Str("challenge_id", challenge.ID).Str("difficulty", challenge.Difficulty).Msg("challenge created")

	return dto.NewChallengeResponse(challenge), nil
}

func (s *challengeService) Update(ctx context.Context, id string, req dto.ChallengeUpdateRequest) (dto.ChallengeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ChallengeResponse{}, err
	}

	challenge, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChallengeResponse{}, ErrChallengeNotFound
		}
		return dto.ChallengeResponse{}, err
	}

	if req.Title != nil {
		challenge.Title = s.sanitizer.Sanitize(*req.Title)
	}
	if req.Description != nil {
		challenge.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Difficulty != nil {
		challenge.Difficulty = *req.Difficulty
	}
	if req.Points != nil {
		challenge.Points = *req.Points
	}
	if req.Deadline != nil {
		challenge.Deadline = *req.Deadline
	}
	if req.DatasetURL != nil {
		challenge.DatasetURL = *req.DatasetURL
	}
	if req.Tags != nil {
		challenge.Tags = encodeTags(req.Tags)
	}
	if req.Status != nil {
		challenge.Status = *req.Status
	}

	if err := s.repo.Update(ctx, &challenge); err != nil {
		s.logger.Error().Err(err).Str("challenge_id", id).Msg("failed to update challenge")
		return dto.ChallengeResponse{}, err
	}

	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionChallenges,
		Action:     dto.ChangeActionUpdated,
		DocumentID: challenge.ID,
	})
	s.leaderboard.Invalidate(ctx)

	return dto.NewChallengeResponse(challenge), nil
}

// Delete removes the challenge record only. Submissions and accepted-challenge
// entries that reference it survive as orphans; derived totals simply stop
// counting the missing challenge.
func (s *challengeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("challenge_id", id).Msg("failed to delete challenge")
		return err
	}

	s.events.PublishChange(ctx, dto.ChangeEvent{
		Collection: dto.CollectionChallenges,
		Action:     dto.ChangeActionDeleted,
		DocumentID: id,
	})
	s.leaderboard.Invalidate(ctx)

	s.logger.Info().Str("challenge_id", id).Msg("challenge deleted")

	return nil
}

func encodeTags(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}

	encoded, err := json.Marshal(tags)
	if err != nil {
		return datatypes.JSON("[]")
	}

	return datatypes.JSON(encoded)
}
