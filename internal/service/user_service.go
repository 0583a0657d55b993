package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/derive"
	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/repository"
)

// UserService covers login, the challenge-acceptance lifecycle, and profile reads.
type UserService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Profile(ctx context.Context, userID string) (dto.UserResponse, error)
	List(ctx context.Context) ([]dto.UserResponse, error)
	AcceptChallenge(ctx context.Context, userID, challengeID string) (dto.UserResponse, error)
}

type userService struct {
	users       repository.UserRepository
	challenges  repository.ChallengeRepository
	validate    *validator.Validate
	events      ChangePublisher
	leaderboard CacheInvalidator
	jwtSecret   string
	jwtTTL      time.Duration
	adminEmail  string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewUserService wires the user service.
func NewUserService(
	users repository.UserRepository,
	challenges repository.ChallengeRepository,
	validate *validator.Validate,
	events ChangePublisher,
	leaderboard CacheInvalidator,
	jwtSecret string,
	jwtTTL time.Duration,
	adminEmail string,
	logger zerolog.Logger,
) UserService {
	return &userService{
		users:       users,
		challenges:  challenges,
		validate:    validate,
		events:      events,
		leaderboard: leaderboard,
		jwtSecret:   jwtSecret,
		jwtTTL:      jwtTTL,
		adminEmail:  adminEmail,
		logger:      logger.With().Str("component", "user_service").Logger(),
		now:         time.Now,
	}
}

// Login upserts the user record keyed by email and issues an access token.
// First login creates the record; repeats refresh last activity only.
func (s *userService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := s.now().UTC()

	user, err := s.users.GetByID(ctx, email)
	switch {
	case err == nil:
		if req.Name != "" && user.Name != req.Name {
			user.Name = req.Name
			if err := s.users.Update(ctx, &user); err != nil {
				return dto.LoginResponse{}, err
			}
		}
		if err := s.users.TouchLastActive(ctx, user.ID, now); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh last activity")
		}
		user.LastActive = now
	case errors.Is(err, gorm.ErrRecordNotFound):
		role := models.RoleUser
		if strings.EqualFold(email, s.adminEmail) {
			role = models.RoleAdmin
		}

		user = models.User{
			ID:         email,
			Email:      email,
			Name:       req.Name,
			Role:       role,
			JoinedAt:   now,
			LastActive: now,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return dto.LoginResponse{}, err
		}

		s.events.PublishChange(ctx, dto.ChangeEvent{
			Collection: dto.CollectionUsers,
			Action:     dto.ChangeActionCreated,
			DocumentID: user.ID,
		})
		s.logger.Info().Str("user_id", user.ID).Str("role", role).Msg("user registered")
	default:
		return dto.LoginResponse{}, err
	}

	token, err := s.issueToken(user, now)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	challenges, err := s.challenges.List(ctx)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	stats := derive.UserStats(user, challenges)
	badges := derive.Badges(user.BadgeList(), stats, now)

	return dto.LoginResponse{
		Token: token,
		User:  dto.NewUserResponse(user, stats.TotalPoints, badges),
	}, nil
}

// Profile returns the user with freshly derived points and badges. Expired
// challenges the user never completed are pruned from the accepted list
// before deriving, then the cached projection is updated.
func (s *userService) Profile(ctx context.Context, userID string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	challenges, err := s.challenges.List(ctx)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user, err = s.pruneExpired(ctx, user, challenges)
	if err != nil {
		return dto.UserResponse{}, err
	}

	stats := derive.UserStats(user, challenges)
	badges := derive.Badges(user.BadgeList(), stats, s.now())

	if err := s.users.UpdateDerivedState(ctx, user.ID, stats.TotalPoints, encodeBadges(badges)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to persist derived state")
	}

	return dto.NewUserResponse(user, stats.TotalPoints, badges), nil
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	challenges, err := s.challenges.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		stats := derive.UserStats(user, challenges)
		badges := derive.Badges(user.BadgeList(), stats, now)
		responses = append(responses, dto.NewUserResponse(user, stats.TotalPoints, badges))
	}

	return responses, nil
}

// AcceptChallenge records that the user started the challenge. Repeats are
// no-ops; the entry is unique per user and challenge.
func (s *userService) AcceptChallenge(ctx context.Context, userID, challengeID string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrChallengeNotFound
		}
		return dto.UserResponse{}, err
	}

	now := s.now().UTC()
	if challenge.Status == models.ChallengeStatusUpcoming {
		return dto.UserResponse{}, ErrChallengeNotStarted
	}
	if challenge.IsExpired(now) {
		return dto.UserResponse{}, ErrChallengeClosed
	}

	if !user.HasAccepted(challengeID) {
		entry := models.AcceptedChallenge{
			UserID:      user.ID,
			ChallengeID: challengeID,
			AcceptedAt:  now,
		}
		if err := s.users.AcceptChallenge(ctx, &entry); err != nil {
			return dto.UserResponse{}, err
		}

		s.events.PublishChange(ctx, dto.ChangeEvent{
			Collection: dto.CollectionUsers,
			Action:     dto.ChangeActionUpdated,
			DocumentID: user.ID,
		})
	}

	return s.Profile(ctx, userID)
}

// pruneExpired drops accepted entries whose challenge deadline has passed
// without a completion, and entries whose challenge no longer exists.
func (s *userService) pruneExpired(ctx context.Context, user models.User, challenges []models.Challenge) (models.User, error) {
	known := make(map[string]models.Challenge, len(challenges))
	for _, challenge := range challenges {
		known[challenge.ID] = challenge
	}

	now := s.now()
	var stale []string
	kept := user.AcceptedChallenges[:0:0]
	for _, entry := range user.AcceptedChallenges {
		if entry.Completed {
			kept = append(kept, entry)
			continue
		}

		challenge, ok := known[entry.ChallengeID]
		if !ok || challenge.IsExpired(now) {
			stale = append(stale, entry.ChallengeID)
			continue
		}

		kept = append(kept, entry)
	}

	if len(stale) == 0 {
		return user, nil
	}

	if err := s.users.RemoveAcceptedChallenges(ctx, user.ID, stale); err != nil {
		return models.User{}, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Int("removed", len(stale)).
		Msg("pruned expired accepted challenges")

	user.AcceptedChallenges = kept

	return user, nil
}

func (s *userService) issueToken(user models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.jwtTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.jwtSecret))
}

func encodeBadges(badges []string) datatypes.JSON {
	if badges == nil {
		badges = []string{}
	}

	encoded, err := json.Marshal(badges)
	if err != nil {
		return datatypes.JSON("[]")
	}

	return datatypes.JSON(encoded)
}
