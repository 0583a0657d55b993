package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/derive"
	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/observability"
	"github.com/datasprint/datasprint-api/internal/repository"
)

const leaderboardCacheKey = "datasprint:leaderboard"

// CacheInvalidator drops cached derived views after an authoritative write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// LeaderboardService produces the ranked standings of all participants.
type LeaderboardService interface {
	CacheInvalidator
	Standings(ctx context.Context) ([]dto.LeaderboardEntry, error)
}

type leaderboardService struct {
	users      repository.UserRepository
	challenges repository.ChallengeRepository
	redis      *redis.Client
	cacheTTL   time.Duration
	adminEmail string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewLeaderboardService wires the ranking service. The redis client is
// optional; without it every call recomputes from the database.
func NewLeaderboardService(
	users repository.UserRepository,
	challenges repository.ChallengeRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	adminEmail string,
	logger zerolog.Logger,
) LeaderboardService {
	return &leaderboardService{
		users:      users,
		challenges: challenges,
		redis:      redisClient,
		cacheTTL:   cacheTTL,
		adminEmail: adminEmail,
		logger:     logger.With().Str("component", "leaderboard_service").Logger(),
		now:        time.Now,
	}
}

// Standings returns every non-administrator ranked by derived total points,
// descending. Ties keep their relative order across recomputations and each
// rank from 1 to N is assigned exactly once.
func (s *leaderboardService) Standings(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	if cached, ok := s.readCache(ctx); ok {
		return cached, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	challenges, err := s.challenges.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for _, user := range users {
		if s.excluded(user) {
			continue
		}

		stats := derive.UserStats(user, challenges)
		entries = append(entries, dto.LeaderboardEntry{
			ID:                  user.ID,
			Name:                displayName(user),
			Email:               user.Email,
			TotalPoints:         stats.TotalPoints,
			ChallengesCompleted: stats.CompletedCount,
			Badges:              derive.Badges(user.BadgeList(), stats, s.now()),
			LastActive:          user.LastActive,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	observability.LeaderboardRecomputes().Inc()
	s.writeCache(ctx, entries)

	return entries, nil
}

// Invalidate drops the cached standings so the next read recomputes.
func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

// excluded filters the curating administrator out of the standings.
func (s *leaderboardService) excluded(user models.User) bool {
	return user.IsAdmin() || strings.EqualFold(user.Email, s.adminEmail)
}

func (s *leaderboardService) readCache(ctx context.Context) ([]dto.LeaderboardEntry, bool) {
	if s.redis == nil {
		return nil, false
	}

	payload, err := s.redis.Get(ctx, leaderboardCacheKey).Bytes()
	if err != nil {
		return nil, false
	}

	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed leaderboard cache entry")
		return nil, false
	}

	return entries, true
}

func (s *leaderboardService) writeCache(ctx context.Context, entries []dto.LeaderboardEntry) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache leaderboard standings")
	}
}

// displayName falls back to the local part of the email when the profile has
// no name set.
func displayName(user models.User) string {
	if user.Name != "" {
		return user.Name
	}

	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}

	return user.Email
}
