package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/datasprint/datasprint-api/internal/models"
)

func leaderboardFixture(t *testing.T, redisClient *redis.Client) (*leaderboardService, *stubUserRepo, *stubChallengeRepo) {
	t.Helper()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	joined := now.Add(-60 * 24 * time.Hour)

	challenges := &stubChallengeRepo{challenges: []models.Challenge{
		{ID: "ch-1", Points: 450, Deadline: now.Add(time.Hour)},
		{ID: "ch-2", Points: 800, Deadline: now.Add(time.Hour)},
		{ID: "ch-3", Points: 1200, Deadline: now.Add(time.Hour)},
	}}

	users := newStubUserRepo(
		&models.User{ID: "alice@example.com", Email: "alice@example.com", Name: "Alice", Role: models.RoleUser, JoinedAt: joined,
			AcceptedChallenges: []models.AcceptedChallenge{
				{ChallengeID: "ch-1", Completed: true},
				{ChallengeID: "ch-2", Completed: true},
			}},
		&models.User{ID: "bob@example.com", Email: "bob@example.com", Name: "Bob", Role: models.RoleUser, JoinedAt: joined,
			AcceptedChallenges: []models.AcceptedChallenge{
				{ChallengeID: "ch-3", Completed: true},
			}},
		&models.User{ID: "carol@example.com", Email: "carol@example.com", Role: models.RoleUser, JoinedAt: joined},
		&models.User{ID: "admin@datasprint.com", Email: "admin@datasprint.com", Name: "Admin", Role: models.RoleAdmin, JoinedAt: joined,
			AcceptedChallenges: []models.AcceptedChallenge{
				{ChallengeID: "ch-3", Completed: true},
			}},
	)

	svc := NewLeaderboardService(users, challenges, redisClient, 30*time.Second, "admin@datasprint.com", testLogger()).(*leaderboardService)
	svc.now = func() time.Time { return now }

	return svc, users, challenges
}

func TestLeaderboardRanksDescendingAndExcludesAdmin(t *testing.T) {
	svc, _, _ := leaderboardFixture(t, nil)

	entries, err := svc.Standings(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "alice@example.com", entries[0].ID)
	require.Equal(t, 1250, entries[0].TotalPoints)
	require.Equal(t, "bob@example.com", entries[1].ID)
	require.Equal(t, 1200, entries[1].TotalPoints)
	require.Equal(t, "carol@example.com", entries[2].ID)
	require.Equal(t, 0, entries[2].TotalPoints)

	for i, entry := range entries {
		require.Equal(t, i+1, entry.Rank)
		require.NotEqual(t, "admin@datasprint.com", entry.ID)
	}

	// Name falls back to the local part of the email.
	require.Equal(t, "carol", entries[2].Name)
}

func TestLeaderboardCachesAndInvalidates(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc, users, _ := leaderboardFixture(t, redisClient)

	first, err := svc.Standings(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 3)

	// A later write is invisible until the cache is dropped.
	users.users["carol@example.com"].AcceptedChallenges = []models.AcceptedChallenge{{ChallengeID: "ch-3", Completed: true}}

	cached, err := svc.Standings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, cached[2].TotalPoints)

	svc.Invalidate(context.Background())

	fresh, err := svc.Standings(context.Background())
	require.NoError(t, err)
	require.Equal(t, "carol@example.com", fresh[2].ID)
	require.Equal(t, 1200, fresh[2].TotalPoints)
}

func TestLeaderboardTiesKeepStableOrder(t *testing.T) {
	svc, users, _ := leaderboardFixture(t, nil)
	users.users["carol@example.com"].AcceptedChallenges = []models.AcceptedChallenge{{ChallengeID: "ch-3", Completed: true}}

	first, err := svc.Standings(context.Background())
	require.NoError(t, err)

	second, err := svc.Standings(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1200, first[1].TotalPoints)
	require.Equal(t, 1200, first[2].TotalPoints)
}
