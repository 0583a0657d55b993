package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/models"
)

const testJWTSecret = "test-secret"

func userServiceFixture(t *testing.T, users *stubUserRepo, challenges *stubChallengeRepo) (*userService, time.Time) {
	t.Helper()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewUserService(users, challenges, validate, &recordingEvents{}, &recordingInvalidator{}, testJWTSecret, time.Hour, "admin@datasprint.com", testLogger()).(*userService)
	svc.now = func() time.Time { return now }

	return svc, now
}

func TestLoginCreatesUserAndIssuesToken(t *testing.T) {
	users := newStubUserRepo()
	svc, now := userServiceFixture(t, users, &stubChallengeRepo{})

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "Dana@Example.com", Name: "Dana"})
	require.NoError(t, err)

	require.Equal(t, "dana@example.com", result.User.ID)
	require.Equal(t, models.RoleUser, result.User.Role)
	require.Equal(t, now, result.User.JoinedAt)
	require.Equal(t, 0, result.User.Points)
	require.Contains(t, result.User.Badges, "Welcome")

	token, err := jwt.Parse(result.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "dana@example.com", claims["sub"])
	require.Equal(t, models.RoleUser, claims["role"])
}

func TestLoginAssignsAdminRole(t *testing.T) {
	users := newStubUserRepo()
	svc, _ := userServiceFixture(t, users, &stubChallengeRepo{})

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@datasprint.com", Name: "Admin"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, result.User.Role)
}

func TestLoginRepeatDoesNotResetJoinDate(t *testing.T) {
	joined := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	users := newStubUserRepo(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Name: "Dana", Role: models.RoleUser, JoinedAt: joined,
	})
	svc, now := userServiceFixture(t, users, &stubChallengeRepo{})

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "dana@example.com"})
	require.NoError(t, err)
	require.Equal(t, joined, result.User.JoinedAt)
	require.Equal(t, now, result.User.LastActive)
}

func TestAcceptChallengeIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := newStubUserRepo(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Role: models.RoleUser, JoinedAt: now.Add(-time.Hour),
	})
	challenges := &stubChallengeRepo{challenges: []models.Challenge{{
		ID: "ch-1", Points: 450, Status: models.ChallengeStatusActive, Deadline: now.Add(time.Hour),
	}}}
	svc, _ := userServiceFixture(t, users, challenges)

	first, err := svc.AcceptChallenge(context.Background(), "dana@example.com", "ch-1")
	require.NoError(t, err)
	require.Len(t, first.AcceptedChallenges, 1)

	second, err := svc.AcceptChallenge(context.Background(), "dana@example.com", "ch-1")
	require.NoError(t, err)
	require.Len(t, second.AcceptedChallenges, 1)
}

func TestAcceptChallengeRejectsUpcomingAndExpired(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := newStubUserRepo(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Role: models.RoleUser, JoinedAt: now.Add(-time.Hour),
	})
	challenges := &stubChallengeRepo{challenges: []models.Challenge{
		{ID: "upcoming", Status: models.ChallengeStatusUpcoming, Deadline: now.Add(time.Hour)},
		{ID: "expired", Status: models.ChallengeStatusActive, Deadline: now.Add(-time.Hour)},
	}}
	svc, _ := userServiceFixture(t, users, challenges)

	_, err := svc.AcceptChallenge(context.Background(), "dana@example.com", "upcoming")
	require.ErrorIs(t, err, ErrChallengeNotStarted)

	_, err = svc.AcceptChallenge(context.Background(), "dana@example.com", "expired")
	require.ErrorIs(t, err, ErrChallengeClosed)

	_, err = svc.AcceptChallenge(context.Background(), "dana@example.com", "missing")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestProfilePrunesExpiredUncompletedOnly(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := newStubUserRepo(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Role: models.RoleUser, JoinedAt: now.Add(-90 * 24 * time.Hour),
		AcceptedChallenges: []models.AcceptedChallenge{
			{ChallengeID: "done-expired", Completed: true},
			{ChallengeID: "open", Completed: false},
			{ChallengeID: "stale", Completed: false},
			{ChallengeID: "vanished", Completed: false},
		},
	})
	challenges := &stubChallengeRepo{challenges: []models.Challenge{
		{ID: "done-expired", Points: 800, Deadline: now.Add(-time.Hour)},
		{ID: "open", Points: 450, Deadline: now.Add(time.Hour)},
		{ID: "stale", Points: 450, Deadline: now.Add(-time.Hour)},
	}}
	svc, _ := userServiceFixture(t, users, challenges)

	profile, err := svc.Profile(context.Background(), "dana@example.com")
	require.NoError(t, err)

	ids := make([]string, 0, len(profile.AcceptedChallenges))
	for _, entry := range profile.AcceptedChallenges {
		ids = append(ids, entry.ChallengeID)
	}
	require.ElementsMatch(t, []string{"done-expired", "open"}, ids)
	require.ElementsMatch(t, []string{"stale", "vanished"}, users.removedIDs)

	// Completed work keeps its points even after the deadline.
	require.Equal(t, 800, profile.Points)
}
