package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Challenge{}, &models.Submission{}, &models.User{}, &models.AcceptedChallenge{}))

	return db
}

func TestIncrementSubmissionCount(t *testing.T) {
	db := setupDB(t)
	repo := NewChallengeRepository(db)

	challenge := models.Challenge{
		ID:         "ch-1",
		Title:      "Forecasting",
		Difficulty: models.DifficultyEasy,
		Points:     450,
		Deadline:   time.Now().Add(time.Hour),
		Status:     models.ChallengeStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), &challenge))

	const increments = 5
	for i := 0; i < increments; i++ {
		require.NoError(t, repo.IncrementSubmissionCount(context.Background(), "ch-1"))
	}

	stored, err := repo.GetByID(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Equal(t, increments, stored.SubmissionCount)

	// The increment never touches other columns or the updated challenge state.
	require.Equal(t, challenge.Title, stored.Title)
	require.Equal(t, challenge.Points, stored.Points)
}

func TestAcceptChallengeIgnoresDuplicates(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)

	require.NoError(t, db.Create(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Role: models.RoleUser, JoinedAt: time.Now(),
	}).Error)

	first := models.AcceptedChallenge{UserID: "dana@example.com", ChallengeID: "ch-1", AcceptedAt: time.Now()}
	require.NoError(t, users.AcceptChallenge(context.Background(), &first))

	repeat := models.AcceptedChallenge{UserID: "dana@example.com", ChallengeID: "ch-1", AcceptedAt: time.Now()}
	require.NoError(t, users.AcceptChallenge(context.Background(), &repeat))

	var count int64
	require.NoError(t, db.Model(&models.AcceptedChallenge{}).Where("user_id = ?", "dana@example.com").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestMarkChallengeCompletedIsIdempotent(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)

	require.NoError(t, db.Create(&models.User{
		ID: "dana@example.com", Email: "dana@example.com", Role: models.RoleUser, JoinedAt: time.Now(),
	}).Error)
	entry := models.AcceptedChallenge{UserID: "dana@example.com", ChallengeID: "ch-1", AcceptedAt: time.Now()}
	require.NoError(t, users.AcceptChallenge(context.Background(), &entry))

	require.NoError(t, users.MarkChallengeCompleted(context.Background(), "dana@example.com", "ch-1"))
	require.NoError(t, users.MarkChallengeCompleted(context.Background(), "dana@example.com", "ch-1"))

	user, err := users.GetByID(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.Len(t, user.AcceptedChallenges, 1)
	require.True(t, user.AcceptedChallenges[0].Completed)
}
