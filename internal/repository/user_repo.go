package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/datasprint/datasprint-api/internal/models"
)

// UserRepository defines data operations for users and their accepted-challenge entries.
type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	AcceptChallenge(ctx context.Context, entry *models.AcceptedChallenge) error
	MarkChallengeCompleted(ctx context.Context, userID, challengeID string) error
	RemoveAcceptedChallenges(ctx context.Context, userID string, challengeIDs []string) error
	UpdateDerivedState(ctx context.Context, userID string, points int, badges datatypes.JSON) error
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Preload("AcceptedChallenges")
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.baseQuery(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.baseQuery(ctx).First(&user, "id = ?", id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// AcceptChallenge inserts the entry unless the user already holds one for the
// challenge; the unique (user, challenge) index makes repeats a no-op.
func (r *userRepository) AcceptChallenge(ctx context.Context, entry *models.AcceptedChallenge) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
			DoNothing: true,
		}).
		Create(entry).Error
}

// MarkChallengeCompleted flips the completed flag. Already-completed entries
// match zero rows, so repeat calls perform no further mutation.
func (r *userRepository) MarkChallengeCompleted(ctx context.Context, userID, challengeID string) error {
	return r.db.WithContext(ctx).
		Model(&models.AcceptedChallenge{}).
		Where("user_id = ? AND challenge_id = ? AND completed = ?", userID, challengeID, false).
		UpdateColumn("completed", true).
		Error
}

func (r *userRepository) RemoveAcceptedChallenges(ctx context.Context, userID string, challengeIDs []string) error {
	if len(challengeIDs) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id IN ?", userID, challengeIDs).
		Delete(&models.AcceptedChallenge{}).
		Error
}

// UpdateDerivedState persists the recomputed point projection and badge set.
func (r *userRepository) UpdateDerivedState(ctx context.Context, userID string, points int, badges datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"points": points, "badges": badges}).
		Error
}

func (r *userRepository) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_active", at).
		Error
}
