package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/datasprint/datasprint-api/internal/models"
)

// ChallengeRepository defines data operations for challenges.
type ChallengeRepository interface {
	List(ctx context.Context) ([]models.Challenge, error)
	GetByID(ctx context.Context, id string) (models.Challenge, error)
	Create(ctx context.Context, challenge *models.Challenge) error
	Update(ctx context.Context, challenge *models.Challenge) error
	Delete(ctx context.Context, id string) error
	IncrementSubmissionCount(ctx context.Context, id string) error
}

type challengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository instantiates the repository.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) List(ctx context.Context) ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&challenges).Error; err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id string) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error; err != nil {
		return models.Challenge{}, err
	}

	return challenge, nil
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *challengeRepository) Update(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Save(challenge).Error
}

// Delete removes the challenge row only. Submissions referencing it are left
// in place; the reference is deliberately not enforced.
func (r *challengeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Challenge{}, "id = ?", id).Error
}

// IncrementSubmissionCount bumps the counter by one inside the database, so
// concurrent submitters never lose an increment to a read-modify-write race.
func (r *challengeRepository) IncrementSubmissionCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ?", id).
		UpdateColumn("submission_count", gorm.Expr("submission_count + ?", 1)).
		Error
}
