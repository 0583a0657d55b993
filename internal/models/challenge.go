package models

import (
	"time"

	"gorm.io/datatypes"
)

// Challenge represents a data-analysis challenge curated by an administrator.
type Challenge struct {
	ID              string         `gorm:"primaryKey;size:64" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Difficulty      string         `gorm:"size:16;not null" json:"difficulty"`
	Points          int            `gorm:"not null" json:"points"`
	Deadline        time.Time      `gorm:"not null" json:"deadline"`
	DatasetURL      string         `gorm:"size:512" json:"dataset_url"`
	SubmissionCount int            `gorm:"not null;default:0" json:"submission_count"`
	MaxScore        int            `gorm:"not null;default:100" json:"max_score"`
	Tags            datatypes.JSON `json:"tags"`
	Status          string         `gorm:"size:16;not null" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

const (
	// DifficultyEasy is worth 450 points at creation time.
	DifficultyEasy = "easy"
	// DifficultyMedium is worth 800 points at creation time.
	DifficultyMedium = "medium"
	// DifficultyHard is worth 1200 points at creation time.
	DifficultyHard = "hard"
)

const (
	// ChallengeStatusActive marks a challenge open for submissions.
	ChallengeStatusActive = "active"
	// ChallengeStatusUpcoming marks a challenge not yet open.
	ChallengeStatusUpcoming = "upcoming"
	// ChallengeStatusCompleted marks a challenge past its run.
	ChallengeStatusCompleted = "completed"
)

// ChallengeMaxScore is fixed for every challenge.
const ChallengeMaxScore = 100

// DefaultPoints maps a difficulty to its creation-time point value.
// The stored value remains independently editable afterwards.
func DefaultPoints(difficulty string) int {
	switch difficulty {
	case DifficultyEasy:
		return 450
	case DifficultyHard:
		return 1200
	default:
		return 800
	}
}

// IsExpired reports whether the challenge deadline has passed.
func (c Challenge) IsExpired(reference time.Time) bool {
	return reference.After(c.Deadline)
}
