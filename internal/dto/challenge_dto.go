package dto

import (
	"encoding/json"
	"time"

	"github.com/datasprint/datasprint-api/internal/models"
)

// ChallengeCreateRequest describes the payload for creating a challenge.
// Points defaults from the difficulty when omitted.
type ChallengeCreateRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=255"`
	Description string    `json:"description" validate:"required"`
	Difficulty  string    `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Points      *int      `json:"points" validate:"omitempty,gt=0"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	DatasetURL  string    `json:"dataset_url" validate:"required,url"`
	Tags        []string  `json:"tags" validate:"omitempty,dive,min=1"`
	Status      string    `json:"status" validate:"omitempty,oneof=active upcoming completed"`
}

// ChallengeUpdateRequest carries partial challenge edits. The submission
// counter is deliberately absent: only the pipeline mutates it.
type ChallengeUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description"`
	Difficulty  *string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Points      *int       `json:"points" validate:"omitempty,gt=0"`
	Deadline    *time.Time `json:"deadline"`
	DatasetURL  *string    `json:"dataset_url" validate:"omitempty,url"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,min=1"`
	Status      *string    `json:"status" validate:"omitempty,oneof=active upcoming completed"`
}

// ChallengeResponse is returned to API clients when viewing challenges.
type ChallengeResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Difficulty      string    `json:"difficulty"`
	Points          int       `json:"points"`
	Deadline        time.Time `json:"deadline"`
	DatasetURL      string    `json:"dataset_url"`
	SubmissionCount int       `json:"submission_count"`
	MaxScore        int       `json:"max_score"`
	Tags            []string  `json:"tags"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewChallengeResponse converts a Challenge model into a DTO.
func NewChallengeResponse(model models.Challenge) ChallengeResponse {
	tags := []string{}
	if len(model.Tags) > 0 {
		_ = json.Unmarshal(model.Tags, &tags)
	}

	return ChallengeResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Difficulty:      model.Difficulty,
		Points:          model.Points,
		Deadline:        model.Deadline,
		DatasetURL:      model.DatasetURL,
		SubmissionCount: model.SubmissionCount,
		MaxScore:        model.MaxScore,
		Tags:            tags,
		Status:          model.Status,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewChallengeResponseSlice converts challenge models into DTOs.
func NewChallengeResponseSlice(models []models.Challenge) []ChallengeResponse {
	responses := make([]ChallengeResponse, 0, len(models))
	for _, challenge := range models {
		responses = append(responses, NewChallengeResponse(challenge))
	}

	return responses
}
