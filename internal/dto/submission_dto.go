package dto

import (
	"time"

	"github.com/datasprint/datasprint-api/internal/models"
)

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	ChallengeID *string `query:"challenge_id"`
	UserID      *string `query:"user_id"`
	Status      *string `query:"status" validate:"omitempty,oneof=pending evaluated failed"`
}

// SubmissionGradeRequest is used by administrators to record a score and
// feedback for a submission.
type SubmissionGradeRequest struct {
	Score    *int    `json:"score" validate:"omitempty,gte=0,lte=100"`
	Feedback *string `json:"feedback"`
	Status   *string `json:"status" validate:"omitempty,oneof=evaluated failed"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
	Score       int       `json:"score"`
	Feedback    string    `json:"feedback"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:          model.ID,
		ChallengeID: model.ChallengeID,
		UserID:      model.UserID,
		UserName:    model.UserName,
		UserEmail:   model.UserEmail,
		FileName:    model.FileName,
		FileURL:     model.FileURL,
		Score:       model.Score,
		Feedback:    model.Feedback,
		Status:      model.Status,
		SubmittedAt: model.SubmittedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
