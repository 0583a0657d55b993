package models

import "time"

// Submission represents one uploaded solution artifact for a challenge.
// User identity is denormalized as a snapshot taken at submission time;
// the challenge reference is not enforced referentially, so deleting a
// challenge leaves its submissions intact.
type Submission struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	ChallengeID string    `gorm:"size:64;index;not null" json:"challenge_id"`
	UserID      string    `gorm:"size:255;index;not null" json:"user_id"`
	UserName    string    `gorm:"size:255" json:"user_name"`
	UserEmail   string    `gorm:"size:255" json:"user_email"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	FileURL     string    `gorm:"size:512" json:"file_url"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	Feedback    string    `gorm:"type:text" json:"feedback"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	// SubmissionStatusPending indicates the solution awaits evaluation.
	SubmissionStatusPending = "pending"
	// SubmissionStatusEvaluated indicates a score has been recorded.
	SubmissionStatusEvaluated = "evaluated"
	// SubmissionStatusFailed indicates the solution was rejected.
	SubmissionStatusFailed = "failed"
)

// IsEvaluated reports whether the submission has been scored.
func (s Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}
