package dto

import (
	"time"

	"github.com/datasprint/datasprint-api/internal/models"
)

// LoginRequest identifies a user to the platform. Authentication itself is
// delegated to the external identity provider; this endpoint upserts the
// user record on first login.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=255"`
}

// LoginResponse returns the issued token alongside the user profile.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AcceptedChallengeResponse serializes one accepted-challenge entry.
type AcceptedChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	AcceptedAt  time.Time `json:"accepted_at"`
	Completed   bool      `json:"completed"`
}

// UserResponse is the profile view. Points and badges carry the derived
// values, recomputed from completed challenges at read time.
type UserResponse struct {
	ID                 string                      `json:"id"`
	Email              string                      `json:"email"`
	Name               string                      `json:"name"`
	Role               string                      `json:"role"`
	Points             int                         `json:"points"`
	Badges             []string                    `json:"badges"`
	JoinedAt           time.Time                   `json:"joined_at"`
	LastActive         time.Time                   `json:"last_active"`
	AcceptedChallenges []AcceptedChallengeResponse `json:"accepted_challenges"`
}

// NewUserResponse converts a User model into a DTO using the supplied
// derived points and badge set.
func NewUserResponse(model models.User, points int, badges []string) UserResponse {
	accepted := make([]AcceptedChallengeResponse, 0, len(model.AcceptedChallenges))
	for _, entry := range model.AcceptedChallenges {
		accepted = append(accepted, AcceptedChallengeResponse{
			ChallengeID: entry.ChallengeID,
			AcceptedAt:  entry.AcceptedAt,
			Completed:   entry.Completed,
		})
	}

	if badges == nil {
		badges = []string{}
	}

	return UserResponse{
		ID:                 model.ID,
		Email:              model.Email,
		Name:               model.Name,
		Role:               model.Role,
		Points:             points,
		Badges:             badges,
		JoinedAt:           model.JoinedAt,
		LastActive:         model.LastActive,
		AcceptedChallenges: accepted,
	}
}
