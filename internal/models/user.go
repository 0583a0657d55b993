package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User represents a platform participant. Records are keyed by email so that
// first login and signup converge on the same document.
//
// Points is a cached projection: the authoritative total is recomputed from
// the completed accepted-challenge entries on every read.
type User struct {
	ID                 string              `gorm:"primaryKey;size:255" json:"id"`
	Email              string              `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name               string              `gorm:"size:255" json:"name"`
	Role               string              `gorm:"size:16;not null" json:"role"`
	Points             int                 `gorm:"not null;default:0" json:"points"`
	Badges             datatypes.JSON      `json:"badges"`
	JoinedAt           time.Time           `gorm:"not null" json:"joined_at"`
	LastActive         time.Time           `json:"last_active"`
	AcceptedChallenges []AcceptedChallenge `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"accepted_challenges"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// AcceptedChallenge tracks that a user started a challenge and whether they
// completed it. The unique index guarantees at most one entry per challenge
// per user.
type AcceptedChallenge struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      string    `gorm:"size:255;not null;uniqueIndex:idx_user_challenge" json:"-"`
	ChallengeID string    `gorm:"size:64;not null;uniqueIndex:idx_user_challenge" json:"challenge_id"`
	AcceptedAt  time.Time `gorm:"not null" json:"accepted_at"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
}

const (
	// RoleUser is the default participant role.
	RoleUser = "user"
	// RoleAdmin marks the curating administrator.
	RoleAdmin = "admin"
)

// IsAdmin reports whether the user holds the administrative role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BadgeList decodes the persisted badge set; a missing or malformed column
// yields an empty list rather than an error.
func (u User) BadgeList() []string {
	if len(u.Badges) == 0 {
		return []string{}
	}

	var badges []string
	if err := json.Unmarshal(u.Badges, &badges); err != nil {
		return []string{}
	}

	return badges
}

// CompletedChallengeIDs returns the ids of every completed accepted entry.
func (u User) CompletedChallengeIDs() []string {
	ids := make([]string, 0, len(u.AcceptedChallenges))
	for _, entry := range u.AcceptedChallenges {
		if entry.Completed {
			ids = append(ids, entry.ChallengeID)
		}
	}

	return ids
}

// HasAccepted reports whether the user already holds an entry for the challenge.
func (u User) HasAccepted(challengeID string) bool {
	for _, entry := range u.AcceptedChallenges {
		if entry.ChallengeID == challengeID {
			return true
		}
	}

	return false
}
