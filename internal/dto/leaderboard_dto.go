package dto

import "time"

// LeaderboardEntry is a derived view over the user collection; it is never
// persisted. Rank is the 1-based position after sorting by total points.
type LeaderboardEntry struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	TotalPoints         int       `json:"total_points"`
	ChallengesCompleted int       `json:"challenges_completed"`
	Badges              []string  `json:"badges"`
	LastActive          time.Time `json:"last_active"`
	Rank                int       `json:"rank"`
}
