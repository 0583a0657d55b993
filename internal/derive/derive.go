// Package derive holds the pure scoring and badge rules shared by every
// consumer of user data. Totals and badge sets are recomputed from durable
// source facts on each read, so a missed recomputation in one session is
// corrected by the next.
package derive

import (
	"time"

	"github.com/datasprint/datasprint-api/internal/models"
)

// Badge labels awarded by the rules below. Badges are strictly additive:
// once earned they are never revoked, even if the triggering condition
// later becomes false.
const (
	BadgeWelcome    = "Welcome"
	BadgeBronze     = "Bronze"
	BadgeSilver     = "Silver"
	BadgeGold       = "Gold"
	BadgeMarathoner = "Marathoner"
	BadgeConsistent = "Consistent"
	BadgeEarlyBird  = "Early Bird"
)

// Point thresholds for the tiered badges.
const (
	BronzeThreshold = 450
	SilverThreshold = 1000
	GoldThreshold   = 2000
)

// MarathonerThreshold is the completed-challenge count for Marathoner.
const MarathonerThreshold = 10

// ConsistentWindow is the join-recency window checked by the Consistent rule.
// The rule measures time since joining rather than sustained activity; the
// behavior is kept as shipped for compatibility.
const ConsistentWindow = 21 * 24 * time.Hour

// earlyBirdCutoff is the fixed historical date before which joining earns
// Early Bird.
var earlyBirdCutoff = time.Date(2025, time.July, 8, 0, 0, 0, 0, time.UTC)

// TotalPoints sums the point values of every challenge whose id appears in
// completedIDs. Ids without a matching challenge contribute nothing, so the
// result is stable under repeated evaluation.
func TotalPoints(completedIDs []string, challenges []models.Challenge) int {
	points := make(map[string]int, len(challenges))
	for _, challenge := range challenges {
		points[challenge.ID] = challenge.Points
	}

	total := 0
	for _, id := range completedIDs {
		total += points[id]
	}

	return total
}

// Stats captures the observable user attributes the badge rules read.
type Stats struct {
	TotalPoints    int
	CompletedCount int
	JoinedAt       time.Time
}

// Badges returns the append-only union of the existing badge set and every
// badge whose rule the stats satisfy. Rules are evaluated independently; a
// user can earn several at once.
func Badges(existing []string, stats Stats, now time.Time) []string {
	badges := make([]string, 0, len(existing)+7)
	seen := make(map[string]struct{}, len(existing)+7)
	add := func(badge string) {
		if _, ok := seen[badge]; ok {
			return
		}
		seen[badge] = struct{}{}
		badges = append(badges, badge)
	}

	for _, badge := range existing {
		add(badge)
	}

	if stats.TotalPoints == 0 {
		add(BadgeWelcome)
	}
	if stats.TotalPoints >= BronzeThreshold {
		add(BadgeBronze)
	}
	if stats.TotalPoints >= SilverThreshold {
		add(BadgeSilver)
	}
	if stats.TotalPoints >= GoldThreshold {
		add(BadgeGold)
	}
	if stats.CompletedCount >= MarathonerThreshold {
		add(BadgeMarathoner)
	}
	if !stats.JoinedAt.IsZero() && now.Sub(stats.JoinedAt) < ConsistentWindow {
		add(BadgeConsistent)
	}
	if !stats.JoinedAt.IsZero() && stats.JoinedAt.Before(earlyBirdCutoff) {
		add(BadgeEarlyBird)
	}

	return badges
}

// UserStats assembles badge-rule inputs from a user record and the current
// challenge set.
func UserStats(user models.User, challenges []models.Challenge) Stats {
	completed := user.CompletedChallengeIDs()

	return Stats{
		TotalPoints:    TotalPoints(completed, challenges),
		CompletedCount: len(completed),
		JoinedAt:       user.JoinedAt,
	}
}
