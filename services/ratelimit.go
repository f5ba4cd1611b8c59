package services

import (
	"math"
	"time"

	"github.com/cppla/storyvault/models"
)

// RateLimitWindow is the minimum spacing between two posts from one author.
const RateLimitWindow = 180 * time.Second

// CanPostNow reports whether the author is outside the rate limit window.
func CanPostNow(author *models.Author, now time.Time) bool {
	if author == nil || author.LastPostAt == nil {
		return true
	}
	return now.Sub(*author.LastPostAt) >= RateLimitWindow
}

// NextPostTime is the earliest time the author may post again.
func NextPostTime(author *models.Author, now time.Time) time.Time {
	if author == nil || author.LastPostAt == nil {
		return now
	}
	return author.LastPostAt.Add(RateLimitWindow)
}

// RemainingSeconds is the wait until NextPostTime, rounded up and never negative.
func RemainingSeconds(author *models.Author, now time.Time) int {
	d := NextPostTime(author, now).Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
