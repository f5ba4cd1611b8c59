package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/storyvault/models"
)

func TestCanPostNow_NeverPosted(t *testing.T) {
	author := &models.Author{}
	assert.True(t, CanPostNow(author, baseTime))
	assert.Equal(t, baseTime, NextPostTime(author, baseTime))
	assert.Equal(t, 0, RemainingSeconds(author, baseTime))
}

func TestCanPostNow_WindowBoundary(t *testing.T) {
	last := baseTime
	author := &models.Author{LastPostAt: &last}

	tests := []struct {
		name      string
		elapsed   time.Duration
		canPost   bool
		remaining int
	}{
		{"same instant", 0, false, 180},
		{"one second later", time.Second, false, 179},
		{"one second before window", 179 * time.Second, false, 1},
		{"exactly at window", 180 * time.Second, true, 0},
		{"after window", 10 * time.Minute, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := last.Add(tt.elapsed)
			assert.Equal(t, tt.canPost, CanPostNow(author, now))
			assert.Equal(t, tt.remaining, RemainingSeconds(author, now))
			assert.Equal(t, last.Add(RateLimitWindow), NextPostTime(author, now))
		})
	}
}

func TestRemainingSeconds_RoundsUp(t *testing.T) {
	last := baseTime
	author := &models.Author{LastPostAt: &last}
	assert.Equal(t, 180, RemainingSeconds(author, last.Add(100*time.Millisecond)))
}
