package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_MaxAttempts(t *testing.T) {
	schedule := Schedule{0, 5 * time.Second, 30 * time.Second}
	assert.Equal(t, 3, schedule.MaxAttempts())
}

func TestSchedule_Exhausted(t *testing.T) {
	schedule := Schedule{0, 0, time.Minute}

	assert.False(t, schedule.Exhausted(0))
	assert.False(t, schedule.Exhausted(2))
	assert.True(t, schedule.Exhausted(3))
	assert.True(t, schedule.Exhausted(4))
}

func TestSchedule_NextAttemptAt(t *testing.T) {
	schedule := Schedule{0, 0, 0, 0, 10 * time.Minute, 30 * time.Minute, time.Hour, 6 * time.Hour}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Attempts 1-3 retry immediately; the delay is indexed by the attempt
	// just completed.
	assert.Equal(t, now, schedule.NextAttemptAt(now, 1))
	assert.Equal(t, now, schedule.NextAttemptAt(now, 3))
	assert.Equal(t, now.Add(10*time.Minute), schedule.NextAttemptAt(now, 4))
	assert.Equal(t, now.Add(30*time.Minute), schedule.NextAttemptAt(now, 5))
	assert.Equal(t, now.Add(time.Hour), schedule.NextAttemptAt(now, 6))
	assert.Equal(t, now.Add(6*time.Hour), schedule.NextAttemptAt(now, 7))
}

func TestSchedule_NextAttemptAt_Exhausted(t *testing.T) {
	schedule := Schedule{0, time.Second}
	now := time.Now()

	// An exhausted job is pushed far enough out that it can never come due.
	next := schedule.NextAttemptAt(now, 2)
	assert.True(t, next.After(now.Add(50*365*24*time.Hour)))
}
