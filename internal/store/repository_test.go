package store

import (
	"testing"

	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRepositorySeedsConfiguredTimerDefault(t *testing.T) {
	r := NewRepository(nil, 420)

	state := r.defaultTimerState()
	assert.Equal(t, 420, state.RemainingSeconds)
	assert.False(t, state.IsRunning)
	assert.False(t, state.IsPaused)
}

func TestRepositoryFallsBackToStandardTimerDefault(t *testing.T) {
	for _, seconds := range []int{0, -1} {
		r := NewRepository(nil, seconds)
		assert.Equal(t, models.DefaultTimerSeconds, r.defaultTimerState().RemainingSeconds)
	}
}
