package models

import "fmt"

// DefaultTimerSeconds is the countdown the timer resets to (5 minutes).
const DefaultTimerSeconds = 300

// TimerState is the single global countdown shared by every active match.
// It lives in the shared store so all processes observe the same value.
type TimerState struct {
	RemainingSeconds int   `json:"remainingSeconds"`
	IsRunning        bool  `json:"isRunning"`
	IsPaused         bool  `json:"isPaused"`
	Version          int64 `json:"version"`
}

// Validate checks the timer record against its schema.
func (t *TimerState) Validate() error {
	if t.RemainingSeconds < 0 {
		return fmt.Errorf("timer has negative remaining seconds (%d)", t.RemainingSeconds)
	}
	return nil
}
