package models

import "fmt"

// User represents a player identity. The id is opaque, chosen at first login
// and held by the client so the same identity survives reconnects.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ConnectionID string `json:"connectionId"`
	Version      int64  `json:"version"`
}

// Validate checks the user record against its schema.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}
	if u.Name == "" {
		return fmt.Errorf("user %s has empty name", u.ID)
	}
	return nil
}

// UserStats tracks a user's cumulative results across all matches.
type UserStats struct {
	Wins    int   `json:"wins"`
	Losses  int   `json:"losses"`
	Version int64 `json:"version"`
}

// Validate checks the stats record against its schema.
func (s *UserStats) Validate() error {
	if s.Wins < 0 || s.Losses < 0 {
		return fmt.Errorf("stats have negative counters (wins=%d losses=%d)", s.Wins, s.Losses)
	}
	return nil
}
