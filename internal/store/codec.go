package store

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/gridmatch/internal/models"
)

// Every value read from the store is validated against its schema. A value
// failing validation is a fatal corrupt-record error for that read.

func decodeUser(data []byte) (*models.User, error) {
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: decode user: %v", ErrCorruptRecord, err)
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &u, nil
}

func decodeStats(data []byte) (*models.UserStats, error) {
	var s models.UserStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode stats: %v", ErrCorruptRecord, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &s, nil
}

func decodeGame(data []byte) (*models.GameSession, error) {
	var g models.GameSession
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrCorruptRecord, err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &g, nil
}

func decodeTimer(data []byte) (*models.TimerState, error) {
	var t models.TimerState
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: decode timer state: %v", ErrCorruptRecord, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &t, nil
}
