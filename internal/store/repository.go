package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// casAttempts bounds the optimistic retry loop of read-modify-write
// operations racing against writers on other processes.
const casAttempts = 5

// Repository implements typed access to the shared state store. Every
// mutating operation is versioned: a read-modify-write runs inside a watched
// transaction and retries from a fresh read when a concurrent writer got
// there first, so a later write never silently clobbers an earlier one.
type Repository struct {
	rdb *redis.Client

	// timerDefault seeds the countdown when no timer record exists yet.
	timerDefault int
}

// NewRepository creates a repository over the shared store client. The timer
// record is seeded with timerDefaultSeconds on first read so it agrees with
// the configured countdown.
func NewRepository(rdb *redis.Client, timerDefaultSeconds int) *Repository {
	if timerDefaultSeconds <= 0 {
		timerDefaultSeconds = models.DefaultTimerSeconds
	}
	return &Repository{rdb: rdb, timerDefault: timerDefaultSeconds}
}

func (r *Repository) defaultTimerState() *models.TimerState {
	return &models.TimerState{RemainingSeconds: r.timerDefault}
}

// User operations

// PutUser validates and stores a user record.
func (r *Repository) PutUser(ctx context.Context, u *models.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validate user: %w", err)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.rdb.Set(ctx, keyUser(u.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("store user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser loads a user record, returning ErrNotFound when absent.
func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	data, err := r.rdb.Get(ctx, keyUser(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return decodeUser(data)
}

// DeleteUser removes a user record.
func (r *Repository) DeleteUser(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, keyUser(userID)).Err(); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}

// Stats operations

// GetStats loads a user's cumulative stats, creating a zero-value record on
// first read.
func (r *Repository) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	data, err := r.rdb.Get(ctx, keyUserStats(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		stats := &models.UserStats{}
		seeded, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("encode stats: %w", err)
		}
		if err := r.rdb.Set(ctx, keyUserStats(userID), seeded, 0).Err(); err != nil {
			return nil, fmt.Errorf("seed stats %s: %w", userID, err)
		}
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stats %s: %w", userID, err)
	}
	return decodeStats(data)
}

// UpdateStats applies fn to the user's stats under optimistic concurrency.
func (r *Repository) UpdateStats(ctx context.Context, userID string, fn func(*models.UserStats) error) (*models.UserStats, error) {
	var out *models.UserStats
	err := r.optimistic(ctx, keyUserStats(userID), func(tx *redis.Tx) error {
		stats := &models.UserStats{}
		data, err := tx.Get(ctx, keyUserStats(userID)).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load stats %s: %w", userID, err)
		}
		if err == nil {
			if stats, err = decodeStats(data); err != nil {
				return err
			}
		}
		if err := fn(stats); err != nil {
			out = stats
			return err
		}
		stats.Version++
		payload, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyUserStats(userID), payload, 0)
			return nil
		})
		if err == nil {
			out = stats
		}
		return err
	})
	return out, err
}

// Game operations

// PutGame validates and stores a session, stamping a fresh version.
func (r *Repository) PutGame(ctx context.Context, g *models.GameSession) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("validate session: %w", err)
	}
	g.Version++
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, keyGame(g.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", g.ID, err)
	}
	return nil
}

// GetGame loads a session, returning ErrNotFound when absent.
func (r *Repository) GetGame(ctx context.Context, gameID string) (*models.GameSession, error) {
	data, err := r.rdb.Get(ctx, keyGame(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", gameID, err)
	}
	return decodeGame(data)
}

// ListGames enumerates every stored session. Ended sessions are never
// deleted, so the result includes concluded matches.
func (r *Repository) ListGames(ctx context.Context) ([]*models.GameSession, error) {
	var games []*models.GameSession
	iter := r.rdb.Scan(ctx, 0, prefixGame+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", iter.Val(), err)
		}
		g, err := decodeGame(data)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return games, nil
}

// UpdateGame applies fn to a session under optimistic concurrency. The
// callback runs again from a fresh read after every conflict, so its
// validation must be safe to repeat. A callback returning ErrNoChange
// aborts without writing; the loaded session is still returned.
func (r *Repository) UpdateGame(ctx context.Context, gameID string, fn func(*models.GameSession) error) (*models.GameSession, error) {
	var out *models.GameSession
	err := r.optimistic(ctx, keyGame(gameID), func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, keyGame(gameID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session %s: %w", gameID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load session %s: %w", gameID, err)
		}
		g, err := decodeGame(data)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			out = g
			return err
		}
		g.Version++
		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyGame(gameID), payload, 0)
			return nil
		})
		if err == nil {
			out = g
		}
		return err
	})
	return out, err
}

// Waiting queue operations

// PushWaiting appends a user id to the waiting queue.
func (r *Repository) PushWaiting(ctx context.Context, userID string) error {
	if err := r.rdb.RPush(ctx, keyWaitingQueue, userID).Err(); err != nil {
		return fmt.Errorf("push waiting %s: %w", userID, err)
	}
	return nil
}

// PopWaiting atomically removes and returns the queue head, or ErrQueueEmpty.
func (r *Repository) PopWaiting(ctx context.Context) (string, error) {
	userID, err := r.rdb.LPop(ctx, keyWaitingQueue).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("pop waiting: %w", err)
	}
	return userID, nil
}

// WaitingLen returns the number of queued users.
func (r *Repository) WaitingLen(ctx context.Context) (int64, error) {
	n, err := r.rdb.LLen(ctx, keyWaitingQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("waiting queue length: %w", err)
	}
	return n, nil
}

// Timer operations

// GetTimerState loads the global timer, seeding the default on first read.
func (r *Repository) GetTimerState(ctx context.Context) (*models.TimerState, error) {
	data, err := r.rdb.Get(ctx, keyTimerState).Bytes()
	if errors.Is(err, redis.Nil) {
		state := r.defaultTimerState()
		seeded, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("encode timer state: %w", err)
		}
		if err := r.rdb.Set(ctx, keyTimerState, seeded, 0).Err(); err != nil {
			return nil, fmt.Errorf("seed timer state: %w", err)
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timer state: %w", err)
	}
	return decodeTimer(data)
}

// UpdateTimerState applies fn to the global timer under optimistic
// concurrency. Missing state starts from the default. A callback returning
// ErrNoChange aborts without writing; the loaded state is still returned.
func (r *Repository) UpdateTimerState(ctx context.Context, fn func(*models.TimerState) error) (*models.TimerState, error) {
	var out *models.TimerState
	err := r.optimistic(ctx, keyTimerState, func(tx *redis.Tx) error {
		state := r.defaultTimerState()
		data, err := tx.Get(ctx, keyTimerState).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load timer state: %w", err)
		}
		if err == nil {
			if state, err = decodeTimer(data); err != nil {
				return err
			}
		}
		if err := fn(state); err != nil {
			out = state
			return err
		}
		state.Version++
		payload, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode timer state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyTimerState, payload, 0)
			return nil
		})
		if err == nil {
			out = state
		}
		return err
	})
	return out, err
}

// optimistic runs fn inside a watched transaction, retrying from a fresh
// read when the watched key changed underneath it.
func (r *Repository) optimistic(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		err := r.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug().Str("key", key).Int("attempt", attempt+1).Msg("optimistic update conflict, retrying")
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: %w", key, ErrConflict)
}
