package game

import (
	"context"
	"fmt"

	"github.com/mcdev12/gridmatch/internal/events"
)

// Snapshot builds the aggregated games list, each session enriched with both
// players' cumulative win/loss totals.
func (s *Service) Snapshot(ctx context.Context) (*events.GamesSnapshot, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("build games snapshot: %w", err)
	}

	snapshot := &events.GamesSnapshot{Sessions: make([]events.SessionSummary, 0, len(games))}
	for _, g := range games {
		p1Stats, err := s.store.GetStats(ctx, g.Player1ID)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", g.Player1ID, err)
		}
		p2Stats, err := s.store.GetStats(ctx, g.Player2ID)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", g.Player2ID, err)
		}
		snapshot.Sessions = append(snapshot.Sessions, events.SessionSummary{
			GameSession:        *g,
			Player1TotalWins:   p1Stats.Wins,
			Player1TotalLosses: p1Stats.Losses,
			Player2TotalWins:   p2Stats.Wins,
			Player2TotalLosses: p2Stats.Losses,
		})
	}
	return snapshot, nil
}

// PublishSnapshot builds the games list and publishes it on the games
// channel for the admin dashboards on every process.
func (s *Service) PublishSnapshot(ctx context.Context) error {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(events.ChannelGames, snapshot); err != nil {
		return fmt.Errorf("publish games snapshot: %w", err)
	}
	return nil
}
