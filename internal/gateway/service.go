package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the client-facing gateway. It owns the WebSocket connection
// manager, routes inbound client messages to the core services, and relays
// bus events from every process to the locally connected clients.
type Service struct {
	connectionManager *ConnectionManager
	router            *Router
	fanout            *Fanout
	wsHandler         *WebSocketHandler
}

// NewService creates a new gateway service
func NewService(config ConnectionConfig, users Users, matchmaker Matchmaker, games Games, timer Timer) *Service {
	connectionManager := NewConnectionManager(config)
	router := NewRouter(connectionManager, users, matchmaker, games, timer)
	connectionManager.SetMessageHandler(router.Handle)

	return &Service{
		connectionManager: connectionManager,
		router:            router,
		fanout:            NewFanout(connectionManager),
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
}

// Start attaches the bus fan-out and runs the gateway until the context is
// cancelled.
func (s *Service) Start(ctx context.Context, sub Subscriber) error {
	log.Info().Msg("starting gateway service")

	if err := s.fanout.Attach(sub); err != nil {
		return err
	}

	go s.connectionManager.Start(ctx)

	<-ctx.Done()
	log.Info().Msg("gateway service shutting down")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Stats returns active connection and room counts.
func (s *Service) Stats() (connections, rooms int) {
	return s.connectionManager.Stats()
}
