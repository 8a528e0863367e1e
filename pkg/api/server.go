package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/repositories"
	"github.com/skylane-game/skylane/pkg/server"
)

// Server exposes read-only operator endpoints over HTTP: the same view the
// console's status and players commands give, plus the persisted player
// records.
type Server struct {
	httpServer *http.Server
}

// NewServerOptions configures the admin API.
type NewServerOptions struct {
	Port       int
	GameServer *server.Server
}

type statusResponse struct {
	ServerName         string  `json:"server_name"`
	Running            bool    `json:"running"`
	Players            int     `json:"players"`
	MaxPlayers         int     `json:"max_players"`
	GameTick           uint64  `json:"game_tick"`
	ActualSimulationHz float64 `json:"actual_simulation_hz"`
	ActualBroadcastHz  float64 `json:"actual_broadcast_hz"`
	AverageTickTimeMs  float64 `json:"average_tick_time_ms"`
	CommandsProcessed  uint64  `json:"commands_processed"`
	CommandsRejected   uint64  `json:"commands_rejected"`
	SnapshotCount      int     `json:"snapshot_count"`
}

type playerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Ships       int    `json:"ships"`
	ConnectedAt string `json:"connected_at"`
}

type recordResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Credits  int64  `json:"credits"`
	System   string `json:"system"`
	Planet   string `json:"planet"`
	LastSeen string `json:"last_seen"`
}

// NewServer builds the admin API around a game server.
func NewServer(opts NewServerOptions) *Server {
	gs := opts.GameServer

	r := mux.NewRouter()
	r.HandleFunc("/status", handleStatus(gs)).Methods(http.MethodGet)
	r.HandleFunc("/players", handlePlayers(gs)).Methods(http.MethodGet)
	r.HandleFunc("/records", handleRecords(gs)).Methods(http.MethodGet)
	r.HandleFunc("/records/{playerID}", handleRecord(gs)).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", opts.Port),
			Handler: r,
		},
	}
}

// Start serves until Stop. Blocks.
func (s *Server) Start() {
	log.Info("Admin API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("Admin API closed")
			return
		}
		log.Error("Admin API error: %v", err)
	}
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleStatus(gs *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := gs.Statistics()
		writeJSON(w, http.StatusOK, statusResponse{
			ServerName:         gs.Config().ServerName,
			Running:            stats.Running,
			Players:            stats.ConnectedPlayers,
			MaxPlayers:         stats.MaxPlayers,
			GameTick:           stats.GameTick,
			ActualSimulationHz: stats.ActualSimulationHz,
			ActualBroadcastHz:  stats.ActualBroadcastHz,
			AverageTickTimeMs:  stats.AverageTickTimeMs,
			CommandsProcessed:  stats.CommandsProcessed,
			CommandsRejected:   stats.CommandsRejected,
			SnapshotCount:      stats.SnapshotCount,
		})
	}
}

func handlePlayers(gs *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := gs.Registry().All()
		resp := make([]playerResponse, 0, len(all))
		for _, p := range all {
			resp = append(resp, playerResponse{
				ID:          p.ID.String(),
				Name:        p.Name,
				Ships:       p.ShipCount(),
				ConnectedAt: p.ConnectedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleRecords(gs *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo := gs.Repository()
		if repo == nil {
			http.Error(w, "no repository configured", http.StatusNotFound)
			return
		}
		records, err := repo.ListPlayers(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp := make([]recordResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, recordToResponse(rec))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleRecord(gs *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo := gs.Repository()
		if repo == nil {
			http.Error(w, "no repository configured", http.StatusNotFound)
			return
		}
		id, err := uuid.Parse(mux.Vars(r)["playerID"])
		if err != nil {
			http.Error(w, "invalid player id", http.StatusBadRequest)
			return
		}
		record, err := repo.LoadPlayer(r.Context(), id)
		if err != nil {
			var notFound *repositories.ErrNotFound
			if errors.As(err, &notFound) {
				http.Error(w, "player record not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recordToResponse(record))
	}
}

func recordToResponse(rec *repositories.PlayerRecord) recordResponse {
	return recordResponse{
		ID:       rec.ID.String(),
		Name:     rec.Name,
		Credits:  rec.Credits,
		System:   rec.System,
		Planet:   rec.Planet,
		LastSeen: rec.LastSeen.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response: %v", err)
	}
}
