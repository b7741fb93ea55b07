package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

var (
	errMalformedBody     = errors.New("request body is not valid JSON")
	errMissingPlayerID   = errors.New("player_id is required")
	errMalformedPosition = errors.New("position must be [row, col]")
)

type gameService interface {
	CreateGame(ctx context.Context) (*entity.PlayerSnapshot, error)
	JoinGame(ctx context.Context, gameID string) (*entity.PlayerSnapshot, error)
	MakeMove(ctx context.Context, gameID, playerID string, pos entity.Position) (*entity.Snapshot, error)
	GetState(ctx context.Context, gameID string) (*entity.Snapshot, error)
}

type socketHandler interface {
	ServeGame(w http.ResponseWriter, r *http.Request, gameID string)
}

type handlers struct {
	logger  *slog.Logger
	games   gameService
	sockets socketHandler
}

type moveRequest struct {
	PlayerID string `json:"player_id"`
	Position []int  `json:"position"`
}

func (that moveRequest) validate() (entity.Position, error) {
	if that.PlayerID == "" {
		return entity.Position{}, errMissingPlayerID
	}

	if len(that.Position) != 2 { //nolint:mnd // row and column
		return entity.Position{}, errMalformedPosition
	}

	return entity.Position{Row: that.Position[0], Col: that.Position[1]}, nil
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Debug("failed to write pong", "error", err)
	}
}

func (that *handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.games.CreateGame(r.Context())
	if err != nil {
		that.respondError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, err := that.games.JoinGame(r.Context(), gameID)
	if err != nil {
		that.respondError(w, err, map[string]any{"game_id": gameID})
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) MakeMove(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	fields := map[string]any{"game_id": gameID}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.respondError(w, fmt.Errorf("%w: %w", errMalformedBody, err), fields)
		return
	}

	fields["player_id"] = req.PlayerID
	fields["position"] = req.Position

	pos, err := req.validate()
	if err != nil {
		that.respondError(w, err, fields)
		return
	}

	game, err := that.games.MakeMove(r.Context(), gameID, req.PlayerID, pos)
	if err != nil {
		that.respondError(w, err, fields)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, err := that.games.GetState(r.Context(), gameID)
	if err != nil {
		that.respondError(w, err, map[string]any{"game_id": gameID})
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) GameSocket(w http.ResponseWriter, r *http.Request) {
	that.sockets.ServeGame(w, r, mux.Vars(r)["id"])
}
