package rest

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter - every route of the service, wrapped in CORS and request logging.
func NewRouter(logger *slog.Logger, games gameService, sockets socketHandler, allowedOrigins []string) http.Handler {
	h := &handlers{
		logger:  logger.With("component", "rest"),
		games:   games,
		sockets: sockets,
	}

	router := mux.NewRouter()
	router.HandleFunc("/ping", h.Ping).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", h.CreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}", h.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/join", h.JoinGame).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/move", h.MakeMove).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/ws", h.GameSocket).Methods(http.MethodGet)

	return withCORS(allowedOrigins, withRequestLogging(logger, router))
}
