package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

const (
	codeGameNotFound      = "GAME_NOT_FOUND"
	codeInvalidPosition   = "INVALID_POSITION"
	codeInvalidRequest    = "INVALID_REQUEST"
	codeGameRuleViolation = "GAME_RULE_VIOLATION"
	codeInternal          = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// classify - maps a failure to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, codeGameNotFound
	case errors.Is(err, apperror.ErrOutOfBounds):
		return http.StatusBadRequest, codeInvalidPosition
	case errors.Is(err, errMalformedBody), errors.Is(err, errMissingPlayerID), errors.Is(err, errMalformedPosition):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, apperror.ErrInvalidState), errors.Is(err, apperror.ErrWrongTurn), errors.Is(err, apperror.ErrCellOccupied):
		return http.StatusUnprocessableEntity, codeGameRuleViolation
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// respondError - fields holds what the request was about (game_id, player_id, position);
// only the ones relevant to the error's code end up in the details.
func (that *handlers) respondError(w http.ResponseWriter, err error, fields map[string]any) {
	status, code := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
		message = http.StatusText(status)
	}

	respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
		Details: errorDetails(code, err, fields),
	})
}

var detailKeys = map[string][]string{
	codeGameNotFound:      {"game_id"},
	codeInvalidPosition:   {"position"},
	codeGameRuleViolation: {"game_id", "player_id", "position"},
}

// errorDetails - echoes the offending request fields and names the violated rule so
// clients need not parse messages.
func errorDetails(code string, err error, fields map[string]any) map[string]any {
	details := make(map[string]any)

	for _, key := range detailKeys[code] {
		if value, ok := fields[key]; ok {
			details[key] = value
		}
	}

	switch {
	case errors.Is(err, apperror.ErrInvalidState):
		details["rule"] = "invalid_state"
	case errors.Is(err, apperror.ErrWrongTurn):
		details["rule"] = "wrong_turn"
	case errors.Is(err, apperror.ErrCellOccupied):
		details["rule"] = "cell_occupied"
	}

	if len(details) == 0 {
		return nil
	}

	return details
}
