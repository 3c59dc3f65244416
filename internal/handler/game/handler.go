package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwalter/dungeonloom/internal/model/story"
	gameService "github.com/kwalter/dungeonloom/internal/service/game"
	"github.com/kwalter/dungeonloom/internal/service/session"
	"github.com/kwalter/dungeonloom/pkg/utils"
)

// Handler exposes the turn orchestrator over HTTP.
type Handler struct {
	gameSvc *gameService.Service
}

// New creates the game handler.
func New(gameSvc *gameService.Service) *Handler {
	return &Handler{gameSvc: gameSvc}
}

// RegisterRoutes mounts the game endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/game/start", h.handleStart)
	r.Post("/game/choose", h.handleChoose)
	r.Post("/game/reset", h.handleReset)
}

// turnResponse is the wire form of a turn result.
type turnResponse struct {
	SessionID string            `json:"sessionId"`
	Scene     string            `json:"scene"`
	Choices   []string          `json:"choices"`
	ImageURL  string            `json:"imageUrl,omitempty"`
	AudioURL  string            `json:"audioUrl,omitempty"`
	Errors    []story.TurnError `json:"errors,omitempty"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Prompt    string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if payload.SessionID == "" {
		// A fresh visit gets its own session.
		payload.SessionID = uuid.NewString()
	}

	result, err := h.gameSvc.BeginTurn(r.Context(), payload.SessionID, payload.Prompt)
	h.respondTurn(w, payload.SessionID, result, err)
}

func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Choice    string `json:"choice"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.Choice == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and choice are required")
		return
	}

	result, err := h.gameSvc.ContinueTurn(r.Context(), payload.SessionID, payload.Choice)
	h.respondTurn(w, payload.SessionID, result, err)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.gameSvc.Reset(r.Context(), payload.SessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "invalid or expired session")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// respondTurn maps a turn outcome to an HTTP response. A failed turn still
// ships its error descriptors so the frontend can explain the failure.
func (h *Handler) respondTurn(w http.ResponseWriter, sessionID string, result *story.TurnResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, gameService.ErrPromptRequired), errors.Is(err, gameService.ErrChoiceRequired):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, session.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "invalid or expired session")
		case errors.Is(err, context.Canceled):
			// Client went away mid-turn; nothing left to answer.
		default:
			utils.RespondJSON(w, http.StatusBadGateway, toResponse(sessionID, result))
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, toResponse(sessionID, result))
}

func toResponse(sessionID string, result *story.TurnResult) turnResponse {
	resp := turnResponse{SessionID: sessionID, Choices: []string{}}
	if result == nil {
		return resp
	}

	resp.Scene = result.Scene
	if result.Choices != nil {
		resp.Choices = result.Choices
	}
	resp.ImageURL = result.ImageURL
	resp.AudioURL = result.AudioURL
	resp.Errors = result.Errors
	return resp
}
