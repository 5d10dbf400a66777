package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/youth-scoreboard/internal/assistant"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/service"
	"github.com/youth-scoreboard/internal/websocket"
)

// PINHeader carries the caller's PIN on every authorized request
const PINHeader = "X-PIN"

// Handler provides HTTP handlers for the match API
type Handler struct {
	matches *service.MatchService
	views   *service.ViewService
	tools   *assistant.Executor
	hub     *websocket.Hub
	ready   func(ctx context.Context) error
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(matches *service.MatchService, views *service.ViewService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		matches: matches,
		views:   views,
		tools:   assistant.NewExecutor(matches, views),
		hub:     hub,
		logger:  logger,
	}
}

// SetReadinessCheck installs the dependency probe behind /ready
func (h *Handler) SetReadinessCheck(fn func(ctx context.Context) error) {
	h.ready = fn
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/public/{code}", h.GetPublicView)
		r.Get("/coach/matches", h.GetCoachMatches)

		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.CreateMatch)

			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.GetCoachView)
				r.Get("/referee-view", h.GetRefereeView)
				r.Get("/playing-time", h.GetPlayingTime)
				r.Get("/suggestions", h.GetSuggestions)

				// Lifecycle
				r.Post("/lineup", h.matchAction(h.matches.OpenLineup))
				r.Post("/start", h.matchAction(h.matches.Start))
				r.Post("/next-quarter", h.matchAction(h.matches.NextQuarter))
				r.Post("/resume-halftime", h.matchAction(h.matches.ResumeFromHalftime))
				r.Post("/pause", h.matchAction(h.matches.PauseClock))
				r.Post("/resume", h.matchAction(h.matches.ResumeClock))
				r.Post("/show-lineup", h.matchAction(h.matches.ToggleShowLineup))

				// Scoreboard and events
				r.Post("/goals", h.AddGoal)
				r.Post("/score/decrement", h.DecrementScore)
				r.Post("/cards", h.AddCard)
				r.Post("/substitutions", h.Substitute)

				// Roster
				r.Route("/players/{playerID}", func(r chi.Router) {
					r.Post("/field", h.playerAction(h.matches.TogglePlayerOnField))
					r.Post("/keeper", h.playerAction(h.matches.ToggleKeeper))
					r.Post("/absent", h.SetAbsent)
					r.Post("/slot", h.SetFieldSlot)
				})

				// Coordination
				r.Post("/lead", h.matchAction(h.matches.ClaimMatchLead))
				r.Delete("/lead", h.matchAction(h.matches.ReleaseMatchLead))
				r.Put("/referee", h.AssignReferee)

				r.Post("/assistant/tools", h.ExecuteTool)
			})
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, "+PINHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps a domain error kind to an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindPrecondition:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// handleError renders err, hiding internal failures behind a generic message
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"op", op,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		h.writeError(w, status, domain.ErrInternalError)
		return
	}
	h.writeError(w, status, err)
}

// decode reads a JSON request body into v
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return false
	}
	return true
}

func pin(r *http.Request) string {
	return r.Header.Get(PINHeader)
}

type matchFunc func(ctx context.Context, matchID, pin string) (*domain.Match, error)

// matchAction adapts a body-less match mutation to a handler
func (h *Handler) matchAction(fn matchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match, err := fn(r.Context(), chi.URLParam(r, "matchID"), pin(r))
		if err != nil {
			h.handleError(w, r, "match action", err)
			return
		}
		h.writeSuccess(w, match)
	}
}

type playerFunc func(ctx context.Context, matchID, pin, playerID string) (*domain.MatchPlayer, error)

// playerAction adapts a body-less roster toggle to a handler
func (h *Handler) playerAction(fn playerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, err := fn(r.Context(), chi.URLParam(r, "matchID"), pin(r), chi.URLParam(r, "playerID"))
		if err != nil {
			h.handleError(w, r, "player action", err)
			return
		}
		h.writeSuccess(w, player)
	}
}

// HandleWebSocket handles WebSocket upgrade requests from spectators
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.views, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.TotalConnections(),
		"watched_matches":   len(h.hub.ActiveCodes()),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Error: "not ready"})
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// CreateMatch handles match creation by a coach
func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.CoachPIN = pin(r)

	result, err := h.matches.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, r, "create match", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    result,
	})
}

// GetPublicView returns the spectator view of a match. No PIN is needed.
func (h *Handler) GetPublicView(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.PublicByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.handleError(w, r, "public view", err)
		return
	}
	h.writeSuccess(w, view)
}

// GetCoachMatches lists the matches of the calling coach's teams
func (h *Handler) GetCoachMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.views.CoachMatches(r.Context(), pin(r))
	if err != nil {
		h.handleError(w, r, "coach matches", err)
		return
	}
	h.writeSuccess(w, matches)
}

// GetCoachView returns the operating view of a match
func (h *Handler) GetCoachView(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.CoachView(r.Context(), chi.URLParam(r, "matchID"), pin(r))
	if err != nil {
		h.handleError(w, r, "coach view", err)
		return
	}
	h.writeSuccess(w, view)
}

// GetRefereeView returns the clock-control view of a match
func (h *Handler) GetRefereeView(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.RefereeView(r.Context(), chi.URLParam(r, "matchID"), pin(r))
	if err != nil {
		h.handleError(w, r, "referee view", err)
		return
	}
	h.writeSuccess(w, view)
}

// GetPlayingTime returns live minutes per player
func (h *Handler) GetPlayingTime(w http.ResponseWriter, r *http.Request) {
	players, err := h.views.PlayingTime(r.Context(), chi.URLParam(r, "matchID"), pin(r))
	if err != nil {
		h.handleError(w, r, "playing time", err)
		return
	}
	h.writeSuccess(w, players)
}

// GetSuggestions returns substitution suggestions
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.views.Suggestions(r.Context(), chi.URLParam(r, "matchID"), pin(r))
	if err != nil {
		h.handleError(w, r, "suggestions", err)
		return
	}
	h.writeSuccess(w, suggestions)
}

// AddGoal records a goal
func (h *Handler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var req domain.GoalRequest
	if !h.decode(w, r, &req) {
		return
	}
	match, err := h.matches.AddGoal(r.Context(), chi.URLParam(r, "matchID"), pin(r), req)
	if err != nil {
		h.handleError(w, r, "add goal", err)
		return
	}
	h.writeSuccess(w, match)
}

type decrementRequest struct {
	Side domain.Side `json:"side"`
}

// DecrementScore removes a goal from one side
func (h *Handler) DecrementScore(w http.ResponseWriter, r *http.Request) {
	var req decrementRequest
	if !h.decode(w, r, &req) {
		return
	}
	match, err := h.matches.DecrementScore(r.Context(), chi.URLParam(r, "matchID"), pin(r), req.Side)
	if err != nil {
		h.handleError(w, r, "decrement score", err)
		return
	}
	h.writeSuccess(w, match)
}

type cardRequest struct {
	PlayerID string          `json:"player_id"`
	Card     domain.CardType `json:"card"`
}

// AddCard records a yellow or red card
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !h.decode(w, r, &req) {
		return
	}
	match, err := h.matches.AddCard(r.Context(), chi.URLParam(r, "matchID"), pin(r), req.PlayerID, req.Card)
	if err != nil {
		h.handleError(w, r, "add card", err)
		return
	}
	h.writeSuccess(w, match)
}

type substitutionRequest struct {
	PlayerOutID string `json:"player_out_id"`
	PlayerInID  string `json:"player_in_id"`
}

// Substitute swaps a bench player for an on-field player
func (h *Handler) Substitute(w http.ResponseWriter, r *http.Request) {
	var req substitutionRequest
	if !h.decode(w, r, &req) {
		return
	}
	match, err := h.matches.Substitute(r.Context(), chi.URLParam(r, "matchID"), pin(r), req.PlayerOutID, req.PlayerInID)
	if err != nil {
		h.handleError(w, r, "substitute", err)
		return
	}
	h.writeSuccess(w, match)
}

type absentRequest struct {
	Absent bool `json:"absent"`
}

// SetAbsent marks a player absent or present before kick-off
func (h *Handler) SetAbsent(w http.ResponseWriter, r *http.Request) {
	var req absentRequest
	if !h.decode(w, r, &req) {
		return
	}
	player, err := h.matches.SetAbsent(r.Context(), chi.URLParam(r, "matchID"), pin(r), chi.URLParam(r, "playerID"), req.Absent)
	if err != nil {
		h.handleError(w, r, "set absent", err)
		return
	}
	h.writeSuccess(w, player)
}

type slotRequest struct {
	Slot *int `json:"slot"`
}

// SetFieldSlot places a player in a formation slot, or clears it
func (h *Handler) SetFieldSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !h.decode(w, r, &req) {
		return
	}
	player, err := h.matches.SetFieldSlot(r.Context(), chi.URLParam(r, "matchID"), pin(r), chi.URLParam(r, "playerID"), req.Slot)
	if err != nil {
		h.handleError(w, r, "set field slot", err)
		return
	}
	h.writeSuccess(w, player)
}

type refereeRequest struct {
	RefereeID string `json:"referee_id"`
}

// AssignReferee binds a referee to the match, or unbinds with an empty id
func (h *Handler) AssignReferee(w http.ResponseWriter, r *http.Request) {
	var req refereeRequest
	if !h.decode(w, r, &req) {
		return
	}
	match, err := h.matches.AssignReferee(r.Context(), chi.URLParam(r, "matchID"), pin(r), req.RefereeID)
	if err != nil {
		h.handleError(w, r, "assign referee", err)
		return
	}
	h.writeSuccess(w, match)
}

// ExecuteTool runs one conversational-assistant tool call
func (h *Handler) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	var call assistant.ToolCall
	if !h.decode(w, r, &call) {
		return
	}
	result, err := h.tools.Execute(r.Context(), chi.URLParam(r, "matchID"), pin(r), call)
	if err != nil {
		var resolveErr *assistant.ResolveError
		if errors.As(err, &resolveErr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, APIResponse{
				Success: false,
				Data:    map[string][]string{"candidates": resolveErr.Candidates},
				Error:   err.Error(),
			})
			return
		}
		h.handleError(w, r, "assistant tool", err)
		return
	}
	h.writeSuccess(w, result)
}
