package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/access"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/fairness"
	"github.com/youth-scoreboard/internal/service"
	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/memory"
	"github.com/youth-scoreboard/internal/websocket"
)

type apiResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()

	st := memory.New()
	err := st.Update(ctx, func(tx store.Tx) error {
		if err := tx.Teams().Insert(ctx, &domain.Team{ID: "team-1", Name: "JO9-1"}); err != nil {
			return err
		}
		for _, c := range []domain.Coach{
			{ID: "coach-a", Name: "Coach A", PIN: "1111", TeamIDs: []string{"team-1"}},
			{ID: "coach-b", Name: "Coach B", PIN: "2222", TeamIDs: []string{"team-1"}},
		} {
			c := c
			if err := tx.Coaches().Insert(ctx, &c); err != nil {
				return err
			}
		}
		for _, p := range []domain.Player{
			{ID: "p1", TeamID: "team-1", Name: "Sem de Jong"},
			{ID: "p2", TeamID: "team-1", Name: "Lotte Peters"},
		} {
			p := p
			if err := tx.Players().Insert(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	gate := access.NewGate(cfg.Access.AdminPIN)
	engine := fairness.NewEngine(cfg.Match.FairnessToleranceMinutes, cfg.Match.SuggestionLimit)
	views := service.NewViewService(st, gate, engine, cfg.Match.CoachMatchesLimit, logger)
	matches := service.NewMatchService(st, gate, views, &cfg.Match, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	views.SetHub(hub)

	h := NewHandler(matches, views, hub, logger)
	return &testServer{t: t, handler: h, router: h.Router()}
}

func (s *testServer) do(method, path, pin string, body any) (int, apiResult) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if pin != "" {
		req.Header.Set(PINHeader, pin)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var res apiResult
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

func (s *testServer) createMatch() domain.CreateMatchResult {
	s.t.Helper()
	code, res := s.do(http.MethodPost, "/api/v1/matches", "1111", map[string]any{
		"team_id":    "team-1",
		"opponent":   "FC Rood",
		"is_home":    true,
		"player_ids": []string{"p1", "p2"},
	})
	require.Equal(s.t, http.StatusCreated, code, res.Error)
	var created domain.CreateMatchResult
	require.NoError(s.t, json.Unmarshal(res.Data, &created))
	return created
}

func TestMatchFlow(t *testing.T) {
	s := newTestServer(t)
	created := s.createMatch()
	base := "/api/v1/matches/" + created.MatchID

	code, res := s.do(http.MethodPost, base+"/start", "0000", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, domain.ErrInvalidMatchOrPIN.Error(), res.Error)

	code, _ = s.do(http.MethodPost, base+"/start", "1111", nil)
	require.Equal(t, http.StatusOK, code)

	code, res = s.do(http.MethodPost, base+"/start", "1111", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ErrAlreadyStarted.Error(), res.Error)

	code, res = s.do(http.MethodPost, base+"/goals", "1111", map[string]any{"player_id": "p1", "assist_player_id": "p2"})
	require.Equal(t, http.StatusOK, code)
	var match domain.Match
	require.NoError(t, json.Unmarshal(res.Data, &match))
	assert.Equal(t, 1, match.HomeScore)

	code, _ = s.do(http.MethodPost, base+"/score/decrement", "1111", map[string]any{"side": "middle"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = s.do(http.MethodGet, "/api/v1/public/"+strings.ToLower(created.PublicCode), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(res.Data), "pin")
	var view domain.PublicView
	require.NoError(t, json.Unmarshal(res.Data, &view))
	assert.Equal(t, 1, view.HomeScore)
	assert.Len(t, view.Timeline, 3)

	code, _ = s.do(http.MethodGet, "/api/v1/public/ZZZZZZ", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = s.do(http.MethodGet, base+"/playing-time", "1111", nil)
	require.Equal(t, http.StatusOK, code)
	var players []domain.PlayerTime
	require.NoError(t, json.Unmarshal(res.Data, &players))
	assert.Len(t, players, 2)
}

func TestLeadCoordinationErrors(t *testing.T) {
	s := newTestServer(t)
	created := s.createMatch()
	lead := "/api/v1/matches/" + created.MatchID + "/lead"

	code, _ := s.do(http.MethodPost, lead, "1111", nil)
	require.Equal(t, http.StatusOK, code)

	code, res := s.do(http.MethodPost, lead, "2222", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ErrLeadAlreadyClaimed.Error(), res.Error)

	code, res = s.do(http.MethodDelete, lead, "2222", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ErrLeadNotCurrentLead.Error(), res.Error)

	code, res = s.do(http.MethodGet, "/api/v1/coach/matches", "1111", nil)
	require.Equal(t, http.StatusOK, code)
	var summaries []domain.MatchSummary
	require.NoError(t, json.Unmarshal(res.Data, &summaries))
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].IsLead)
}

func TestAssistantTools(t *testing.T) {
	s := newTestServer(t)
	created := s.createMatch()
	tools := "/api/v1/matches/" + created.MatchID + "/assistant/tools"

	code, _ := s.do(http.MethodPost, tools, "1111", map[string]any{"name": "undo_last"})
	assert.Equal(t, http.StatusNotImplemented, code)

	code, res := s.do(http.MethodPost, tools, "1111", map[string]any{"name": "add_goal", "arguments": map[string]any{"scorer": "zoe"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, string(res.Data), "Sem de Jong")

	code, res = s.do(http.MethodPost, tools, "1111", map[string]any{"name": "get_state"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), `"status":"scheduled"`)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	s.handler.SetReadinessCheck(func(context.Context) error { return errors.New("db down") })
	code, res := s.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, res.Success)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(domain.ErrLeadNoTeamAccess))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrLeadMatchNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrClockPaused))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidCard))
	assert.Equal(t, http.StatusNotImplemented, statusFor(domain.ErrUnsupported))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
