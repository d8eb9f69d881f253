package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/engine"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/logger"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := app.NewService(
		app.WithLogger(quiet),
		app.WithEngine(engine.New(quiet)),
		app.WithStarter(func() domain.Cell { return domain.X }),
	)
	h := NewServer(s, WithLogger(logger.NewWithWriter(io.Discard, slog.LevelInfo)))
	return s, h
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values, pid string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if pid != "" {
		req.AddCookie(&http.Cookie{Name: "player_id", Value: pid})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "<form")
	require.Contains(t, body, `action="/game"`)
	require.Contains(t, body, `name="mode"`)
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(t, h, "/game", url.Values{"mode": {"engine"}, "mark": {"O"}}, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Result().Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/game/"), "got %q", loc)

	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	require.True(t, ok)
	require.Equal(t, domain.O, gs.Match.Human)
	require.Equal(t, 1, gs.Match.Game.Moves, "engine opened as X")
}

func TestCreateRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(t, h, "/game", url.Values{"mode": {"online"}}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postForm(t, h, "/game", url.Values{"mark": {"Z"}}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
	svc, h := newTestServer(t)
	// Create a game via service to know ID
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeTwoPlayer})

	req := httptest.NewRequest(http.MethodGet, "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	// Cookie set
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "player_id" {
			playerID = c.Value
			break
		}
	}
	require.NotEmpty(t, playerID, "expected player_id cookie to be set")
	// Auto-claimed seat
	latest, ok := svc.Get(gs.ID)
	require.True(t, ok)
	require.Contains(t, []string{latest.X, latest.O}, playerID)
	// SSE wiring present
	body := rr.Body.String()
	require.Contains(t, body, `hx-ext="sse"`)
	require.Contains(t, body, "/game/"+gs.ID+"/events")
}

func TestGamePageUnknownID(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeTwoPlayer})
	// First GET to auto-claim X for the cookie-less visitor
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/game/"+gs.ID, nil))

	rr := postForm(t, h, "/game/"+gs.ID+"/join", url.Values{}, "p2")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `id="board"`)
	latest, _ := svc.Get(gs.ID)
	require.Equal(t, "p2", latest.O)
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeTwoPlayer})
	// Assign X and O
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"r": {"0"}, "c": {"0"}}, "p1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `id="board"`)
	require.Contains(t, rr.Body.String(), "O to move")
	latest, _ := svc.Get(gs.ID)
	require.Equal(t, 1, latest.Match.Game.Moves)

	rr = postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"r": {"1"}, "c": {"1"}}, "p1")
	require.Contains(t, rr.Body.String(), "Not your turn")

	rr = postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"r": {"x"}}, "p2")
	require.Contains(t, rr.Body.String(), "Out of bounds")
}

func TestPlayAgainstEngine(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeEngine})
	svc.Join(gs.ID, "human")

	rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"r": {"1"}, "c": {"1"}}, "human")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Your move (X)")

	latest, _ := svc.Get(gs.ID)
	require.Equal(t, 2, latest.Match.Game.Moves)
}

func TestResetEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeTwoPlayer})
	svc.Join(gs.ID, "p1")
	_, err := svc.Play(gs.ID, "p1", 0, 0)
	require.NoError(t, err)

	rr := postForm(t, h, "/game/"+gs.ID+"/reset", url.Values{}, "p1")
	require.Equal(t, http.StatusOK, rr.Code)
	latest, _ := svc.Get(gs.ID)
	require.Zero(t, latest.Match.Game.Moves)

	rr = postForm(t, h, "/game/"+gs.ID+"/reset", url.Values{}, "stranger")
	require.Contains(t, rr.Body.String(), "You are a spectator")
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	// create a game via POST
	rrCreate := postForm(t, h, "/game", url.Values{}, "")
	loc := rrCreate.Result().Header.Get("Location")
	require.NotEmpty(t, loc, "missing redirect location")
	// Request SSE
	req := httptest.NewRequest(http.MethodGet, loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.HasPrefix(rr.Result().Header.Get("Content-Type"), "text/event-stream"))
}

func TestEventsStreamsBoardUpdates(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.CreateOptions{Mode: app.ModeTwoPlayer})
	svc.Join(gs.ID, "p1")

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/game/"+gs.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Headers are flushed after the subscription is registered.
	_, err = svc.Play(gs.ID, "p1", 0, 0)
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if strings.HasPrefix(sc.Text(), `data: <div id="board">`) {
			break
		}
	}
	require.Contains(t, lines, "event: board")
	require.Contains(t, lines, `data: <div id="board">`)
}

func TestBestMoveAPI(t *testing.T) {
	_, h := newTestServer(t)
	cases := []struct {
		name   string
		body   string
		status int
		move   int
	}{
		{"completes row", `{"board":"XX.OO....","mark":"X"}`, http.StatusOK, 2},
		{"mark inferred", `{"board":"XX..O...."}`, http.StatusOK, 2},
		{"terminal board", `{"board":"XXXOO....","mark":"O"}`, http.StatusUnprocessableEntity, 0},
		{"bad board", `{"board":"XX"}`, http.StatusBadRequest, 0},
		{"bad mark", `{"board":".........","mark":"Q"}`, http.StatusBadRequest, 0},
		{"bad json", `{`, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/best-move", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.status != http.StatusOK {
				var e errorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
				require.NotEmpty(t, e.Error)
				return
			}
			var res bestMoveResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
			require.Equal(t, tc.move, res.Move)
			require.Positive(t, res.Nodes)
		})
	}
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestWriteEventPrefixesEveryLine(t *testing.T) {
	var buf bytes.Buffer
	writeEvent(&buf, "board", []byte("<a>\n<b>\n"))
	require.Equal(t, "event: board\ndata: <a>\ndata: <b>\n\n", buf.String())
}
