package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghozitech/ledger/internal/api/apierr"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/factory"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/storage/memory"
)

// testServer wraps the router of a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, factory.Config{})
}

func newTestServerWithConfig(t *testing.T, cfg factory.Config) *testServer {
	t.Helper()

	app := factory.NewTestAppWithStorage(memory.New(), cfg)
	t.Cleanup(func() { _ = app.Close() })

	return &testServer{
		handler: app.Router(5 * time.Second),
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func registerPlayer(t *testing.T, ts *testServer, email string) response.AuthResponse {
	t.Helper()

	body := map[string]string{"email": email, "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func startAttempt(t *testing.T, ts *testServer, token string, levelID int) response.Attempt {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": levelID}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var attempt response.Attempt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &attempt))
	return attempt
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registered := registerPlayer(t, ts, "Alice@Example.com")
	assert.Equal(t, "alice", registered.Player.Username)
	assert.Equal(t, "alice@example.com", registered.Player.Email)
	assert.Equal(t, 0, registered.Player.TotalPoints)
	assert.NotEmpty(t, registered.SessionToken)

	loginBody := map[string]string{"email": "alice@example.com", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.Equal(t, registered.Player.ID, loginResp.Player.ID)

	// Wrong password
	rr = ts.request(http.MethodPost, "/api/v1/players/login",
		map[string]string{"email": "alice@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))

	// Duplicate email
	rr = ts.request(http.MethodPost, "/api/v1/players/register",
		map[string]string{"email": "alice@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeEmailExists, errorCode(t, rr))
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{"password": "secret123"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/register",
		map[string]string{"email": "bob@example.com", "password": "abc"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeWeakPassword, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/register",
		map[string]any{"email": "bob@example.com", "password": "secret123", "admin": true}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/players/me"},
		{http.MethodPost, "/api/v1/attempts"},
		{http.MethodPost, "/api/v1/redemptions"},
		{http.MethodPost, "/api/v1/bonus/offer/claim"},
	} {
		rr := ts.request(tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "not-a-session")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	auth := registerPlayer(t, ts, "alice@example.com")

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, auth.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, auth.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListLevels(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/levels", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var levels []response.Level
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &levels))
	require.Len(t, levels, 3)
	assert.Equal(t, "Password Cracker", levels[0].Name)
	assert.Equal(t, 100, levels[0].Points)
	assert.Equal(t, 180, levels[0].TimeLimitSeconds)
	assert.Nil(t, levels[0].CompletedToday)

	// Signed in, after completing level 1
	auth := registerPlayer(t, ts, "alice@example.com")
	attempt := startAttempt(t, ts, auth.SessionToken, 1)
	rr = ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/input",
		map[string]string{"input": "admin123"}, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/v1/levels", nil, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &levels))
	require.NotNil(t, levels[0].CompletedToday)
	assert.True(t, *levels[0].CompletedToday)
	assert.False(t, *levels[1].CompletedToday)
}

func TestAttemptOutcomeFlow(t *testing.T) {
	ts := newTestServer(t)
	auth := registerPlayer(t, ts, "alice@example.com")

	attempt := startAttempt(t, ts, auth.SessionToken, 2)
	assert.Equal(t, "playing", attempt.State)
	assert.Equal(t, 180, attempt.TimeRemainingSeconds)

	// Failed outcome keeps the attempt playing
	rr := ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/outcome",
		map[string]any{"accepted": false, "points_earned": 0, "elapsed_seconds": 10}, auth.SessionToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, apierr.CodeAttemptFailed, errorCode(t, rr))

	// Malformed outcome
	rr = ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/outcome",
		map[string]any{"accepted": true, "points_earned": -5, "elapsed_seconds": 10}, auth.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidOutcome, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/outcome",
		map[string]any{"accepted": true, "points_earned": 150, "elapsed_seconds": 42}, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result response.CompletionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 150, result.Player.TotalPoints)
	assert.Equal(t, 1, result.Player.CompletedMissions)
	assert.Equal(t, 100.0, result.Player.Accuracy)
	assert.Equal(t, 42, result.Player.FastestTime)
	require.NotNil(t, result.BonusOffer)
	assert.Equal(t, 50, result.BonusOffer.Points)

	// Won attempts stay readable and reject further submissions
	rr = ts.request(http.MethodGet, "/api/v1/attempts/"+attempt.Handle, nil, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"won"`)

	rr = ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/outcome",
		map[string]any{"accepted": true, "points_earned": 150, "elapsed_seconds": 42}, auth.SessionToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeSessionNotPlaying, errorCode(t, rr))

	// Same level again today
	rr = ts.request(http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 2}, auth.SessionToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyCompletedToday, errorCode(t, rr))

	// Claim the bonus once
	rr = ts.request(http.MethodPost, "/api/v1/bonus/"+result.BonusOffer.ID+"/claim", nil, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var player response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &player))
	assert.Equal(t, 200, player.TotalPoints)
	assert.Equal(t, 1, player.CompletedMissions)

	rr = ts.request(http.MethodPost, "/api/v1/bonus/"+result.BonusOffer.ID+"/claim", nil, auth.SessionToken)
	assert.Equal(t, http.StatusGone, rr.Code)

	// History
	rr = ts.request(http.MethodGet, "/api/v1/players/me/completions?limit=5", nil, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var history []response.Completion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].LevelID)
	assert.Equal(t, 150, history[0].PointsEarned)
	assert.Equal(t, "2024-01-01", history[0].CalendarDate)
}

func TestAttemptsArePrivate(t *testing.T) {
	ts := newTestServer(t)
	alice := registerPlayer(t, ts, "alice@example.com")
	bob := registerPlayer(t, ts, "bob@example.com")

	attempt := startAttempt(t, ts, alice.SessionToken, 1)

	rr := ts.request(http.MethodGet, "/api/v1/attempts/"+attempt.Handle, nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/input",
		map[string]string{"input": "admin123"}, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/attempts/"+attempt.Handle, nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Owner can cancel; the attempt is gone afterwards
	rr = ts.request(http.MethodDelete, "/api/v1/attempts/"+attempt.Handle, nil, alice.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/attempts/"+attempt.Handle, nil, alice.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownLevel(t *testing.T) {
	ts := newTestServer(t)
	auth := registerPlayer(t, ts, "alice@example.com")

	rr := ts.request(http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 99}, auth.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeLevelNotFound, errorCode(t, rr))
}

func TestRedemptions(t *testing.T) {
	ts := newTestServer(t)
	auth := registerPlayer(t, ts, "alice@example.com")

	_, err := ts.app.Storage.UpdateUser(context.Background(), model.UserID(auth.Player.ID), func(tx *storage.UserTx) error {
		tx.User.TotalPoints = 12000
		return nil
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"below minimum", map[string]any{"points": 9999, "wallet_type": "dana", "phone_number": "081234567890"}, http.StatusUnprocessableEntity, apierr.CodeBelowMinimum},
		{"bad wallet", map[string]any{"points": 10000, "wallet_type": "paypal", "phone_number": "081234567890"}, http.StatusBadRequest, apierr.CodeInvalidWallet},
		{"bad phone", map[string]any{"points": 10000, "wallet_type": "dana", "phone_number": ""}, http.StatusBadRequest, apierr.CodeInvalidPhone},
		{"insufficient", map[string]any{"points": 13000, "wallet_type": "dana", "phone_number": "081234567890"}, http.StatusUnprocessableEntity, apierr.CodeInsufficientPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/redemptions", tt.body, auth.SessionToken)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}

	rr := ts.request(http.MethodPost, "/api/v1/redemptions",
		map[string]any{"points": 10000, "wallet_type": "gopay", "phone_number": "+6281234567890"}, auth.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created response.Redemption
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, 10000, created.PointsRequested)
	assert.Equal(t, 10.0, created.CashAmount)
	assert.Equal(t, "pending", created.Status)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, auth.SessionToken)
	assert.Contains(t, rr.Body.String(), `"total_points":2000`)

	rr = ts.request(http.MethodGet, "/api/v1/redemptions", nil, auth.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []response.Redemption
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rr = ts.request(http.MethodGet, "/api/v1/redemptions/"+created.ID, nil, auth.SessionToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Another user cannot read it
	bob := registerPlayer(t, ts, "bob@example.com")
	rr = ts.request(http.MethodGet, "/api/v1/redemptions/"+created.ID, nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	alice := registerPlayer(t, ts, "alice@example.com")
	registerPlayer(t, ts, "bob@example.com")

	attempt := startAttempt(t, ts, alice.SessionToken, 3)
	rr := ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/input",
		map[string]string{"input": " 3 "}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, ts.app.RankEngine.Refresh(context.Background()))

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard?n=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var lb response.Leaderboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lb))
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, "alice", lb.Entries[0].Username)
	assert.Equal(t, 200, lb.Entries[0].TotalPoints)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lb))
	assert.Len(t, lb.Entries, 2)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard?n=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLeaderboardEvents(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.handler)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/leaderboard/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: ") && event == "leaderboard":
				events <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(events)
	}()

	nextLeaderboard := func() response.Leaderboard {
		select {
		case data := <-events:
			var lb response.Leaderboard
			require.NoError(t, json.Unmarshal([]byte(data), &lb))
			return lb
		case <-time.After(2 * time.Second):
			t.Fatal("no leaderboard event received")
			return response.Leaderboard{}
		}
	}

	// Initial snapshot on connect
	assert.Empty(t, nextLeaderboard().Entries)

	alice := registerPlayer(t, ts, "alice@example.com")
	attempt := startAttempt(t, ts, alice.SessionToken, 1)
	rr := ts.request(http.MethodPost, "/api/v1/attempts/"+attempt.Handle+"/input",
		map[string]string{"input": "admin123"}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	// The hub registers the client asynchronously
	require.Eventually(t, func() bool {
		hub := ts.app.HubManager.GetHub("leaderboard")
		return hub != nil && hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, ts.app.RankEngine.Refresh(context.Background()))

	lb := nextLeaderboard()
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, 100, lb.Entries[0].TotalPoints)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServerWithConfig(t, factory.Config{
		RateLimit: factory.RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
	})

	assert.Equal(t, http.StatusOK, ts.request(http.MethodGet, "/api/v1/levels", nil, "").Code)
	assert.Equal(t, http.StatusOK, ts.request(http.MethodGet, "/api/v1/levels", nil, "").Code)

	rr := ts.request(http.MethodGet, "/api/v1/levels", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, apierr.CodeRateLimited, errorCode(t, rr))

	// Tokens refill with the clock
	ts.app.MockClock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, ts.request(http.MethodGet, "/api/v1/levels", nil, "").Code)
}

func TestRateLimitIgnoresBearerRotation(t *testing.T) {
	ts := newTestServerWithConfig(t, factory.Config{
		RateLimit: factory.RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
	})

	login := map[string]string{"email": "nobody@example.com", "password": "guess"}
	for i := 0; i < 2; i++ {
		rr := ts.request(http.MethodPost, "/api/v1/players/login", login, fmt.Sprintf("bogus-%d", i))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	for i := 2; i < 5; i++ {
		rr := ts.request(http.MethodPost, "/api/v1/players/login", login, fmt.Sprintf("bogus-%d", i))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, apierr.CodeRateLimited, errorCode(t, rr))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodGet, "/api/v1/levels", nil, "")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{endpoint="/api/v1/levels",method="GET",status="200"} 1`)
}
