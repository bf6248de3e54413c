package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{}

func (staticTokens) Token(userID int) (string, error) { return fmt.Sprintf("tok-%d", userID), nil }

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter)
}

func ok(data any) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
}

func fail(status int, msg string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
	}
}

func newFakeServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*fakeServer, *Client) {
	fs := &fakeServer{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, rec)
		fs.mu.Unlock()
		if h, ok := fs.routes[r.Method+" "+r.URL.Path]; ok {
			h(w)
			return
		}
		fail(http.StatusNotFound, "no route")(w)
	}))
	t.Cleanup(srv.Close)
	return fs, NewClient(srv.URL+"/", WithTokens(staticTokens{}), WithReader(99))
}

func (fs *fakeServer) last() recorded {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[len(fs.requests)-1]
}

func TestSnapshotCombinesGameAndProperties(t *testing.T) {
	fs, c := newFakeServer(t, map[string]func(http.ResponseWriter){
		"GET /games/code/ABC": ok(map[string]any{
			"id": 5, "code": "ABC", "status": "RUNNING", "next_player_id": 2,
			"players": []map[string]any{{"user_id": 2, "address": "0x2", "balance": 1500}},
		}),
		"GET /game-properties/game/5": ok([]map[string]any{{"id": 11, "property_id": 19, "address": "0x2"}}),
	})

	snap, err := c.Snapshot(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Game.ID)
	require.Len(t, snap.Properties, 1)
	assert.Equal(t, 19, snap.Properties[0].PropertyID)
	cur, found := snap.CurrentPlayer()
	require.True(t, found)
	assert.Equal(t, 1500, cur.Balance)
	assert.Equal(t, "Bearer tok-99", fs.last().auth)
}

func TestChangePositionSendsPayload(t *testing.T) {
	fs, c := newFakeServer(t, map[string]func(http.ResponseWriter){
		"POST /game-players/change-position": ok(map[string]any{"still_in_jail": true}),
	})
	res, err := c.ChangePosition(context.Background(), ChangePositionRequest{UserID: 3, GameID: 5, Position: 10, Rolled: 7})
	require.NoError(t, err)
	assert.True(t, res.StillInJail)

	req := fs.last()
	assert.Equal(t, "Bearer tok-3", req.auth)
	assert.Equal(t, float64(10), req.body["position"])
	assert.Equal(t, float64(7), req.body["rolled"])
	assert.Equal(t, false, req.body["is_double"])
}

func TestServiceRejectionBecomesAPIError(t *testing.T) {
	_, c := newFakeServer(t, map[string]func(http.ResponseWriter){
		"POST /game-players/end-turn": fail(http.StatusBadRequest, "Not your turn"),
		"POST /game-properties/buy":   fail(http.StatusBadRequest, "Insufficient balance"),
		"POST /game-properties/sell":  fail(http.StatusBadGateway, "upstream"),
		"POST /game-properties/mortgage": func(w http.ResponseWriter) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "already mortgaged"})
		},
	})
	ctx := context.Background()

	err := c.EndTurn(ctx, EndTurnRequest{UserID: 1, GameID: 1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, IsStale(err))

	err = c.BuyProperty(ctx, PropertyRequest{UserID: 1, GameID: 1, PropertyID: 19})
	assert.False(t, IsStale(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, "Insufficient balance", Message(err))

	err = c.SellToBank(ctx, PropertyRequest{UserID: 1})
	assert.True(t, IsTransient(err))

	// 200 with success=false is still a rejection.
	err = c.Mortgage(ctx, PropertyRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, "already mortgaged", Message(err))
}

func TestTradesAndCounter(t *testing.T) {
	fs, c := newFakeServer(t, map[string]func(http.ResponseWriter){
		"POST /game-trade-requests":                    ok(map[string]any{"id": 77}),
		"GET /game-trade-requests/my/5/player/3":       ok([]map[string]any{{"id": 77, "status": "pending"}}),
		"GET /game-trade-requests/incoming/5/player/3": ok([]map[string]any{}),
		"PUT /game-trade-requests/77":                  ok(nil),
	})
	ctx := context.Background()

	created, err := c.CreateTrade(ctx, 3, models.TradeOffer{GameID: 5, PlayerID: 3, TargetPlayerID: 4, RequestedProperties: []int{19}})
	require.NoError(t, err)
	assert.Equal(t, 77, created.ID)
	assert.Equal(t, "pending", fs.last().body["status"])

	lists, err := c.Trades(ctx, 5, 3)
	require.NoError(t, err)
	require.Len(t, lists.Initiated, 1)
	assert.Empty(t, lists.Incoming)

	require.NoError(t, c.CounterTrade(ctx, 4, 77, created.Counter()))
	assert.Equal(t, "counter", fs.last().body["status"])
}

func TestBankruptcyCalls(t *testing.T) {
	fs, c := newFakeServer(t, map[string]func(http.ResponseWriter){
		"PUT /game-properties/11":    ok(nil),
		"DELETE /game-properties/12": ok(nil),
		"POST /game-players/leave":   ok(nil),
	})
	ctx := context.Background()

	require.NoError(t, c.TransferProperty(ctx, 3, 11, 5, 8))
	assert.Equal(t, float64(8), fs.last().body["player_id"])
	require.NoError(t, c.ReturnToBank(ctx, 3, 12, 5))
	assert.Equal(t, http.MethodDelete, fs.last().method)
	require.NoError(t, c.Leave(ctx, 3, "0x3", "ABC", "bankruptcy"))
	assert.Equal(t, "bankruptcy", fs.last().body["reason"])
}

func TestSubscribeForwardsRefreshEvents(t *testing.T) {
	joined := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var u Update
		_ = json.Unmarshal(msg, &u)
		joined <- u.Event + ":" + string(u.Data)

		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"chat"}`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"game-update","data":{"code":"ABC"}}`))
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logrus.NewEntry(logrus.New())
	updates := Subscribe(ctx, "ws"+srv.URL[len("http"):], "ABC", log)

	select {
	case j := <-joined:
		assert.Equal(t, `join-game-room:"ABC"`, j)
	case <-time.After(3 * time.Second):
		t.Fatal("no join frame")
	}
	select {
	case u := <-updates:
		assert.Equal(t, "game-update", u.Event)
	case <-time.After(3 * time.Second):
		t.Fatal("no update forwarded")
	}
}
