package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *httptest.Server {
	t.Helper()

	svc := gateway.NewService(gateway.DefaultConfig())
	c := coordinator.New(coordinator.Config{
		Clock: clockwork.NewFakeClock(),
		Codes: func() string { return "123" },
	}, svc)
	svc.Bind(c)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	go func() { _ = svc.Start(ctx) }()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(msgType string, data interface{}) {
	c.t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *client) next() (*events.Event, error) {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	if err := c.conn.ReadJSON(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// until reads frames until one of the given type satisfies match, returning what it skipped too
func (c *client) until(eventType events.EventType, match func(*events.Event) bool) (*events.Event, []*events.Event) {
	c.t.Helper()
	var seen []*events.Event
	for {
		e, err := c.next()
		require.NoError(c.t, err, "waiting for %s", eventType)
		if e.Type == eventType && (match == nil || match(e)) {
			return e, seen
		}
		seen = append(seen, e)
	}
}

func (c *client) login(role, nickname string, extra map[string]interface{}) events.LoginSuccessPayload {
	c.t.Helper()
	data := map[string]interface{}{"role": role, "nickname": nickname, "avatar": 1}
	for k, v := range extra {
		data[k] = v
	}
	c.send(coordinator.CommandJoin, data)
	e, _ := c.until(events.EventTypeLoginSuccess, nil)

	var payload events.LoginSuccessPayload
	require.NoError(c.t, json.Unmarshal(e.Data, &payload))
	return payload
}

func usersCount(n int) func(*events.Event) bool {
	return func(e *events.Event) bool {
		var payload events.UsersPayload
		return json.Unmarshal(e.Data, &payload) == nil && len(payload.Users) == n
	}
}

func TestGateway_JoinStartAndBid(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	tLogin := teacher.login("teacher", "Ms T", nil)
	assert.Equal(t, "123", tLogin.RoomCode)
	assert.Equal(t, 0, tLogin.Budget)

	sLogin := student.login("student", "Ari", map[string]interface{}{"code": 123, "budget": "100"})
	assert.Equal(t, 100, sLogin.Budget)
	assert.NotEqual(t, tLogin.ID, sLogin.ID)

	teacher.until(events.EventTypeUsers, usersCount(2))

	teacher.send(coordinator.CommandStart, nil)
	student.until(events.EventTypeRoundStart, nil)

	student.send(coordinator.CommandBid, 30)
	e, _ := teacher.until(events.EventTypePrice, func(e *events.Event) bool {
		var p events.PricePayload
		return json.Unmarshal(e.Data, &p) == nil && p.Price == 30
	})
	var price events.PricePayload
	require.NoError(t, json.Unmarshal(e.Data, &price))
	require.NotNil(t, price.Bidder)
	assert.Equal(t, sLogin.ID, price.Bidder.ID)

	resp, err := http.Get(srv.URL + "/api/room/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "active", state["state"])
	assert.EqualValues(t, 30, state["price"])
	assert.NotContains(t, state, "room_code")
}

func TestGateway_WrongCodeIsPrivate(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	intruder := dial(t, srv)

	teacher.login("teacher", "Ms T", nil)

	intruder.send(coordinator.CommandJoin, map[string]interface{}{"role": "student", "nickname": "X", "code": "999"})
	e, _ := intruder.until(events.EventTypeLoginError, nil)
	var payload events.LoginErrorPayload
	require.NoError(t, json.Unmarshal(e.Data, &payload))
	assert.Equal(t, "wrong room code", payload.Reason)

	// The teacher sees a new roster from the next real join but never the error
	student := dial(t, srv)
	student.login("student", "Ari", map[string]interface{}{"code": "123"})
	_, seen := teacher.until(events.EventTypeUsers, usersCount(2))
	for _, s := range seen {
		assert.NotEqual(t, events.EventTypeLoginError, s.Type)
	}
}

func TestGateway_PrivateEventsReachOnlyTheirTarget(t *testing.T) {
	srv := newTestRoom(t)
	a := dial(t, srv)
	b := dial(t, srv)

	aLogin := a.login("student", "Ari", map[string]interface{}{"code": "123", "budget": 50})
	a.until(events.EventTypePrice, nil)

	b.send(coordinator.CommandJoin, map[string]interface{}{"role": "student", "nickname": "Bo", "code": "123", "budget": 60})
	e, seen := b.until(events.EventTypeLoginSuccess, nil)

	var bLogin events.LoginSuccessPayload
	require.NoError(t, json.Unmarshal(e.Data, &bLogin))
	assert.NotEqual(t, aLogin.ID, bLogin.ID)
	assert.Equal(t, 60, bLogin.Budget)

	// b was connected while a joined but heard nothing until its own login
	assert.Empty(t, seen)
	b.until(events.EventTypeUsers, usersCount(2))
}

func TestGateway_UnjoinedSocketsHearNoRoomEvents(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	lurker := dial(t, srv)
	intruder := dial(t, srv)

	teacher.login("teacher", "Ms T", nil)
	intruder.send(coordinator.CommandJoin, map[string]interface{}{"role": "student", "nickname": "X", "code": "999"})
	e, err := intruder.next()
	require.NoError(t, err)
	require.Equal(t, events.EventTypeLoginError, e.Type)

	student := dial(t, srv)
	student.login("student", "Ari", map[string]interface{}{"code": "123", "budget": 80})
	teacher.until(events.EventTypeUsers, usersCount(2))

	teacher.send(coordinator.CommandStart, nil)
	student.until(events.EventTypeRoundStart, nil)
	student.send(coordinator.CommandBid, 10)
	teacher.until(events.EventTypePrice, func(e *events.Event) bool {
		var p events.PricePayload
		return json.Unmarshal(e.Data, &p) == nil && p.Price == 10
	})

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	var stats gateway.ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 4, stats.TotalConnections)
	assert.Equal(t, 2, stats.JoinedConnections)

	// A reset reaches every socket; for the outsiders it is the first room event
	teacher.send(coordinator.CommandResetRoom, nil)
	for _, c := range []*client{lurker, intruder} {
		e, err := c.next()
		require.NoError(t, err)
		assert.Equal(t, events.EventTypeReload, e.Type)
	}
}

func TestGateway_KickClosesTargetSocket(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	teacher.login("teacher", "Ms T", nil)
	sLogin := student.login("student", "Ari", map[string]interface{}{"code": "123"})
	teacher.until(events.EventTypeUsers, usersCount(2))

	teacher.send(coordinator.CommandKick, sLogin.ID)
	student.until(events.EventTypeKicked, nil)

	var err error
	for err == nil {
		_, err = student.next()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) ||
		strings.Contains(err.Error(), "close"), "unexpected read error: %v", err)

	teacher.until(events.EventTypeUsers, usersCount(1))
}

func TestGateway_DisconnectLeavesRoster(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	teacher.login("teacher", "Ms T", nil)
	student.login("student", "Ari", map[string]interface{}{"code": "123"})
	teacher.until(events.EventTypeUsers, usersCount(2))

	require.NoError(t, student.conn.Close())
	teacher.until(events.EventTypeUsers, usersCount(1))
}

func TestGateway_ResetReloadsEveryone(t *testing.T) {
	srv := newTestRoom(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	teacher.login("teacher", "Ms T", nil)
	student.login("student", "Ari", map[string]interface{}{"code": "123"})

	teacher.send(coordinator.CommandResetRoom, nil)
	student.until(events.EventTypeReload, nil)
	teacher.until(events.EventTypeReload, nil)

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/ws/stats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var stats gateway.ConnectionStats
		if json.NewDecoder(resp.Body).Decode(&stats) != nil {
			return false
		}
		return stats.TotalConnections == 0
	}, 2*time.Second, 10*time.Millisecond)
}
