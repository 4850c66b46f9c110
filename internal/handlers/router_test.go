// internal/handlers/router_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPServer(t *testing.T) (*GameServer, *httptest.Server) {
	t.Helper()
	gs, _ := newTestServer(t, nil)
	srv := httptest.NewServer(NewRouter(gs))
	t.Cleanup(srv.Close)
	return gs, srv
}

func postRoom(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rooms", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestCreateAndFetchRooms(t *testing.T) {
	gs, srv := newHTTPServer(t)

	resp, created := postRoom(t, srv, `{"kind":"networked-paddle","name":"Court"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "networked-paddle", created["kind"])
	assert.Equal(t, "waiting", created["status"])
	assert.Equal(t, 1, gs.Registry.Len())

	id := created["id"].(string)
	get, err := http.Get(srv.URL + "/rooms/" + id)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	list, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer list.Body.Close()
	var body struct {
		Rooms []room.Summary `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, id, body.Rooms[0].ID)
}

func TestCreateRoomErrors(t *testing.T) {
	_, srv := newHTTPServer(t)

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"kind":"chess"}`, http.StatusBadRequest, "invalid_kind"},
		{`{"kind":"ai-paddle","password":"pw"}`, http.StatusBadRequest, "password_required"},
		{`not json`, http.StatusBadRequest, "invalid_message"},
		{`{"kind":"ai-paddle","name":"taken"}`, http.StatusCreated, ""},
		{`{"kind":"ai-blocks","name":"TAKEN"}`, http.StatusConflict, "name_taken"},
	}
	for _, tc := range cases {
		resp, out := postRoom(t, srv, tc.body)
		assert.Equal(t, tc.status, resp.StatusCode, tc.body)
		if tc.code != "" {
			assert.Equal(t, tc.code, out["code"], tc.body)
		}
	}
}

func TestGetRoomNotFound(t *testing.T) {
	_, srv := newHTTPServer(t)

	bad, err := http.Get(srv.URL + "/rooms/not-a-uuid")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	missing, err := http.Get(srv.URL + "/rooms/" + uuid.NewString())
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	_, srv := newHTTPServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, errorStatus(room.ErrCapacity))
	assert.Equal(t, http.StatusNotFound, errorStatus(room.ErrRoomNotFound))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(assert.AnError))
}

func dialWS(t *testing.T, srv *httptest.Server, query string, protocols ...string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: protocols})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(msg)))
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, c *websocket.Conn, want room.EventType) room.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var ev room.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == want {
			return ev
		}
	}
}

func TestWebSocketPlaysAgainstAI(t *testing.T) {
	gs, srv := newHTTPServer(t)
	c := dialWS(t, srv, "?alias=alice", Subprotocol)

	send(t, c, `{"type":"create","kind":"ai-paddle"}`)
	role := readUntil(t, c, room.EventRole)
	assert.Equal(t, room.KindAIPaddle, role.Kind)
	assert.Equal(t, "left", role.Side)

	state := readUntil(t, c, room.EventRoomState)
	require.Len(t, state.Players, 1)
	assert.Equal(t, "alice", state.Players[0].Name)

	send(t, c, `{"type":"ready"}`)
	start := readUntil(t, c, room.EventGameStart)
	require.NotNil(t, start.Player1)
	assert.Equal(t, "alice", start.Player1.Name)

	id, err := uuid.Parse(role.RoomID)
	require.NoError(t, err)
	r, ok := gs.Registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, room.StatusInProgress, r.Status())

	// a ticked room pushes snapshots
	gs.Scheduler(room.FamilyPaddle).Step()
	snap := readUntil(t, c, room.EventSnapshot)
	assert.Equal(t, 1, snap.Tick)
}

func TestWebSocketAdvisoryErrors(t *testing.T) {
	_, srv := newHTTPServer(t)
	c := dialWS(t, srv, "", Subprotocol)

	send(t, c, `{"type":"start"}`)
	ev := readUntil(t, c, room.EventError)
	assert.Equal(t, "not_participant", ev.Code)

	send(t, c, `{oops`)
	ev = readUntil(t, c, room.EventError)
	assert.Equal(t, "invalid_message", ev.Code)

	send(t, c, `{"type":"join","roomId":"`+uuid.NewString()+`"}`)
	ev = readUntil(t, c, room.EventError)
	assert.Equal(t, "room_not_found", ev.Code)
}

func TestWebSocketRequiresSubprotocol(t *testing.T) {
	_, srv := newHTTPServer(t)
	c := dialWS(t, srv, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestWebSocketDisconnectLeavesRoom(t *testing.T) {
	gs, srv := newHTTPServer(t)
	c := dialWS(t, srv, "?alias=host", Subprotocol)

	send(t, c, `{"type":"create","kind":"networked-paddle","name":"Hall"}`)
	readUntil(t, c, room.EventRoomState)
	r, ok := gs.Registry.GetByName("hall")
	require.True(t, ok)

	c.Close(websocket.StatusNormalClosure, "bye")
	require.Eventually(t, func() bool {
		return r.Summary().Players == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseConnections(t *testing.T) {
	gs, srv := newHTTPServer(t)
	c := dialWS(t, srv, "", Subprotocol)

	// the handler registers the client once the upgrade completes
	send(t, c, `{"type":"leave"}`)
	readUntil(t, c, room.EventError)
	assert.Equal(t, 1, gs.CloseConnections())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	assert.Error(t, err)
}
