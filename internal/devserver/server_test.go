package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/redux"
	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/telemetry"
)

type counterState struct {
	Count int `json:"count"`
}

type Increment struct{}

func counterReducer(s counterState, a redux.Action) (counterState, error) {
	if _, ok := a.(Increment); ok {
		s.Count++
	}
	return s, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

// startServer serves s on an httptest server for the test's lifetime.
func startServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/devtools"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) devtools.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m devtools.Message
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestServer_ReadyOverWebSocketReleasesBacklog(t *testing.T) {
	bridge := devtools.New()
	srv := New(bridge)
	ts := startServer(t, srv)

	st, err := store.New(counterState{}, counterReducer, store.WithDevTools[counterState](bridge))
	require.NoError(t, err)
	defer st.Dispose()
	require.NoError(t, st.Dispatch(context.Background(), Increment{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx, srv)

	ws := dial(t, ts)
	require.Eventually(t, func() bool { return srv.Inspectors() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.WriteJSON(devtools.Message{Kind: devtools.KindReady}))

	first := readMessage(t, ws)
	assert.Equal(t, "initial", first.ActionLabel)
	assert.Equal(t, `{"count":0}`, first.State)

	second := readMessage(t, ws)
	assert.Equal(t, "Increment", second.ActionLabel)
	assert.Equal(t, `{"count":1}`, second.State)

	require.NoError(t, st.Dispatch(context.Background(), Increment{}))
	third := readMessage(t, ws)
	assert.Equal(t, `{"count":2}`, third.State)
}

func TestServer_InboundTimeTravel(t *testing.T) {
	bridge := devtools.New()
	srv := New(bridge)
	ts := startServer(t, srv)

	st, err := store.New(counterState{}, counterReducer, store.WithDevTools[counterState](bridge))
	require.NoError(t, err)
	defer st.Dispose()

	ws := dial(t, ts)
	require.NoError(t, ws.WriteJSON(devtools.Message{Kind: devtools.KindTimeTravel, State: `{"count":9}`}))

	require.Eventually(t, func() bool { return st.State().Count == 9 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, st.HistoryLen())
}

func TestServer_RejectedMessageGetsErrorReply(t *testing.T) {
	srv := New(devtools.New())
	ts := startServer(t, srv)
	ws := dial(t, ts)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"kind":"teleport"}`)))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply errorReply
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Kind)
	assert.Contains(t, reply.Error, "unknown devtools message kind")
}

func TestServer_SendWithoutInspector(t *testing.T) {
	srv := New(devtools.New())
	err := srv.Send(context.Background(), devtools.LogMessage("A", "1"))
	assert.ErrorIs(t, err, ErrNoInspector)
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	srv := New(devtools.New())
	ts := startServer(t, srv)
	ws := dial(t, ts)

	require.Eventually(t, func() bool { return srv.Inspectors() == 1 }, time.Second, 5*time.Millisecond)
	ws.Close()
	require.Eventually(t, func() bool { return srv.Inspectors() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	bridge := devtools.New()
	bridge.Log("initial", "{}")
	srv := New(bridge)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status     string         `json:"status"`
		DevTools   devtools.Stats `json:"devtools"`
		Inspectors int            `json:"inspectors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.DevTools.Ready)
	assert.Equal(t, 1, body.DevTools.Pending)
	assert.Equal(t, 0, body.Inspectors)
}

func TestServer_History(t *testing.T) {
	st, err := store.New(counterState{}, counterReducer,
		store.WithClock[counterState](func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	require.NoError(t, st.Dispatch(context.Background(), Increment{}))

	srv := New(devtools.New(), WithHistory(HistoryOf(st)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `[
		{"seq":1,"label":"Initial state","timestamp":"2024-01-01T00:00:00.000Z","state":{"count":0}},
		{"seq":2,"label":"Increment","timestamp":"2024-01-01T00:00:00.000Z","state":{"count":1}}
	]`, rec.Body.String())

	bare := New(devtools.New())
	rec = httptest.NewRecorder()
	bare.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	bridge := devtools.New()
	m := telemetry.NewMetrics()
	require.NoError(t, m.WatchBridge(bridge))

	srv := New(bridge, WithMetrics(m))
	ts := startServer(t, srv)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rewind_devtools_ready 0")
}
