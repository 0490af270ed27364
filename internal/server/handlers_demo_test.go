package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhardin04/brianhardin.info/internal/demo"
)

func newDemoTestServer(t *testing.T, connsPerSession int) (*Server, *httptest.Server) {
	t.Helper()

	cfg := testConfig()
	cfg.DemoMaxConnsPerSession = connsPerSession

	srv := newTestServer(t, cfg, &stubContacts{}, &stubBlog{}, &stubThrottle{allowed: true}, nil)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	return srv, ts
}

func createDemoSession(t *testing.T, ts *httptest.Server, demoType string) sessionResponse {
	t.Helper()

	body, err := json.Marshal(map[string]string{"demo_type": demoType})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/demos/api/session", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func wsURL(ts *httptest.Server, demoType, sessionID string) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/demos/ws/" + demoType + "/" + sessionID
}

func TestCreateSession_NewAndReuse(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)

	session := createDemoSession(t, ts, "payment-processing")
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, demo.TypePaymentProcessing, session.DemoType)

	// Reusing the id with the same type returns the same session.
	body, _ := json.Marshal(map[string]string{
		"demo_type":  "payment-processing",
		"session_id": session.SessionID,
	})
	resp, err := http.Post(ts.URL+"/demos/api/session", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reused sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reused))
	assert.Equal(t, session.SessionID, reused.SessionID)
}

func TestCreateSession_UnknownType(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)

	body := []byte(`{"demo_type": "quantum-trading"}`)
	resp, err := http.Post(ts.URL+"/demos/api/session", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSession_NotFound(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)

	resp, err := http.Get(ts.URL + "/demos/api/session/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDemoWebSocket_StreamsSnapshots(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)
	session := createDemoSession(t, ts, "data-pipeline")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "data-pipeline", session.SessionID), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var prev uint64
	for i := 0; i < 3; i++ {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var snap demo.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		assert.Equal(t, session.SessionID, snap.SessionID.String())
		assert.Equal(t, demo.TypeDataPipeline, snap.DemoType)
		assert.Greater(t, snap.Seq, prev)
		assert.NotNil(t, snap.Data)
		prev = snap.Seq
	}

	// The session now reports the open connection.
	resp, err := http.Get(ts.URL + "/demos/api/session/" + session.SessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Connections)
}

func TestDemoWebSocket_ClientPingGetsPong(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)
	session := createDemoSession(t, ts, "payment-processing")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "payment-processing", session.SessionID), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// Snapshots interleave with the pong on the same stream.
	for {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(payload, &frame) == nil && frame.Type == "pong" {
			return
		}
	}
}

func TestDemoWebSocket_SessionCapCloseTryAgainLater(t *testing.T) {
	_, ts := newDemoTestServer(t, 1)
	session := createDemoSession(t, ts, "sales-dashboard")
	url := wsURL(ts, "sales-dashboard", session.SessionID)

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()

	// Second connection upgrades, then gets closed with 1013.
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = second.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater),
		"expected close 1013, got: %v", err)
}

func TestDemoWebSocket_UnknownSessionRejectedBeforeUpgrade(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "data-pipeline", uuid.NewString()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDemoWebSocket_TypeMismatchRejected(t *testing.T) {
	_, ts := newDemoTestServer(t, 5)
	session := createDemoSession(t, ts, "payment-processing")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "data-pipeline", session.SessionID), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSession_ClosesStream(t *testing.T) {
	srv, ts := newDemoTestServer(t, 5)
	session := createDemoSession(t, ts, "collections-dashboard")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "collections-dashboard", session.SessionID), nil)
	require.NoError(t, err)
	defer conn.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/demos/api/session/"+session.SessionID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	sessions, _ := srv.engine.Stats()
	assert.Zero(t, sessions)

	// The stream ends once the engine closes the transport.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
