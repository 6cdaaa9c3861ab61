package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomvassey/hearth-core/internal/command"
	"github.com/tomvassey/hearth-core/internal/device"
)

// wsTestServer wraps testServer with a real listener for WebSocket dials.
func wsTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)
	return srv, ts
}

// dialWS opens a WebSocket connection against the test server.
func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readMessage reads one message with a deadline.
func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()

	//nolint:errcheck // Best-effort deadline for test reads
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestWebSocket_InitialState(t *testing.T) {
	srv, ts := wsTestServer(t)

	ws := dialWS(t, ts)

	msg := readMessage(t, ws)
	if msg.Type != WSTypeInitialState {
		t.Fatalf("first message type = %s, want %s", msg.Type, WSTypeInitialState)
	}
	if len(msg.Devices) != 10 {
		t.Errorf("snapshot devices = %d, want 10", len(msg.Devices))
	}
	if msg.Seq != 0 {
		t.Errorf("snapshot seq = %d, want 0 before any mutation", msg.Seq)
	}

	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}
}

func TestWebSocket_BroadcastsUpdates(t *testing.T) {
	srv, ts := wsTestServer(t)

	ws := dialWS(t, ts)
	if msg := readMessage(t, ws); msg.Type != WSTypeInitialState {
		t.Fatalf("first message type = %s, want %s", msg.Type, WSTypeInitialState)
	}

	if _, err := srv.processor.Execute("living-room/light/ceiling-01", command.CmdTogglePower, command.Params{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Type != WSTypeDeviceUpdate {
		t.Fatalf("message type = %s, want %s", msg.Type, WSTypeDeviceUpdate)
	}
	if msg.DeviceID != "living-room/light/ceiling-01" {
		t.Errorf("device_id = %s, want living-room/light/ceiling-01", msg.DeviceID)
	}
	if msg.Seq != 1 {
		t.Errorf("seq = %d, want 1", msg.Seq)
	}
	if _, ok := msg.UpdatedFields["is_on"]; !ok {
		t.Error("updated_fields missing is_on")
	}
	if _, ok := msg.UpdatedFields["last_updated"]; !ok {
		t.Error("updated_fields missing last_updated")
	}
}

// A client connecting after mutations must not see those mutations again:
// they are folded into its snapshot and its first pushed update carries a
// higher sequence number.
func TestWebSocket_SnapshotSkipsFoldedEvents(t *testing.T) {
	srv, ts := wsTestServer(t)

	if _, err := srv.processor.Execute("living-room/light/ceiling-01", command.CmdTogglePower, command.Params{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ws := dialWS(t, ts)

	msg := readMessage(t, ws)
	if msg.Type != WSTypeInitialState {
		t.Fatalf("first message type = %s, want %s", msg.Type, WSTypeInitialState)
	}
	if msg.Seq != 1 {
		t.Errorf("snapshot seq = %d, want 1", msg.Seq)
	}
	for _, d := range msg.Devices {
		if d.ID == "living-room/light/ceiling-01" && (d.IsOn == nil || *d.IsOn) {
			t.Error("snapshot should reflect the pre-connect toggle")
		}
	}

	brightness := 50
	if _, err := srv.processor.Execute("living-room/light/ceiling-01", command.CmdSetBrightness, command.Params{Brightness: &brightness}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	msg = readMessage(t, ws)
	if msg.Type != WSTypeDeviceUpdate {
		t.Fatalf("message type = %s, want %s", msg.Type, WSTypeDeviceUpdate)
	}
	if msg.Seq != 2 {
		t.Errorf("first pushed update seq = %d, want 2 (seq 1 is in the snapshot)", msg.Seq)
	}
}

func TestWebSocket_TelemetryIngestIsBroadcast(t *testing.T) {
	srv, ts := wsTestServer(t)

	ws := dialWS(t, ts)
	readMessage(t, ws) // initial_state

	temp := 25
	if _, err := srv.store.Apply("bedroom/thermostat/wall-01", device.Update{CurrentTemperature: &temp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Type != WSTypeDeviceUpdate {
		t.Fatalf("message type = %s, want %s", msg.Type, WSTypeDeviceUpdate)
	}
	if got, ok := msg.UpdatedFields["current_temperature"]; !ok || int(got.(float64)) != 25 {
		t.Errorf("updated_fields current_temperature = %v, want 25", got)
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	_, ts := wsTestServer(t)

	ws := dialWS(t, ts)
	readMessage(t, ws) // initial_state

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Type != WSTypePong {
		t.Errorf("message type = %s, want %s", msg.Type, WSTypePong)
	}
	if msg.ID != "ping-1" {
		t.Errorf("message id = %s, want ping-1", msg.ID)
	}
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	_, ts := wsTestServer(t)

	ws := dialWS(t, ts)
	readMessage(t, ws) // initial_state

	if err := ws.WriteJSON(WSMessage{Type: "subscribe", ID: "sub-1"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Type != WSTypeError {
		t.Errorf("message type = %s, want %s", msg.Type, WSTypeError)
	}
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	srv, ts := wsTestServer(t)

	ws := dialWS(t, ts)
	readMessage(t, ws) // initial_state

	if srv.hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", srv.hub.ClientCount())
	}

	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want 0 after disconnect", srv.hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_ConfiguredPath(t *testing.T) {
	srv := testServer(t)
	srv.wsCfg.Path = "/stream"
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial on configured path failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer ws.Close()

	msg := readMessage(t, ws)
	if msg.Type != WSTypeInitialState {
		t.Errorf("first message type = %q, want %q", msg.Type, WSTypeInitialState)
	}
}
