package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsEnvelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var env wsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return env
}

// TestEventStreamPrimer verifies a new connection immediately receives the
// current session state.
func TestEventStreamPrimer(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dialEvents(t, srv)
	env := readEnvelope(t, conn)
	if env.Type != "session.changed" {
		t.Fatalf("type = %q, want session.changed", env.Type)
	}
	if !env.Timestamp.Equal(t0) {
		t.Errorf("timestamp = %v, want engine clock time %v", env.Timestamp, t0)
	}

	var payload struct {
		Session *json.RawMessage `json:"session"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error: %v", err)
	}
	if payload.Session != nil && string(*payload.Session) != "null" {
		t.Errorf("primer session = %s, want null with no active session", *payload.Session)
	}
}

// TestEventStreamForwardsChanges verifies engine mutations reach the client
// in order after the primer.
func TestEventStreamForwardsChanges(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dialEvents(t, srv)
	if env := readEnvelope(t, conn); env.Type != "session.changed" {
		t.Fatalf("primer type = %q, want session.changed", env.Type)
	}

	doJSON(t, s, http.MethodPost, "/api/v1/session/start", `{"template":"Leg Day"}`)

	env := readEnvelope(t, conn)
	if env.Type != "session.changed" {
		t.Fatalf("type = %q, want session.changed", env.Type)
	}
	var payload struct {
		Session *struct {
			WorkoutRef string `json:"workoutRef"`
		} `json:"session"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error: %v", err)
	}
	if payload.Session == nil || payload.Session.WorkoutRef != "Leg Day" {
		t.Errorf("payload = %s, want the started session", env.Payload)
	}
}

// TestEventStreamSetLogged verifies fine-grained events carry their fields
// and precede the coarse change signal.
func TestEventStreamSetLogged(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	doJSON(t, s, http.MethodPost, "/api/v1/session/start", `{"template":"Leg Day"}`)

	conn := dialEvents(t, srv)
	if env := readEnvelope(t, conn); env.Type != "session.changed" {
		t.Fatalf("primer type = %q, want session.changed", env.Type)
	}

	doJSON(t, s, http.MethodPost, "/api/v1/session/exercises/0/sets", `{"weight":100,"reps":5}`)

	env := readEnvelope(t, conn)
	if env.Type != "set-logged" {
		t.Fatalf("type = %q, want set-logged", env.Type)
	}
	var payload struct {
		ExerciseIndex int     `json:"exerciseIndex"`
		SetIndex      int     `json:"setIndex"`
		Weight        float64 `json:"weight"`
		Reps          int     `json:"reps"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error: %v", err)
	}
	if payload.Weight != 100 || payload.Reps != 5 || payload.SetIndex != 0 {
		t.Errorf("payload = %+v, want weight 100 reps 5 setIndex 0", payload)
	}

	if env := readEnvelope(t, conn); env.Type != "session.changed" {
		t.Errorf("followup type = %q, want session.changed", env.Type)
	}
}
