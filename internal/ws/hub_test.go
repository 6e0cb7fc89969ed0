package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testLogger())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		c := NewClient(hub, conn)
		hub.Register(c)
		go c.WritePump(r.Context())
		c.ReadPump(r.Context())
	}))

	t.Cleanup(func() {
		cancel()
		<-hub.done
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() }) //nolint:errcheck // test teardown

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}

	return evt
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForBroadcasts blocks until Run has consumed every queued broadcast.
func waitForBroadcasts(t *testing.T, hub *Hub) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for len(hub.broadcast) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("broadcast queue not drained")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, url := startHub(t)

	a := dial(t, url)
	b := dial(t, url)
	waitForClients(t, hub, 2)

	hub.Broadcast(EventState, map[string]string{"phase": "idle"})

	for _, conn := range []*websocket.Conn{a, b} {
		evt := readEvent(t, conn)
		if evt.Type != EventState || evt.ID != 1 {
			t.Errorf("got type=%q id=%d", evt.Type, evt.ID)
		}
		if string(evt.Data) != `{"phase":"idle"}` {
			t.Errorf("data: got %s", evt.Data)
		}
	}
}

func TestHub_NewClientReceivesLatest(t *testing.T) {
	hub, url := startHub(t)

	hub.Broadcast(EventState, map[string]int{"seq": 1})
	hub.Broadcast(EventState, map[string]int{"seq": 2})
	waitForBroadcasts(t, hub)

	conn := dial(t, url)

	evt := readEvent(t, conn)
	if evt.ID != 2 || string(evt.Data) != `{"seq":2}` {
		t.Errorf("expected latest event, got id=%d data=%s", evt.ID, evt.Data)
	}
}

func TestHub_SubscribeReplaysMissedEvents(t *testing.T) {
	hub, url := startHub(t)

	for i := range 3 {
		hub.Broadcast(EventState, map[string]int{"n": i})
	}
	waitForBroadcasts(t, hub)

	conn := dial(t, url)
	if evt := readEvent(t, conn); evt.ID != 3 {
		t.Fatalf("priming event: got id %d", evt.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"subscribe","last_event_id":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, want := range []uint64{2, 3} {
		if evt := readEvent(t, conn); evt.ID != want {
			t.Errorf("replay: got id %d, want %d", evt.ID, want)
		}
	}
}

func TestHub_DropsOversizedPayload(t *testing.T) {
	hub := NewHub(testLogger())

	hub.Broadcast(EventState, strings.Repeat("x", maxBroadcastPayload))

	if _, ok := hub.buffer.Latest(); ok {
		t.Error("oversized event should not be buffered")
	}
}

func TestHub_ShutdownNotifiesClients(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	waitForClients(t, hub, 1)

	go hub.Shutdown()

	if evt := readEvent(t, conn); evt.Type != EventShutdown {
		t.Errorf("got %q, want shutdown", evt.Type)
	}
}

func TestEventBuffer_SinceAndEviction(t *testing.T) {
	eb := NewEventBuffer(3, time.Hour)

	for id := uint64(1); id <= 5; id++ {
		eb.Append(Event{ID: id, Time: time.Now()})
	}

	if got := eb.OldestID(); got != 3 {
		t.Errorf("oldest: got %d, want 3", got)
	}

	since := eb.Since(3)
	if len(since) != 2 || since[0].ID != 4 || since[1].ID != 5 {
		t.Errorf("since: got %+v", since)
	}

	if got := eb.Since(5); got != nil {
		t.Errorf("nothing newer: got %+v", got)
	}
}

func TestEventBuffer_ExpiresOldEvents(t *testing.T) {
	eb := NewEventBuffer(10, time.Minute)

	eb.Append(Event{ID: 1, Time: time.Now().Add(-2 * time.Minute)})
	eb.Append(Event{ID: 2, Time: time.Now()})

	if got := eb.OldestID(); got != 2 {
		t.Errorf("expected expired event evicted, oldest=%d", got)
	}
}

func TestEventBuffer_WrapsAround(t *testing.T) {
	eb := NewEventBuffer(4, time.Hour)

	for id := uint64(1); id <= 10; id++ {
		eb.Append(Event{ID: id, Type: EventState, Time: time.Now()})
	}

	got := eb.Since(0)
	if len(got) != 4 {
		t.Fatalf("since 0: got %d events, want 4", len(got))
	}
	for i, evt := range got {
		if want := uint64(7 + i); evt.ID != want {
			t.Errorf("event %d: got id %d, want %d", i, evt.ID, want)
		}
	}

	if latest, ok := eb.Latest(); !ok || latest.ID != 10 {
		t.Errorf("latest: got %d, %v", latest.ID, ok)
	}
	if eb.OldestID() != 7 {
		t.Errorf("oldest: got %d, want 7", eb.OldestID())
	}
}

func TestParseResubscribe(t *testing.T) {
	tests := []struct {
		raw    string
		wantID uint64
		wantOK bool
	}{
		{raw: `{"type":"subscribe","last_event_id":42}`, wantID: 42, wantOK: true},
		{raw: `{"type":"subscribe"}`, wantID: 0, wantOK: true},
		{raw: `{"type":"hello","last_event_id":3}`},
		{raw: `not json`},
	}

	for _, tc := range tests {
		id, ok := parseResubscribe([]byte(tc.raw))
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("parseResubscribe(%s) = %d, %v; want %d, %v", tc.raw, id, ok, tc.wantID, tc.wantOK)
		}
	}
}
