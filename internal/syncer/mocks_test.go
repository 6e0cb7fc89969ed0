package syncer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
)

// mockBackend records calls and returns configured responses.
type mockBackend struct {
	mu      sync.Mutex
	calls   []string
	queries []string
	inserts [][]models.Record

	warmup func(ctx context.Context, call int) error
	fetch  func(ctx context.Context, rawQuery string, call int) (*client.DataResponse, error)
	insert func(ctx context.Context, records []models.Record) (*client.InsertResponse, error)
}

func (m *mockBackend) record(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)

	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *mockBackend) Warmup(ctx context.Context) error {
	n := m.record("Warmup")
	if m.warmup == nil {
		return nil
	}
	return m.warmup(ctx, n)
}

func (m *mockBackend) Fetch(ctx context.Context, rawQuery string) (*client.DataResponse, error) {
	n := m.record("Fetch")
	m.mu.Lock()
	m.queries = append(m.queries, rawQuery)
	m.mu.Unlock()

	if m.fetch == nil {
		return dataset(), nil
	}
	return m.fetch(ctx, rawQuery, n)
}

func (m *mockBackend) Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error) {
	m.record("Insert")
	m.mu.Lock()
	m.inserts = append(m.inserts, records)
	m.mu.Unlock()

	if m.insert == nil {
		return &client.InsertResponse{Message: "Data inserted successfully"}, nil
	}
	return m.insert(ctx, records)
}

func (m *mockBackend) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *mockBackend) fetchedQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// mockPush delivers whatever is sent on its channel.
type mockPush struct {
	payloads chan Payload
}

func (m *mockPush) Name() string { return "mock" }

func (m *mockPush) Listen(ctx context.Context, deliver func(Payload)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-m.payloads:
			deliver(p)
		}
	}
}

// transitions records phase changes reported through OnTransition.
type transitions struct {
	mu  sync.Mutex
	log []string
}

func (tr *transitions) hook(from, to Phase) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.log = append(tr.log, string(from)+"->"+string(to))
}

func (tr *transitions) seen(edge string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for _, e := range tr.log {
		if e == edge {
			return true
		}
	}
	return false
}

func dataset(topics ...string) *client.DataResponse {
	if len(topics) == 0 {
		topics = []string{"oil"}
	}

	resp := &client.DataResponse{Filters: models.FilterOptions{Topics: topics}.Normalize()}
	for _, t := range topics {
		resp.Data = append(resp.Data, models.Record{Topic: t, Intensity: models.M(5)})
	}
	return resp
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fastOptions() Options {
	return Options{
		Debounce:       30 * time.Millisecond,
		RequestTimeout: time.Second,
		WarmupTimeout:  100 * time.Millisecond,
		WarmupAttempts: 2,
		WarmupDelay:    time.Millisecond,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

// startController runs c until the test ends.
func startController(t *testing.T, backend Backend, opts Options) *Controller {
	t.Helper()

	c := New(backend, opts, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	go c.Run(ctx) //nolint:errcheck

	t.Cleanup(func() {
		cancel()
		select {
		case <-c.Done():
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})

	return c
}

// waitFor polls the controller state until cond holds.
func waitFor(t *testing.T, c *Controller, what string, cond func(State) bool) State {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}

	s := c.Snapshot()
	t.Fatalf("timed out waiting for %s; state: phase=%s seq=%d applied=%d err=%q", what, s.Phase, s.Seq, s.AppliedSeq, s.Error)
	return s
}

func settled(seq uint64) func(State) bool {
	return func(s State) bool {
		return s.Seq == seq && s.Phase == PhaseIdle
	}
}
