package syncer

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
)

func TestController_InitialFetchAfterWarmup(t *testing.T) {
	backend := &mockBackend{}
	tr := &transitions{}
	opts := fastOptions()
	opts.OnTransition = tr.hook
	opts.Initial = query.Empty.With(query.Topics, "oil")

	c := startController(t, backend, opts)
	s := waitFor(t, c, "initial fetch", settled(1))

	if s.Backend != BackendReachable {
		t.Errorf("backend: got %s", s.Backend)
	}
	if len(s.Records) != 1 || s.Records[0].Topic != "oil" {
		t.Errorf("records: got %+v", s.Records)
	}
	if s.AppliedSeq != 1 || s.Error != "" || !s.HasData() {
		t.Errorf("unexpected state: %+v", s)
	}
	if got := backend.fetchedQueries(); !slices.Equal(got, []string{"topics=oil"}) {
		t.Errorf("queries: got %v", got)
	}
	if backend.count("Warmup") != 1 {
		t.Errorf("warmup calls: got %d", backend.count("Warmup"))
	}

	for _, edge := range []string{"warming_up->idle", "idle->fetching", "fetching->succeeded", "succeeded->idle"} {
		if !tr.seen(edge) {
			t.Errorf("missing transition %s in %v", edge, tr.log)
		}
	}
}

func TestController_WarmupExhaustionProceeds(t *testing.T) {
	backend := &mockBackend{
		warmup: func(_ context.Context, _ int) error {
			return client.ErrTransport
		},
	}

	c := startController(t, backend, fastOptions())
	s := waitFor(t, c, "fetch after failed warm-up", settled(1))

	if backend.count("Warmup") != 2 {
		t.Errorf("warmup calls: got %d, want 2", backend.count("Warmup"))
	}
	if !s.HasData() || s.Error != "" {
		t.Errorf("fetch should succeed and clear the warm-up error: %+v", s)
	}
}

func TestController_WarmupFailureMarksUnreachable(t *testing.T) {
	release := make(chan struct{})
	backend := &mockBackend{
		warmup: func(_ context.Context, _ int) error {
			return errors.New("connection refused")
		},
		fetch: func(ctx context.Context, _ string, _ int) (*client.DataResponse, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return dataset(), nil
		},
	}

	c := startController(t, backend, fastOptions())
	s := waitFor(t, c, "fetching after warm-up", func(s State) bool { return s.Phase == PhaseFetching })

	if s.Backend != BackendUnreachable {
		t.Errorf("backend: got %s, want unreachable", s.Backend)
	}
	if s.Error == "" {
		t.Errorf("expected warm-up error to be surfaced")
	}

	close(release)
	waitFor(t, c, "fetch", settled(1))
}

func TestController_DebounceIssuesOneFetch(t *testing.T) {
	backend := &mockBackend{}
	opts := fastOptions()
	c := startController(t, backend, opts)
	waitFor(t, c, "initial fetch", settled(1))

	ctx := context.Background()
	first := query.Empty.With(query.Topics, "oil")
	second := query.Empty.With(query.Topics, "gas")

	if err := c.SetSelection(ctx, first); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if err := c.SetSelection(ctx, second); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	s := waitFor(t, c, "debounced fetch", settled(2))
	time.Sleep(3 * opts.Debounce)

	if got := backend.fetchedQueries(); !slices.Equal(got, []string{"", "topics=gas"}) {
		t.Errorf("queries: got %v, want [\"\" topics=gas]", got)
	}
	if !s.Selection.Equal(second) {
		t.Errorf("selection: got %q", s.Selection.Key())
	}
}

func TestController_SameSelectionIgnored(t *testing.T) {
	backend := &mockBackend{}
	opts := fastOptions()
	opts.Initial = query.Empty.With(query.Regions, "Asia")
	c := startController(t, backend, opts)
	waitFor(t, c, "initial fetch", settled(1))

	if err := c.SetSelection(context.Background(), query.Empty.With(query.Regions, "Asia")); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	time.Sleep(4 * opts.Debounce)

	if n := backend.count("Fetch"); n != 1 {
		t.Errorf("fetch calls: got %d, want 1", n)
	}
}

func TestController_FailureRetainsRecords(t *testing.T) {
	backend := &mockBackend{
		fetch: func(_ context.Context, _ string, call int) (*client.DataResponse, error) {
			if call == 1 {
				return dataset("oil", "gas"), nil
			}
			return nil, &client.APIError{StatusCode: http.StatusServiceUnavailable, Code: "unavailable", Message: "asleep"}
		},
	}
	tr := &transitions{}
	opts := fastOptions()
	opts.OnTransition = tr.hook

	c := startController(t, backend, opts)
	before := waitFor(t, c, "initial fetch", settled(1))

	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after := waitFor(t, c, "failed refresh", settled(2))

	if after.Error == "" {
		t.Error("expected error after exhausting retries")
	}
	if !slices.Equal(after.Records, before.Records) {
		t.Errorf("records changed on failure: %+v", after.Records)
	}
	if !slices.Equal(after.Filters.Topics, before.Filters.Topics) {
		t.Errorf("filters changed on failure: %+v", after.Filters)
	}
	if after.AppliedSeq != 1 || after.LastSynced != before.LastSynced {
		t.Errorf("applied seq or sync time moved: %+v", after)
	}

	if got, want := backend.count("Fetch"), 1+1+opts.MaxRetries; got != want {
		t.Errorf("fetch calls: got %d, want %d", got, want)
	}
	if after.Attempt != 1+opts.MaxRetries {
		t.Errorf("attempts: got %d", after.Attempt)
	}

	for _, edge := range []string{"fetching->retrying", "retrying->failed", "failed->idle"} {
		if !tr.seen(edge) {
			t.Errorf("missing transition %s in %v", edge, tr.log)
		}
	}
}

func TestController_ClientErrorNotRetried(t *testing.T) {
	backend := &mockBackend{
		fetch: func(_ context.Context, _ string, _ int) (*client.DataResponse, error) {
			return nil, &client.APIError{StatusCode: http.StatusBadRequest, Code: "bad_request", Message: "invalid topic"}
		},
	}

	c := startController(t, backend, fastOptions())
	s := waitFor(t, c, "failed fetch", settled(1))

	if backend.count("Fetch") != 1 {
		t.Errorf("fetch calls: got %d, want 1", backend.count("Fetch"))
	}
	if s.HasData() || s.Records != nil {
		t.Errorf("no data should be applied: %+v", s.Records)
	}
	if s.Error == "" {
		t.Error("expected error")
	}
}

func TestController_RetryThenSucceed(t *testing.T) {
	backend := &mockBackend{
		fetch: func(_ context.Context, _ string, call int) (*client.DataResponse, error) {
			if call == 1 {
				return nil, client.ErrTransport
			}
			return dataset(), nil
		},
	}

	c := startController(t, backend, fastOptions())
	s := waitFor(t, c, "retried fetch", settled(1))

	if !s.HasData() || s.Attempt != 2 {
		t.Errorf("expected success on attempt 2: %+v", s)
	}
	if s.Backend != BackendReachable {
		t.Errorf("backend: got %s", s.Backend)
	}
}

func TestController_StaleResultDiscarded(t *testing.T) {
	releaseSlow := make(chan struct{})
	slowDone := make(chan struct{})

	backend := &mockBackend{
		fetch: func(_ context.Context, rawQuery string, _ int) (*client.DataResponse, error) {
			if rawQuery == "topics=slow" {
				defer close(slowDone)
				<-releaseSlow
				return dataset("slow"), nil
			}
			if rawQuery == "topics=fast" {
				return dataset("fast"), nil
			}
			return dataset(), nil
		},
	}

	c := startController(t, backend, fastOptions())
	waitFor(t, c, "initial fetch", settled(1))

	ctx := context.Background()
	if err := c.SetSelection(ctx, query.Empty.With(query.Topics, "slow")); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	waitFor(t, c, "slow fetch in flight", func(s State) bool { return s.Seq == 2 })

	if err := c.SetSelection(ctx, query.Empty.With(query.Topics, "fast")); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	waitFor(t, c, "fast fetch", settled(3))

	close(releaseSlow)
	<-slowDone
	time.Sleep(50 * time.Millisecond)

	s := c.Snapshot()
	if len(s.Records) != 1 || s.Records[0].Topic != "fast" {
		t.Errorf("stale result overwrote newer data: %+v", s.Records)
	}
	if s.AppliedSeq != 3 {
		t.Errorf("applied seq: got %d, want 3", s.AppliedSeq)
	}
}

func TestController_RefreshThrottled(t *testing.T) {
	opts := fastOptions()
	opts.RefreshRate = rate.Every(time.Hour)
	opts.RefreshBurst = 1

	c := startController(t, &mockBackend{}, opts)
	waitFor(t, c, "initial fetch", settled(1))

	if err := c.Refresh(); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := c.Refresh(); !errors.Is(err, ErrThrottled) {
		t.Errorf("second Refresh: got %v, want ErrThrottled", err)
	}
}

func TestController_Poll(t *testing.T) {
	backend := &mockBackend{}
	opts := fastOptions()
	opts.PollInterval = 20 * time.Millisecond

	c := startController(t, backend, opts)
	waitFor(t, c, "several polls", func(s State) bool { return s.AppliedSeq >= 3 })
}

func TestController_Insert(t *testing.T) {
	backend := &mockBackend{}
	c := startController(t, backend, fastOptions())
	waitFor(t, c, "initial fetch", settled(1))

	ctx := context.Background()

	_, err := c.Insert(ctx, []models.Record{{Topic: "bad", Intensity: models.M(500)}})
	if !errors.Is(err, models.ErrMetricOutOfRange) || !errors.Is(err, ErrInvalidRecords) {
		t.Errorf("expected validation error, got %v", err)
	}
	if backend.count("Insert") != 0 {
		t.Error("invalid records must not be posted")
	}

	resp, err := c.Insert(ctx, []models.Record{{Topic: "Test Topic", Intensity: models.M(5), EndYear: "2025"}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if resp.Message != "Data inserted successfully" {
		t.Errorf("message: got %q", resp.Message)
	}

	waitFor(t, c, "refresh after insert", settled(2))
}

func TestController_PushApplies(t *testing.T) {
	push := &mockPush{payloads: make(chan Payload)}
	opts := fastOptions()
	opts.Push = push
	opts.PollInterval = time.Millisecond

	c := startController(t, &mockBackend{}, opts)
	waitFor(t, c, "initial fetch", settled(1))

	if c.opts.PollInterval != 0 {
		t.Error("push must disable polling")
	}

	push.payloads <- Payload{
		Data:    []models.Record{{Topic: "pushed"}, {Topic: "pushed"}},
		Filters: models.FilterOptions{Topics: []string{"pushed"}},
	}

	s := waitFor(t, c, "pushed dataset", func(s State) bool {
		return len(s.Records) == 2
	})
	if s.Records[0].Topic != "pushed" || s.Filters.Sectors == nil {
		t.Errorf("unexpected pushed state: %+v", s)
	}
	if s.Seq != 1 {
		t.Errorf("push must not issue fetches, seq=%d", s.Seq)
	}
}

func TestController_Subscribe(t *testing.T) {
	backend := &mockBackend{}
	c := New(backend, fastOptions(), testLogger())
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx) //nolint:errcheck

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.AppliedSeq == 1 && s.Phase == PhaseIdle {
				cancel()
				<-c.Done()
				for range ch {
				}
				return
			}
		case <-deadline:
			cancel()
			t.Fatal("no settled state received")
		}
	}
}

func TestController_RunTwice(t *testing.T) {
	c := startController(t, &mockBackend{}, fastOptions())
	waitFor(t, c, "initial fetch", settled(1))

	if err := c.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("got %v, want ErrRunning", err)
	}
}

func TestController_StoppedRejectsCalls(t *testing.T) {
	c := New(&mockBackend{}, fastOptions(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := c.SetSelection(context.Background(), query.Empty.With(query.Topics, "x")); !errors.Is(err, ErrStopped) {
		t.Errorf("SetSelection: got %v", err)
	}
	if err := c.Refresh(); !errors.Is(err, ErrStopped) {
		t.Errorf("Refresh: got %v", err)
	}

	ch, _ := c.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("subscription on a stopped controller should be closed")
	}
}
