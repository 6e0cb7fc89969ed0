// Package syncer keeps the dashboard dataset in step with the backend: it warms
// the backend up, debounces selection changes, fetches with bounded retries,
// and applies push updates, while retaining the last good dataset on failure.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/metrics"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
)

// Sentinel errors returned by Controller methods.
var (
	ErrStopped        = errors.New("sync controller stopped")
	ErrRunning        = errors.New("sync controller already running")
	ErrThrottled      = errors.New("refresh throttled")
	ErrWarmupFailed   = errors.New("backend warm-up failed")
	ErrInvalidRecords = errors.New("invalid records")
)

const subscriberBuffer = 8

type fetchResult struct {
	seq      uint64
	resp     *client.DataResponse
	err      error
	attempts int
	elapsed  time.Duration
}

type retryNotice struct {
	seq     uint64
	attempt int
	err     error
}

// Controller owns the dashboard's sync state. All mutation happens on the
// goroutine running Run; other goroutines talk to it over channels.
type Controller struct {
	backend Backend
	opts    Options
	log     *logrus.Logger
	limiter *rate.Limiter

	selections chan query.Selection
	refreshes  chan struct{}
	results    chan fetchResult
	retries    chan retryNotice
	pushes     chan Payload
	done       chan struct{}
	running    atomic.Bool

	// Owned by the Run goroutine.
	seq           uint64
	inflight      context.CancelFunc
	inflightQuery string

	mu    sync.RWMutex
	state State

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

// New creates a Controller. Call Run to start it.
func New(backend Backend, opts Options, log *logrus.Logger) *Controller {
	opts = opts.withDefaults()

	return &Controller{
		backend:    backend,
		opts:       opts,
		log:        log,
		limiter:    rate.NewLimiter(opts.RefreshRate, opts.RefreshBurst),
		selections: make(chan query.Selection),
		refreshes:  make(chan struct{}, 1),
		results:    make(chan fetchResult),
		retries:    make(chan retryNotice),
		pushes:     make(chan Payload),
		done:       make(chan struct{}),
		state: State{
			Phase:     PhaseWarmingUp,
			Backend:   BackendUnknown,
			Selection: opts.Initial,
			Filters:   models.FilterOptions{}.Normalize(),
		},
		subs: make(map[chan State]struct{}),
	}
}

// Run drives the state machine until ctx is cancelled. It warms the backend
// up, then fetches the initial selection.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.shutdown()

	c.setPhase(PhaseWarmingUp, nil)

	warmDone := make(chan error, 1)
	go func() { warmDone <- c.warmup(ctx) }()

	if c.opts.Push != nil {
		go c.runPush(ctx)
	}

	var poll <-chan time.Time
	if c.opts.PollInterval > 0 {
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	debounce := time.NewTimer(c.opts.Debounce)
	debounce.Stop()
	defer debounce.Stop()
	var debounceC <-chan time.Time

	desired := c.opts.Initial
	warming := true
	pending := true

	trigger := func(reason string) {
		if warming {
			pending = true
			return
		}
		c.startFetch(ctx, desired, reason)
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("sync controller stopping")
			return nil

		case err := <-warmDone:
			warming = false
			c.finishWarmup(ctx, err)
			if pending {
				pending = false
				trigger("initial")
			}

		case sel := <-c.selections:
			if sel.Equal(desired) {
				continue
			}
			desired = sel
			c.update(func(s *State) { s.Selection = sel })
			debounce.Reset(c.opts.Debounce)
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			trigger("selection")

		case <-c.refreshes:
			trigger("refresh")

		case <-poll:
			if c.inflight != nil {
				continue
			}
			trigger("poll")

		case p := <-c.pushes:
			c.applyPush(p)

		case n := <-c.retries:
			if n.seq != c.seq {
				continue
			}
			c.setPhase(PhaseRetrying, func(s *State) {
				s.Attempt = n.attempt
				s.Error = n.err.Error()
			})

		case res := <-c.results:
			if res.seq != c.seq {
				metrics.StaleResults.Inc()
				c.log.WithFields(logrus.Fields{"seq": res.seq, "latest": c.seq}).Debug("discarding stale fetch result")
				continue
			}
			c.inflight()
			c.inflight = nil
			c.complete(ctx, res)
		}
	}
}

// SetSelection replaces the current filter selection. The fetch is debounced;
// a selection equal to the current one is ignored.
func (c *Controller) SetSelection(ctx context.Context, sel query.Selection) error {
	select {
	case c.selections <- sel:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh refetches the current selection. Calls beyond the refresh rate are
// rejected with ErrThrottled.
func (c *Controller) Refresh() error {
	if !c.limiter.Allow() {
		return ErrThrottled
	}

	return c.requestRefresh()
}

// Insert validates records, posts them to the backend and schedules a refresh.
func (c *Controller) Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error) {
	if err := models.ValidateBatch(records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecords, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	resp, err := c.backend.Insert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("inserting records: %w", err)
	}

	c.log.WithField("count", len(records)).Info("records inserted")

	if err := c.requestRefresh(); err != nil {
		c.log.WithError(err).Debug("refresh after insert skipped")
	}

	return resp, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copyState(c.state)
}

// Subscribe returns a channel that receives the state after every change,
// and a function that ends the subscription. Slow subscribers miss
// intermediate states but always receive the latest one. The channel is
// closed when the controller stops.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	c.subMu.Lock()
	select {
	case <-c.done:
		close(ch)
	default:
		c.subs[ch] = struct{}{}
	}
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()

		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) requestRefresh() error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	select {
	case c.refreshes <- struct{}{}:
	default:
		// A refresh is already queued.
	}

	return nil
}

// startFetch supersedes any in-flight request and issues a new one.
func (c *Controller) startFetch(ctx context.Context, sel query.Selection, reason string) {
	if c.inflight != nil {
		c.inflight()
		if f, ok := c.backend.(forgetter); ok {
			f.Forget(c.inflightQuery)
		}
	}

	c.seq++
	seq := c.seq

	fctx, cancel := context.WithCancel(ctx)
	rawQuery := query.Encode(sel)
	c.inflight = cancel
	c.inflightQuery = rawQuery

	c.log.WithFields(logrus.Fields{
		"seq":    seq,
		"reason": reason,
		"query":  rawQuery,
	}).Debug("fetching dataset")

	c.setPhase(PhaseFetching, func(s *State) {
		s.Seq = seq
		s.Attempt = 1
	})

	go c.fetch(fctx, seq, rawQuery)
}

func (c *Controller) complete(ctx context.Context, res fetchResult) {
	metrics.FetchDuration.Observe(res.elapsed.Seconds())

	if res.err != nil {
		if ctx.Err() != nil {
			return
		}

		metrics.FetchesTotal.WithLabelValues("failed").Inc()
		c.log.WithError(res.err).WithFields(logrus.Fields{
			"seq":      res.seq,
			"attempts": res.attempts,
		}).Warn("dataset fetch failed, keeping previous data")

		c.setPhase(PhaseFailed, func(s *State) {
			s.Error = res.err.Error()
			s.Attempt = res.attempts
			if errors.Is(res.err, client.ErrTransport) {
				s.Backend = BackendUnreachable
			}
		})
		c.setPhase(PhaseIdle, nil)

		return
	}

	metrics.FetchesTotal.WithLabelValues("succeeded").Inc()
	c.log.WithFields(logrus.Fields{
		"seq":      res.seq,
		"records":  len(res.resp.Data),
		"attempts": res.attempts,
	}).Info("dataset fetched")

	c.setPhase(PhaseSucceeded, func(s *State) {
		c.replace(s, res.resp.Data, res.resp.Filters)
		s.Attempt = res.attempts
		s.AppliedSeq = res.seq
	})
	c.setPhase(PhaseIdle, nil)
}

func (c *Controller) applyPush(p Payload) {
	c.log.WithField("records", len(p.Data)).Debug("applying pushed dataset")

	if c.inflight != nil {
		c.update(func(s *State) { c.replace(s, p.Data, p.Filters) })
		return
	}

	c.setPhase(PhaseSucceeded, func(s *State) { c.replace(s, p.Data, p.Filters) })
	c.setPhase(PhaseIdle, nil)
}

// replace swaps records and filters together and clears the error.
func (c *Controller) replace(s *State, records []models.Record, filters models.FilterOptions) {
	if records == nil {
		records = []models.Record{}
	}

	s.Records = records
	s.Filters = filters.Normalize()
	s.Error = ""
	s.Backend = BackendReachable
	s.LastSynced = time.Now()

	metrics.RecordCount.Set(float64(len(records)))
	metrics.LastSync.Set(float64(s.LastSynced.Unix()))
}

func (c *Controller) finishWarmup(ctx context.Context, err error) {
	if err != nil && ctx.Err() != nil {
		return
	}

	if err != nil {
		c.log.WithError(err).Warn("backend did not warm up, continuing anyway")
		c.setPhase(PhaseIdle, func(s *State) {
			s.Backend = BackendUnreachable
			s.Error = err.Error()
		})
		return
	}

	c.log.Info("backend warmed up")
	c.setPhase(PhaseIdle, func(s *State) { s.Backend = BackendReachable })
}

// setPhase applies mutate and moves to phase, firing the transition hook.
func (c *Controller) setPhase(phase Phase, mutate func(*State)) {
	var from Phase
	c.update(func(s *State) {
		from = s.Phase
		if mutate != nil {
			mutate(s)
		}
		s.Phase = phase
	})

	for _, p := range Phases() {
		v := 0.0
		if p == phase {
			v = 1
		}
		metrics.Phase.WithLabelValues(string(p)).Set(v)
	}

	if from != phase && c.opts.OnTransition != nil {
		c.opts.OnTransition(from, phase)
	}
}

func (c *Controller) update(mutate func(*State)) {
	c.mu.Lock()
	mutate(&c.state)
	c.state.UpdatedAt = time.Now()
	snap := copyState(c.state)
	c.mu.Unlock()

	c.publish(snap)
}

func (c *Controller) publish(s State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}

		// Full: drop the oldest so the newest state is always delivered.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	close(c.done)
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}
