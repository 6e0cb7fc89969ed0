package syncer

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/persistorai/dashsync/internal/query"
)

// Default controller settings.
const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second
	DefaultWarmupTimeout  = 3 * time.Second
	DefaultWarmupAttempts = 3
	DefaultWarmupDelay    = time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 8 * time.Second
	DefaultRefreshRate    = rate.Limit(1)
	DefaultRefreshBurst   = 2
)

// Options configures a Controller. Zero durations and counts fall back to
// the defaults, except MaxRetries.
type Options struct {
	Debounce       time.Duration
	RequestTimeout time.Duration

	WarmupTimeout  time.Duration
	WarmupAttempts int
	WarmupDelay    time.Duration

	// MaxRetries bounds attempts after the first; zero disables retrying.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// PollInterval enables periodic refetching when positive.
	PollInterval time.Duration

	// Push, when set, delivers datasets asynchronously. It excludes polling.
	Push PushSource

	RefreshRate  rate.Limit
	RefreshBurst int

	// OnTransition is called from the controller goroutine on every phase change.
	OnTransition func(from, to Phase)

	// Initial is the selection fetched on start.
	Initial query.Selection
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.WarmupTimeout <= 0 {
		o.WarmupTimeout = DefaultWarmupTimeout
	}
	if o.WarmupAttempts <= 0 {
		o.WarmupAttempts = DefaultWarmupAttempts
	}
	if o.WarmupDelay <= 0 {
		o.WarmupDelay = DefaultWarmupDelay
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if o.RefreshRate <= 0 {
		o.RefreshRate = DefaultRefreshRate
	}
	if o.RefreshBurst <= 0 {
		o.RefreshBurst = DefaultRefreshBurst
	}
	if o.Push != nil {
		o.PollInterval = 0
	}

	return o
}
