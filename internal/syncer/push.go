package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/models"
)

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// ErrUnsupportedPush is returned for push URLs with an unknown scheme.
var ErrUnsupportedPush = errors.New("unsupported push url scheme")

// Payload is a complete dataset delivered by a push source.
type Payload struct {
	Data    []models.Record      `json:"data"`
	Filters models.FilterOptions `json:"filters"`
}

// PushSource delivers datasets asynchronously.
type PushSource interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Listen blocks, calling deliver for each payload, until ctx is cancelled
	// (returning nil) or the connection fails.
	Listen(ctx context.Context, deliver func(Payload)) error
}

// NewPushSource selects a source by URL scheme: ws/wss or nats.
func NewPushSource(rawURL, subject string, log *logrus.Logger) (PushSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing push url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocketSource(rawURL, log), nil
	case "nats":
		return NewNATSSource(rawURL, subject, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPush, u.Scheme)
	}
}

// decodePayload parses a push message. A message without a data list is
// rejected rather than applied as an empty dataset.
func decodePayload(raw []byte) (Payload, error) {
	var wire struct {
		Data    *[]models.Record      `json:"data"`
		Filters *models.FilterOptions `json:"filters"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, fmt.Errorf("decoding push payload: %w", err)
	}

	if wire.Data == nil {
		return Payload{}, errors.New(`push payload has no "data" field`)
	}

	p := Payload{Data: *wire.Data}
	if wire.Filters != nil {
		p.Filters = *wire.Filters
	}

	return p, nil
}

// runPush keeps the push source connected until ctx is cancelled.
func (c *Controller) runPush(ctx context.Context) {
	src := c.opts.Push
	log := c.log.WithField("source", src.Name())
	backoff := initialBackoff

	deliver := func(p Payload) {
		backoff = initialBackoff
		send(ctx, c.done, c.pushes, p)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		err := src.Listen(ctx, deliver)
		if err == nil || ctx.Err() != nil {
			return
		}

		log.WithError(err).WithField("retry_in", backoff).Warn("push source disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// nextBackoff doubles the current backoff duration with ±25% jitter, capped
// at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := min(current*backoffMultiplier, maxBackoff)

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
