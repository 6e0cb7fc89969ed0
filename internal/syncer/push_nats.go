package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/metrics"
)

// DefaultPushSubject is the NATS subject datasets are published on.
const DefaultPushSubject = "dashboard.data"

const natsBuffer = 64

// NATSSource subscribes to a NATS subject carrying dataset payloads.
type NATSSource struct {
	url     string
	subject string
	log     *logrus.Logger
}

// NewNATSSource creates a source for a nats:// URL.
func NewNATSSource(url, subject string, log *logrus.Logger) *NATSSource {
	if subject == "" {
		subject = DefaultPushSubject
	}

	return &NATSSource{url: url, subject: subject, log: log}
}

// Name implements PushSource.
func (s *NATSSource) Name() string { return "nats" }

// Listen implements PushSource.
func (s *NATSSource) Listen(ctx context.Context, deliver func(Payload)) error {
	closed := make(chan struct{})

	nc, err := nats.Connect(s.url,
		nats.Name("dashsync"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, natsBuffer)
	sub, err := nc.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.subject, err)
	}
	defer sub.Unsubscribe() //nolint:errcheck

	s.log.WithField("subject", s.subject).Info("push subscription active")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return errors.New("nats connection closed")
		case m := <-msgs:
			p, err := decodePayload(m.Data)
			if err != nil {
				metrics.PushMessages.WithLabelValues(s.Name(), "invalid").Inc()
				s.log.WithError(err).Warn("dropping invalid push message")
				continue
			}

			metrics.PushMessages.WithLabelValues(s.Name(), "ok").Inc()
			deliver(p)
		}
	}
}
