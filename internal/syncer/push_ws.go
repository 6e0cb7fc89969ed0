package syncer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/metrics"
)

// maxPushMessageBytes bounds a single pushed dataset.
const maxPushMessageBytes = 16 << 20

// WebSocketSource reads datasets from a WebSocket stream, one JSON payload per message.
type WebSocketSource struct {
	url string
	log *logrus.Logger
}

// NewWebSocketSource creates a source for a ws:// or wss:// URL.
func NewWebSocketSource(url string, log *logrus.Logger) *WebSocketSource {
	return &WebSocketSource{url: url, log: log}
}

// Name implements PushSource.
func (s *WebSocketSource) Name() string { return "websocket" }

// Listen implements PushSource.
func (s *WebSocketSource) Listen(ctx context.Context, deliver func(Payload)) error {
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		HTTPHeader: http.Header{"User-Agent": []string{"dashsync"}},
	})
	if err != nil {
		return fmt.Errorf("dialing push stream: %w", err)
	}
	defer conn.CloseNow() //nolint:errcheck

	conn.SetReadLimit(maxPushMessageBytes)
	s.log.WithField("url", s.url).Info("push stream connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading push stream: %w", err)
		}

		p, err := decodePayload(data)
		if err != nil {
			metrics.PushMessages.WithLabelValues(s.Name(), "invalid").Inc()
			s.log.WithError(err).Warn("dropping invalid push message")
			continue
		}

		metrics.PushMessages.WithLabelValues(s.Name(), "ok").Inc()
		deliver(p)
	}
}
