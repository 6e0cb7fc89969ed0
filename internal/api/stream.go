package api

import (
	"context"

	"github.com/persistorai/dashsync/internal/syncer"
	"github.com/persistorai/dashsync/internal/ws"
)

// RelayStates broadcasts every state received on states to the hub until
// the channel closes or ctx is cancelled.
func RelayStates(ctx context.Context, states <-chan syncer.State, hub *ws.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			hub.Broadcast(ws.EventState, NewStateView(s))
		}
	}
}
