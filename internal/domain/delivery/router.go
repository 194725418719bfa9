package delivery

import (
	"context"

	"github.com/rs/zerolog"
)

// Transport pushes an event to every live connection of one user. It
// reports whether the user had at least one connection; pushes are
// best-effort and must never block.
type Transport interface {
	Send(userID string, event Event) bool
}

// ParticipantResolver resolves the current participant set of a
// conversation at dispatch time, so departed users stop receiving events
// and fresh joiners start immediately.
type ParticipantResolver interface {
	ParticipantPublicIDs(ctx context.Context, conversationID string) ([]string, error)
}

// Router fans conversation events out to their audience. Per conversation,
// callers serialize the durable write and the dispatch under Sequence so
// events reach clients in commit order.
type Router struct {
	resolver  ParticipantResolver
	transport Transport
	seq       *sequencer
	log       zerolog.Logger
}

// NewRouter wires a Router.
func NewRouter(resolver ParticipantResolver, transport Transport, log zerolog.Logger) *Router {
	return &Router{
		resolver:  resolver,
		transport: transport,
		seq:       newSequencer(),
		log:       log.With().Str("component", "delivery-router").Logger(),
	}
}

// Sequence acquires the per-conversation ordering lock. The caller must
// hold it across the durable write and the matching Dispatch, then release
// via the returned func.
func (r *Router) Sequence(conversationID string) func() {
	return r.seq.Lock(conversationID)
}

// Dispatch resolves the conversation's participants and pushes the event to
// each of them. Offline users are skipped; their state converges through
// reads on reconnect.
func (r *Router) Dispatch(ctx context.Context, conversationID string, event Event) {
	participants, err := r.resolver.ParticipantPublicIDs(ctx, conversationID)
	if err != nil {
		r.log.Error().Err(err).
			Str("conversation_id", conversationID).
			Str("event", string(event.Kind)).
			Msg("failed to resolve event audience")
		return
	}
	r.NotifyUsers(participants, event)
}

// NotifyUsers pushes an event to an explicit audience, independent of any
// conversation. Used for presence and relationship events.
func (r *Router) NotifyUsers(userIDs []string, event Event) {
	delivered := 0
	for _, id := range userIDs {
		if r.transport.Send(id, event) {
			delivered++
		}
	}
	r.log.Debug().
		Str("event", string(event.Kind)).
		Int("audience", len(userIDs)).
		Int("delivered", delivered).
		Msg("event dispatched")
}
