package audit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"templatehub/pkg/platform/circuit"
	"templatehub/pkg/requestcontext"
)

// Publisher captures structured audit events. Recording is best-effort: a
// sink failure is logged and never fails the operation that produced the
// event. A breaker stops hammering an unhealthy sink; events are dropped
// while it is open.
// probeInterval is the fraction of events let through while the breaker is
// open, used to detect sink recovery.
const probeInterval = 10

type Publisher struct {
	store   Store
	logger  *slog.Logger
	breaker *circuit.Breaker
	probes  atomic.Uint64
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:   store,
		logger:  logger,
		breaker: circuit.New("audit", circuit.WithFailureThreshold(5)),
	}
}

// Record fills in event identity and request-scoped fields, then appends.
func (p *Publisher) Record(ctx context.Context, event Event) {
	if p == nil || p.store == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if p.breaker.IsOpen() {
		// Probe occasionally so the breaker can close again once the
		// sink recovers.
		if p.probes.Add(1)%probeInterval != 0 {
			return
		}
	}

	if err := p.store.Append(ctx, event); err != nil {
		_, change := p.breaker.RecordFailure()
		if change.Opened {
			p.logger.ErrorContext(ctx, "audit sink unhealthy, dropping events",
				"breaker", p.breaker.Name(),
				"error", err,
			)
		}
		p.logger.WarnContext(ctx, "audit event dropped",
			"request_id", event.RequestID,
			"action", event.Action,
			"entity_id", event.EntityID,
			"error", err,
		)
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "audit sink recovered", "breaker", p.breaker.Name())
	}
}
