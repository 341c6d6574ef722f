package service

import (
	"context"
	"time"

	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/journal"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/pkg/logger"
	"go.uber.org/zap"
)

type EventPublisher interface {
	Publish(ctx context.Context, event broker.Event) error
}

type DeletionRecorder interface {
	Record(entry journal.Entry) error
}

// Hooks run after a transition has been committed. Every field is optional
// and a failing hook never undoes the mutation.
type Hooks struct {
	Publisher EventPublisher
	Journal   DeletionRecorder
	Metrics   *metrics.Metrics
}

func (h Hooks) transitioned(ctx context.Context, eventType broker.EventType, entity string, id uint, ownerID *uint) {
	h.Metrics.IncrementTransition(entity, string(eventType))
	h.publish(ctx, broker.Event{
		Type:      eventType,
		Entity:    entity,
		EntityID:  id,
		TouristID: ownerID,
		At:        time.Now().UTC(),
	})
}

// deleted journals the transition before publishing it. actorID is the
// principal that asked for the delete, nil for public endpoints.
func (h Hooks) deleted(ctx context.Context, entity string, id uint, ownerID, actorID *uint, hard bool, cascaded int64) {
	eventType := broker.EventSoftDeleted
	if hard {
		eventType = broker.EventHardDeleted
	}
	now := time.Now().UTC()

	h.Metrics.IncrementTransition(entity, string(eventType))

	if h.Journal != nil {
		err := h.Journal.Record(journal.Entry{
			Entity:         entity,
			EntityID:       id,
			ActorID:        actorID,
			Hard:           hard,
			CascadedVisits: cascaded,
			At:             now,
		})
		if err != nil {
			logger.Log.Error("Failed to journal deletion",
				zap.String("entity", entity),
				zap.Uint("entity_id", id),
				zap.Bool("hard", hard),
				zap.Error(err),
			)
		}
	}

	h.publish(ctx, broker.Event{
		Type:      eventType,
		Entity:    entity,
		EntityID:  id,
		TouristID: ownerID,
		Hard:      hard,
		Cascaded:  cascaded,
		At:        now,
	})
}

func (h Hooks) publish(ctx context.Context, event broker.Event) {
	if h.Publisher == nil {
		return
	}
	if err := h.Publisher.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish lifecycle event",
			zap.String("type", string(event.Type)),
			zap.String("entity", event.Entity),
			zap.Uint("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

func uintPtr(v uint) *uint {
	return &v
}
