package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/metrics"
)

// eventPublishTimeout bounds each publish so a degraded broker cannot hold a
// request for the full JetStream ack wait.
var eventPublishTimeout = 2 * time.Second

// publish emits evt without failing the caller. The write it describes has
// already been committed, so a publish error is only logged.
func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, evt *model.Event) {
	if pub == nil {
		return
	}
	evt.ID = uuid.Must(uuid.NewV7()).String()
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	// The event outlives a client that hangs up after the write.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := pub.Publish(ctx, evt); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "error").Inc()
		log.Warn("failed to publish event",
			zap.String("event_type", string(evt.Type)),
			zap.String("subject_id", evt.SubjectID),
			zap.Error(err),
		)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "ok").Inc()
}
