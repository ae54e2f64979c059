package relay

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codecollab/internal/wire"
)

// ProjectEventsChannel is the Redis pub/sub channel the REST backend
// publishes project lifecycle events on.
const ProjectEventsChannel = "project_events"

// Bridge injects project events published by the REST backend
// (version_created, project_updated) into the matching room, so editor
// sessions see them without polling.
type Bridge struct {
	log *zap.Logger
	rdb *redis.Client
	hub *Hub
}

func NewBridge(log *zap.Logger, rdb *redis.Client, hub *Hub) *Bridge {
	return &Bridge{log: log, rdb: rdb, hub: hub}
}

// Run consumes the channel until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, ProjectEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	b.log.Info("subscribed to project events", zap.String("channel", ProjectEventsChannel))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("project event bridge stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *Bridge) handle(payload string) {
	var frame wire.Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		b.log.Warn("bad project event payload", zap.Error(err))
		return
	}

	kind := wire.Kind(frame.Event)
	if kind != wire.KindVersionCreated && kind != wire.KindRoomUpdated {
		b.log.Debug("ignoring project event", zap.String("event", frame.Event))
		return
	}

	var scope struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(frame.Data, &scope); err != nil || scope.ProjectID == "" {
		b.log.Warn("project event missing projectId", zap.String("event", frame.Event))
		return
	}

	if b.hub.BroadcastTo(scope.ProjectID, frame) {
		projectEventsBridged.WithLabelValues(frame.Event).Inc()
		b.log.Debug("bridged project event",
			zap.String("event", frame.Event),
			zap.String("projectId", scope.ProjectID))
	}
}
