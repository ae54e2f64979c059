package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codecollab/internal/wire"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func publishProjectEvent(t *testing.T, rdb *redis.Client, event string, payload any) {
	t.Helper()
	frame, err := wire.NewFrame(event, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(context.Background(), ProjectEventsChannel, raw).Err())
}

func TestBridgeInjectsVersionCreated(t *testing.T) {
	_, rdb := setupTestRedis(t)
	hub := NewHub()

	member, capture := hookedClient("u1")
	hub.GetOrCreate("p1").Join(member)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge := NewBridge(zap.NewNop(), rdb, hub)
	go bridge.Run(ctx)

	// Publishing can race the subscribe; retry until delivered.
	require.Eventually(t, func() bool {
		publishProjectEvent(t, rdb, string(wire.KindVersionCreated), wire.VersionCreated{
			ProjectID: "p1",
			VersionID: "v42",
		})
		return len(capture.list()) > 0
	}, 2*time.Second, 50*time.Millisecond)

	frame := capture.list()[0]
	assert.Equal(t, string(wire.KindVersionCreated), frame.Event)
	var p wire.VersionCreated
	require.NoError(t, json.Unmarshal(frame.Data, &p))
	assert.Equal(t, "v42", p.VersionID)
}

func TestBridgeIgnoresUnrelatedEvents(t *testing.T) {
	_, rdb := setupTestRedis(t)
	hub := NewHub()

	member, capture := hookedClient("u1")
	hub.GetOrCreate("p1").Join(member)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge := NewBridge(zap.NewNop(), rdb, hub)
	go bridge.Run(ctx)

	require.Eventually(t, func() bool {
		// Wrong kind, wrong room, then a real one as the sentinel.
		publishProjectEvent(t, rdb, "file_content_changed", wire.ContentChanged{ProjectID: "p1"})
		publishProjectEvent(t, rdb, string(wire.KindRoomUpdated), wire.RoomUpdated{ProjectID: "other"})
		publishProjectEvent(t, rdb, string(wire.KindRoomUpdated), wire.RoomUpdated{ProjectID: "p1", Name: "renamed"})
		return len(capture.list()) > 0
	}, 2*time.Second, 50*time.Millisecond)

	for _, frame := range capture.list() {
		assert.Equal(t, string(wire.KindRoomUpdated), frame.Event)
	}
}

func TestBridgeStopsOnContextCancel(t *testing.T) {
	_, rdb := setupTestRedis(t)
	bridge := NewBridge(zap.NewNop(), rdb, NewHub())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
}
