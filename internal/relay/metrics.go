package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codecollab",
		Name:      "ws_connections_total",
		Help:      "Total number of WebSocket connections accepted",
	})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codecollab",
		Name:      "ws_active_connections",
		Help:      "Current number of open WebSocket connections",
	})

	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codecollab",
		Name:      "active_rooms",
		Help:      "Current number of active project rooms",
	})

	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecollab",
		Name:      "ws_frames_received_total",
		Help:      "Inbound frames by event name",
	}, []string{"event"})

	framesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecollab",
		Name:      "ws_frames_forwarded_total",
		Help:      "Frames fanned out to room peers by event name",
	}, []string{"event"})

	projectEventsBridged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecollab",
		Name:      "project_events_bridged_total",
		Help:      "REST-backend project events injected into rooms",
	}, []string{"event"})
)
