package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"codecollab/internal/config"
	"codecollab/internal/session"
	"codecollab/internal/wire"
)

// roomwatch joins a project room and logs every collaboration event it
// sees. Handy for eyeballing relay traffic during development.
func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.LoadWatch()
	if err != nil {
		log.Fatal(err)
	}

	client := session.New(cfg.ServerURL,
		session.WithLogger(logger),
		session.WithReconnect(),
	)

	// Membership is lost whenever the connection drops, so rejoin on
	// every connected event rather than once up front.
	client.Subscribe(wire.KindConnected, func(wire.Envelope) {
		if err := client.JoinRoom(cfg.ProjectID); err != nil {
			logger.Error("join failed", zap.Error(err))
		}
	})
	client.Subscribe(wire.KindConnectionLost, func(wire.Envelope) {
		logger.Warn("connection lost, waiting for reconnect")
	})

	client.Subscribe(wire.KindParticipantJoined, func(e wire.Envelope) {
		var p wire.ParticipantJoined
		if e.Decode(&p) == nil {
			logger.Info("participant joined", zap.String("userId", p.User.ID))
		}
	})
	client.Subscribe(wire.KindParticipantLeft, func(e wire.Envelope) {
		var p wire.ParticipantLeft
		if e.Decode(&p) == nil {
			logger.Info("participant left", zap.String("userId", p.User.ID))
		}
	})

	// Self-originated content and typing echoes are the subscriber's
	// job to discard.
	client.Subscribe(wire.KindContentChanged, func(e wire.Envelope) {
		if e.Origin == client.UserID() {
			return
		}
		var p wire.ContentChanged
		if e.Decode(&p) == nil {
			logger.Info("content changed",
				zap.String("userId", p.UserID),
				zap.String("filePath", p.FilePath),
				zap.Int("bytes", len(p.Content)))
		}
	})
	client.Subscribe(wire.KindTyping, func(e wire.Envelope) {
		if e.Origin == client.UserID() {
			return
		}
		var p wire.Typing
		if e.Decode(&p) == nil {
			logger.Info("typing",
				zap.String("userId", p.UserID),
				zap.String("filePath", p.FilePath),
				zap.Bool("isTyping", p.IsTyping))
		}
	})
	client.Subscribe(wire.KindCursorMoved, func(e wire.Envelope) {
		var p wire.CursorMoved
		if e.Decode(&p) == nil {
			logger.Info("cursor moved",
				zap.String("userId", p.UserID),
				zap.Int("position", p.Position))
		}
	})
	client.Subscribe(wire.KindSelectionChanged, func(e wire.Envelope) {
		var p wire.SelectionChanged
		if e.Decode(&p) == nil {
			logger.Info("selection changed", zap.String("userId", p.UserID))
		}
	})
	client.Subscribe(wire.KindVersionCreated, func(e wire.Envelope) {
		var p wire.VersionCreated
		if e.Decode(&p) == nil {
			logger.Info("version created", zap.String("versionId", p.VersionID))
		}
	})
	client.Subscribe(wire.KindRoomUpdated, func(e wire.Envelope) {
		var p wire.RoomUpdated
		if e.Decode(&p) == nil {
			logger.Info("project updated", zap.String("name", p.Name))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx, session.Credentials{Token: cfg.Token, UserID: cfg.UserID}); err != nil {
		log.Fatal(err)
	}

	<-ctx.Done()
	_ = client.LeaveRoom()
	client.Disconnect()
}
