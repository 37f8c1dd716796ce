// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"

	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/frame"
	"github.com/mantisfury/arkham-core/internal/server"
)

// wireNotifications subscribes the hub to every bus topic a UI client
// cares about, broadcasting to all connected clients since this
// deployment has no per-user routing yet.
func wireNotifications(f *frame.Frame, hub *server.NotificationHub) {
	subscribe := func(topic, level string) {
		f.Bus.Subscribe(topic, func(ctx context.Context, ev bus.Event) error {
			hub.Broadcast(server.Notification{
				Type:    ev.Type,
				Message: ev.Type,
				Level:   level,
			})
			return nil
		})
	}

	subscribe("worker.job.completed", "info")
	subscribe("worker.job.failed", "error")
	subscribe("ingest.job.completed", "info")
	subscribe("ingest.job.failed", "error")
	subscribe("embed.model.switched", "info")
}
