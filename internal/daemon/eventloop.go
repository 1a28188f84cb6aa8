package daemon

import (
	"context"
	"time"
)

const (
	maintenanceInterval = 30 * time.Second
	staleStatusAge      = 10 * time.Minute
	shutdownGrace       = 5 * time.Second
)

// EventLoop runs periodic maintenance while the daemon is up.
type EventLoop struct {
	daemon   *Daemon
	interval time.Duration
}

func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon:   d,
		interval: maintenanceInterval,
	}
}

// Run runs the event loop with periodic maintenance tasks
func (e *EventLoop) Run(ctx context.Context) {
	log := e.daemon.logger.Zerolog()
	log.Info().Msg("Event loop started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event loop stopping")
			return

		case <-ticker.C:
			e.processTasks(ctx)
		}
	}
}

func (e *EventLoop) processTasks(ctx context.Context) {
	log := e.daemon.logger.Zerolog()

	stats := e.daemon.queue.GetStats()
	for lane, laneStats := range stats {
		if laneStats["queued"] > 0 || laneStats["running"] > 0 {
			log.Debug().
				Str("lane", lane).
				Int("queued", laneStats["queued"]).
				Int("running", laneStats["running"]).
				Msg("Queue stats")
		}
	}

	e.daemon.sessions.RefreshMetrics()

	status := e.daemon.Status()
	log.Debug().
		Int("sessions", status.Sessions).
		Int("active_sessions", status.ActiveSessions).
		Int("tools_queued", status.ToolsQueued).
		Int("tools_running", status.ToolsRunning).
		Int64("tasks_done", status.TasksDone).
		Int64("tasks_failed", status.TasksFailed).
		Msg("Daemon heartbeat")

	// Statuses whose operation died without a final edit.
	if e.daemon.telegramBot != nil {
		e.daemon.telegramBot.Statuses().CleanupStale(staleStatusAge)
	}
}

// HandleShutdown gives running conversions a moment to finish.
func (e *EventLoop) HandleShutdown() {
	log := e.daemon.logger.Zerolog()
	log.Info().Msg("Handling graceful shutdown")

	if e.daemon.queue.WaitForActive(shutdownGrace) {
		log.Info().Msg("All active tasks completed")
	} else {
		log.Warn().Msg("Active tasks still running at shutdown")
	}
}
