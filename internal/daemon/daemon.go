package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/harun/doc2pdf/internal/bot"
	"github.com/harun/doc2pdf/internal/config"
	"github.com/harun/doc2pdf/internal/logger"
	"github.com/harun/doc2pdf/internal/observability"
	"github.com/harun/doc2pdf/internal/telegram"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/harun/doc2pdf/pkg/commandqueue"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/harun/doc2pdf/pkg/session"
	"github.com/rs/zerolog"
)

// Daemon runs the Telegram bot and everything it depends on.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue     *commandqueue.CommandQueue
	sessions  *session.Store
	converter *convert.Dispatcher
	janitor   *session.Janitor

	// Telegram
	telegramBot  *telegram.Bot
	orchestrator *bot.Orchestrator

	// Internal
	eventLoop *EventLoop
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool

	tasksDone   atomic.Int64
	tasksFailed atomic.Int64
}

// Status is a point-in-time view of the daemon.
type Status struct {
	Running        bool
	Uptime         time.Duration
	StartTime      time.Time
	Sessions       int
	ActiveSessions int // used within activeWindow
	ToolsQueued    int
	ToolsRunning   int
	TasksDone      int64
	TasksFailed    int64
}

const activeWindow = 15 * time.Minute

var newTelegramBot = func(cfg *config.TelegramConfig, log zerolog.Logger) (*telegram.Bot, error) {
	return telegram.New(cfg, log)
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("doc2pdf"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	}

	d := &Daemon{
		config:         cfg,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		tracingEnabled: true,
	}

	fail := func(err error) (*Daemon, error) {
		cancel()
		if d.queue != nil {
			_ = d.queue.Close()
		}
		if d.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
			d.tracingEnabled = false
		}
		return nil, err
	}

	if err := d.initializeCoreModules(); err != nil {
		return fail(fmt.Errorf("failed to initialize core modules: %w", err))
	}
	if err := d.initializeServices(); err != nil {
		return fail(fmt.Errorf("failed to initialize services: %w", err))
	}

	d.eventLoop = NewEventLoop(d)
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

func (d *Daemon) initializeCoreModules() error {
	log := d.logger.Zerolog()

	d.queue = commandqueue.New(commandqueue.Options{ToolConcurrency: d.config.Conversion.Workers})
	d.queue.On("completed", d.countTask)
	log.Info().Int("workers", d.config.Conversion.Workers).Msg("Command queue initialized")

	auditPath := d.config.Logging.AuditFile
	if auditPath != "" {
		if err := observability.InitAuditLogger(auditPath); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
		} else {
			log.Info().Str("path", auditPath).Msg("Audit logger initialized")
		}
	}

	d.sessions = session.NewStore()

	conv := d.config.Conversion
	converter, err := convert.NewDispatcher(d.config.DispatcherConfig())
	if err != nil {
		return fmt.Errorf("failed to create conversion dispatcher: %w", err)
	}
	d.converter = converter

	var exclude []string
	if conv.DebugDir != "" {
		exclude = append(exclude, conv.DebugDir)
	}
	d.janitor = session.NewJanitor(session.JanitorConfig{
		Dir:      converter.WorkDir(),
		Schedule: conv.JanitorSchedule,
		MaxAge:   d.config.JanitorMaxAge(),
		Exclude:  exclude,
	}, d.sessions)

	return nil
}

func (d *Daemon) initializeServices() error {
	tb, err := newTelegramBot(&d.config.Telegram, d.logger.Zerolog())
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	d.telegramBot = tb

	d.orchestrator = bot.New(bot.Options{
		Allowlist:       d.config.Telegram.Allowlist,
		DebugMode:       d.config.Conversion.DebugMode,
		DebugDir:        d.config.Conversion.DebugDir,
		DeliveryTimeout: d.config.DeliveryTimeout(),
		QueueNotice:     d.config.QueueNotice(),
	}, bot.NewTelegramTransport(tb), d.converter, d.sessions, d.queue)

	d.logger.Info().
		Str("username", tb.Username()).
		Int("allowlist", len(d.config.Telegram.Allowlist)).
		Bool("debug_mode", d.config.Conversion.DebugMode).
		Msg("Telegram bot initialized")

	return nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := d.logger.Zerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Starting doc2pdf daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := d.janitor.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start work dir janitor")
	}

	if d.config.Metrics.Enabled {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := observability.Serve(d.ctx, d.config.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	d.orchestrator.Attach(d.ctx, d.telegramBot)
	if err := d.telegramBot.Start(d.ctx); err != nil {
		_ = d.lifecycle.Stop()
		d.setStopped()
		return fmt.Errorf("failed to start telegram bot: %w", err)
	}
	logger.Info().Msg("Telegram bot started")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	logger.Info().Msg("Daemon started successfully")
	return nil
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop stops the daemon service gracefully. Pending session files are
// deleted; nothing survives a restart.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := d.logger.Zerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Stopping doc2pdf daemon")

	if d.telegramBot != nil && d.telegramBot.IsRunning() {
		if err := d.telegramBot.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop telegram bot")
		}
	}

	d.eventLoop.HandleShutdown()

	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}
	logger.Info().Msg("Command queue stopped")

	if d.janitor.IsRunning() {
		if err := d.janitor.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop work dir janitor")
		}
	}

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if err := d.converter.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close conversion dispatcher")
	}

	d.sessions.Close()

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Daemon stopped successfully")
	return nil
}

// countTask tallies finished queue tasks for Status.
func (d *Daemon) countTask(ev commandqueue.Event) {
	if ok, _ := ev.Data["success"].(bool); ok {
		d.tasksDone.Add(1)
		return
	}
	d.tasksFailed.Add(1)
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:        d.running,
		Sessions:       d.sessions.Len(),
		ActiveSessions: d.sessions.ActiveWithin(activeWindow),
		ToolsQueued:    d.queue.GetQueueSize(commandqueue.ToolsLane),
		ToolsRunning:   d.queue.GetRunningCount(commandqueue.ToolsLane),
		TasksDone:      d.tasksDone.Load(),
		TasksFailed:    d.tasksFailed.Load(),
	}
	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}
	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case <-d.telegramBot.Done():
		d.logger.Warn().Msg("Telegram update loop exited")
	}

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

func (d *Daemon) GetQueue() *commandqueue.CommandQueue {
	return d.queue
}

func (d *Daemon) GetSessions() *session.Store {
	return d.sessions
}

func (d *Daemon) GetTelegramBot() *telegram.Bot {
	return d.telegramBot
}

func (d *Daemon) GetOrchestrator() *bot.Orchestrator {
	return d.orchestrator
}
