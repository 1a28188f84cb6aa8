package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harun/doc2pdf/internal/observability"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// ToolsLane bounds how many external conversions run at once across users.
	ToolsLane = "tools"

	userLanePrefix = "user:"

	defaultToolConcurrency = 2
)

var (
	ErrClosed      = errors.New("command queue closed")
	ErrLaneCleared = errors.New("lane cleared")
)

// Task represents an asynchronous operation to be executed
type Task func(ctx context.Context) (interface{}, error)

// TaskOptions provides configuration for task execution
type TaskOptions struct {
	WarnAfterMs int
	OnWait      func(waitMs int64, queuePos int)
}

// Options configures a CommandQueue.
type Options struct {
	// ToolConcurrency caps the tools lane. Zero uses 2.
	ToolConcurrency int
	// DedupTTL is how long results are remembered by request ID. Zero uses 5m.
	DedupTTL time.Duration
}

// taskRecord tracks a task's execution state
type taskRecord struct {
	id         string
	requestID  string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	options    TaskOptions
	result     chan Result
}

// Result is the outcome of one task.
type Result struct {
	Value interface{}
	Err   error
}

// laneState manages execution state for a single lane
type laneState struct {
	concurrency int
	queue       []*taskRecord
	running     int
	activeIDs   map[string]bool
	mu          sync.Mutex
}

// EventHandler is a function that handles queue events
type EventHandler func(event Event)

// Event represents a queue event
type Event struct {
	Type   string                 // "enqueued" or "completed"
	Lane   string                 // Lane name
	TaskID string                 // Task ID
	Data   map[string]interface{} // Additional event data
}

// CommandQueue serializes work per user and bounds tool concurrency.
type CommandQueue struct {
	lanes     map[string]*laneState
	taskIDSeq int
	closed    bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	dedup     *dedupCache
	// Event handling
	eventHandlers map[string][]EventHandler
	eventMu       sync.RWMutex
}

// New creates a CommandQueue with the tools lane initialized.
func New(opts Options) *CommandQueue {
	observability.EnsureRegistered()

	if opts.ToolConcurrency <= 0 {
		opts.ToolConcurrency = defaultToolConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())

	cq := &CommandQueue{
		lanes:         make(map[string]*laneState),
		ctx:           ctx,
		cancel:        cancel,
		dedup:         newDedupCache(ctx, opts.DedupTTL),
		eventHandlers: make(map[string][]EventHandler),
	}

	cq.initLane(ToolsLane, opts.ToolConcurrency)

	return cq
}

// UserLane is the lane that serializes all work of one user.
func UserLane(userID int64) string {
	return userLanePrefix + strconv.FormatInt(userID, 10)
}

// metricLane keeps per-user lanes from exploding metric cardinality.
func metricLane(lane string) string {
	if strings.HasPrefix(lane, userLanePrefix) {
		return "user"
	}
	return lane
}

// initLane initializes a lane with specified concurrency
func (cq *CommandQueue) initLane(lane string, concurrency int) *laneState {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	ls, exists := cq.lanes[lane]
	if !exists {
		ls = &laneState{
			concurrency: concurrency,
			queue:       make([]*taskRecord, 0),
			activeIDs:   make(map[string]bool),
		}
		cq.lanes[lane] = ls
		log.Debug().Str("lane", lane).Int("concurrency", concurrency).Msg("Lane initialized")
	}
	return ls
}

func (cq *CommandQueue) getLane(lane string) (*laneState, bool) {
	cq.mu.RLock()
	defer cq.mu.RUnlock()
	ls, ok := cq.lanes[lane]
	return ls, ok
}

// ensureLane creates a lane if it doesn't exist
func (cq *CommandQueue) ensureLane(lane string) *laneState {
	if ls, ok := cq.getLane(lane); ok {
		return ls
	}
	return cq.initLane(lane, 1)
}

// Enqueue adds a task to the specified lane and waits for its result.
func (cq *CommandQueue) Enqueue(lane string, task Task, options *TaskOptions) (interface{}, error) {
	return cq.EnqueueWithContext(context.Background(), lane, task, options)
}

// EnqueueWithContext adds a task to the specified lane and propagates context
// metadata. When ctx carries a request ID that already completed within the
// dedup window, the cached result is returned and task is not run again.
func (cq *CommandQueue) EnqueueWithContext(ctx context.Context, lane string, task Task, options *TaskOptions) (interface{}, error) {
	result := <-cq.Submit(ctx, lane, task, options)
	return result.Value, result.Err
}

// Submit queues task and returns at once. Tasks submitted to one lane run in
// submission order. The channel receives exactly one Result.
func (cq *CommandQueue) Submit(ctx context.Context, lane string, task Task, options *TaskOptions) <-chan Result {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"doc2pdf.commandqueue",
		"commandqueue.enqueue",
		attribute.String("lane", lane),
	)
	defer span.End()

	if tracing.GetSessionKey(ctx) == "" {
		ctx = tracing.WithSessionKey(ctx, lane)
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)

	done := func(r Result) <-chan Result {
		if r.Err != nil {
			span.RecordError(r.Err)
			span.SetStatus(codes.Error, r.Err.Error())
		}
		ch := make(chan Result, 1)
		ch <- r
		close(ch)
		return ch
	}

	requestID := tracing.GetRequestID(ctx)
	if requestID != "" {
		if cached, ok := cq.dedup.Get(lane + "/" + requestID); ok {
			logger.Debug().Str("lane", lane).Str("requestId", requestID).Msg("Duplicate request served from cache")
			return done(cached)
		}
	}

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return done(Result{Err: ErrClosed})
	}
	cq.taskIDSeq++
	taskID := fmt.Sprintf("%s-%d", lane, cq.taskIDSeq)
	cq.mu.Unlock()

	ls := cq.ensureLane(lane)

	opts := TaskOptions{}
	if options != nil {
		opts = *options
	}

	record := &taskRecord{
		id:         taskID,
		requestID:  requestID,
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		options:    opts,
		result:     make(chan Result, 1),
	}

	ls.mu.Lock()
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	ls.mu.Unlock()

	logger.Debug().
		Str("lane", lane).
		Str("taskId", taskID).
		Int("queueSize", queueSize).
		Msg("Task enqueued")

	observability.RecordQueueEnqueue(metricLane(lane), queueSize)

	cq.emit(Event{
		Type:   "enqueued",
		Lane:   lane,
		TaskID: taskID,
		Data: map[string]interface{}{
			"queueSize": queueSize,
		},
	})

	if opts.WarnAfterMs > 0 {
		go cq.startWarnTimer(record, lane)
	}

	go cq.processLane(lane)

	return record.result
}

// processLane starts queued tasks while the lane has capacity.
func (cq *CommandQueue) processLane(lane string) {
	ls, ok := cq.getLane(lane)
	if !ok {
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for ls.running < ls.concurrency && len(ls.queue) > 0 {
		record := ls.queue[0]
		ls.queue = ls.queue[1:]

		if cq.ctx.Err() != nil {
			record.result <- Result{Err: ErrClosed}
			close(record.result)
			continue
		}

		ls.running++
		ls.activeIDs[record.id] = true

		logger := tracing.LoggerFromContext(record.ctx, log.Logger)
		logger.Debug().
			Str("lane", lane).
			Str("taskId", record.id).
			Int("running", ls.running).
			Msg("Task started")

		cq.wg.Add(1)
		go cq.executeTask(lane, ls, record)
	}
}

// executeTask executes a single task
func (cq *CommandQueue) executeTask(lane string, ls *laneState, record *taskRecord) {
	defer cq.wg.Done()

	taskCtx, span := tracing.StartSpan(
		record.ctx,
		"doc2pdf.commandqueue",
		"commandqueue.execute_task",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)

	logger := tracing.LoggerFromContext(taskCtx, log.Logger)

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	startTime := time.Now()
	value, err := cq.run(runCtx, record)
	duration := time.Since(startTime)

	ls.mu.Lock()
	ls.running--
	delete(ls.activeIDs, record.id)
	queueSize := len(ls.queue)
	ls.mu.Unlock()

	if record.requestID != "" {
		cq.dedup.Set(lane+"/"+record.requestID, Result{Value: value, Err: err})
	}

	record.result <- Result{Value: value, Err: err}
	close(record.result)

	tracing.EndSpan(span, err)

	if err != nil {
		logger.Error().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("duration", duration).
			Msg("Task completed")
	}

	observability.RecordQueueCompletion(metricLane(lane), duration, err == nil, queueSize)

	cq.emit(Event{
		Type:   "completed",
		Lane:   lane,
		TaskID: record.id,
		Data: map[string]interface{}{
			"duration": duration.Milliseconds(),
			"success":  err == nil,
		},
	})

	go cq.processLane(lane)
}

// run turns a panicking task into an error so the lane keeps draining.
func (cq *CommandQueue) run(ctx context.Context, record *taskRecord) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("taskId", record.id).Msg("Task panicked")
			value, err = nil, fmt.Errorf("task panicked: %v", r)
		}
	}()
	return record.task(ctx)
}

// startWarnTimer starts a timer to warn about long wait times
func (cq *CommandQueue) startWarnTimer(record *taskRecord, lane string) {
	timer := time.NewTimer(time.Duration(record.options.WarnAfterMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		ls, ok := cq.getLane(lane)
		if !ok {
			return
		}
		ls.mu.Lock()
		queuePos := -1
		for i, r := range ls.queue {
			if r.id == record.id {
				queuePos = i
				break
			}
		}
		ls.mu.Unlock()

		if queuePos >= 0 {
			waitMs := time.Since(record.enqueuedAt).Milliseconds()
			log.Warn().
				Str("lane", lane).
				Str("taskId", record.id).
				Int64("waitMs", waitMs).
				Int("queuePos", queuePos).
				Msg("Task waiting longer than expected")

			if record.options.OnWait != nil {
				record.options.OnWait(waitMs, queuePos)
			}
		}
	case <-cq.ctx.Done():
		return
	}
}

// GetQueueSize returns the number of queued tasks for a lane
func (cq *CommandQueue) GetQueueSize(lane string) int {
	ls, ok := cq.getLane(lane)
	if !ok {
		return 0
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.queue)
}

// GetRunningCount returns the number of currently executing tasks for a lane
func (cq *CommandQueue) GetRunningCount(lane string) int {
	ls, ok := cq.getLane(lane)
	if !ok {
		return 0
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.running
}

// GetStats returns statistics for all lanes
func (cq *CommandQueue) GetStats() map[string]map[string]int {
	cq.mu.RLock()
	defer cq.mu.RUnlock()

	stats := make(map[string]map[string]int)
	for lane, ls := range cq.lanes {
		ls.mu.Lock()
		stats[lane] = map[string]int{
			"queued":      len(ls.queue),
			"running":     ls.running,
			"concurrency": ls.concurrency,
		}
		ls.mu.Unlock()
	}

	return stats
}

// ClearLane rejects every task still waiting in a lane. Running tasks finish.
func (cq *CommandQueue) ClearLane(lane string) int {
	ls, ok := cq.getLane(lane)
	if !ok {
		return 0
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	count := len(ls.queue)
	for _, record := range ls.queue {
		record.result <- Result{Err: ErrLaneCleared}
		close(record.result)
	}
	ls.queue = make([]*taskRecord, 0)

	log.Info().Str("lane", lane).Int("cleared", count).Msg("Lane cleared")
	observability.SetQueueSize(metricLane(lane), 0)

	return count
}

// WaitForActive waits for all active tasks to complete with timeout
func (cq *CommandQueue) WaitForActive(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		allDrained := true

		cq.mu.RLock()
		for _, ls := range cq.lanes {
			ls.mu.Lock()
			if len(ls.activeIDs) > 0 || len(ls.queue) > 0 {
				allDrained = false
			}
			ls.mu.Unlock()
		}
		cq.mu.RUnlock()

		if allDrained {
			log.Info().Msg("All active tasks completed")
			return true
		}

		if time.Now().After(deadline) {
			log.Warn().Dur("timeout", timeout).Msg("Timeout waiting for active tasks")
			return false
		}

		<-ticker.C
	}
}

// Close cancels running tasks, rejects queued ones and waits for workers.
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil
	}
	cq.closed = true
	lanes := make([]string, 0, len(cq.lanes))
	for lane := range cq.lanes {
		lanes = append(lanes, lane)
	}
	cq.mu.Unlock()

	cq.cancel()
	for _, lane := range lanes {
		cq.ClearLane(lane)
	}
	cq.wg.Wait()
	cq.dedup.Stop()
	return nil
}

// On registers an event handler for a specific event type
func (cq *CommandQueue) On(eventType string, handler EventHandler) {
	cq.eventMu.Lock()
	defer cq.eventMu.Unlock()

	cq.eventHandlers[eventType] = append(cq.eventHandlers[eventType], handler)
}

// emit emits an event synchronously to all registered handlers
func (cq *CommandQueue) emit(event Event) {
	cq.eventMu.RLock()
	handlers := cq.eventHandlers[event.Type]
	cq.eventMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
