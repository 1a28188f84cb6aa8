// Package commandqueue provides lane-based task execution with FIFO ordering per lane.
//
// Each user gets a lane of concurrency one so their commands never interleave
// and a conversion always sees the files that were pending when it was
// requested. The shared tools lane caps how many external converters run at
// once across all users.
//
// Invariants:
// - Tasks in the same lane execute in FIFO order.
// - Tasks in different lanes may execute concurrently.
// - A request ID seen again within the dedup window returns the first result.
// - Queue activity is observable through enqueued/completed events and metrics.
//
// Usage:
//
//	queue := commandqueue.New(commandqueue.Options{ToolConcurrency: 2})
//	defer queue.Close()
//	result, err := queue.Enqueue(commandqueue.UserLane(42), func(ctx context.Context) (interface{}, error) {
//		return "ok", nil
//	}, nil)
package commandqueue
