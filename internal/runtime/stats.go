package runtime

import (
	"sync"
	"time"

	"github.com/agentcore/runtime/pkg/protocol"
)

// Stats is a point-in-time snapshot of task and tool-call counters and
// timings, derived purely from the events a Runtime has forwarded. It is
// separate from the OTel/Prometheus export path in internal/telemetry: a
// caller that wants rough in-process numbers without standing up a
// collector can poll Runtime.Stats() instead.
type Stats struct {
	TasksStarted   int64
	TasksCompleted int64
	TasksErrored   int64
	ToolCalls      int64
	ToolCallErrors int64
	DroppedEvents  int64

	// MeanTaskDuration/MeanToolCallDuration are the running mean wall-clock
	// time from start to terminal event. Like the Prometheus
	// histograms in telemetry.Metrics, these accumulate for the lifetime of
	// the statsCollector; they are not reset between tasks.
	MeanTaskDuration     time.Duration
	MeanToolCallDuration time.Duration
}

// statsCollector folds the event stream into running counters, mirroring
// the accumulation pattern of a telemetry runner that tracks durations and
// counts without needing a full span tree. It is deliberately simpler than
// telemetry.Mapper: no parent/child span relationships, just counters and
// open-start timestamps keyed by id.
type statsCollector struct {
	mu sync.Mutex

	tasksStarted   int64
	tasksCompleted int64
	tasksErrored   int64
	toolCalls      int64
	toolCallErrors int64

	taskStarts map[string]time.Time
	toolStarts map[string]time.Time

	taskDurationTotal time.Duration
	taskDurationCount int64
	toolDurationTotal time.Duration
	toolDurationCount int64
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		taskStarts: make(map[string]time.Time),
		toolStarts: make(map[string]time.Time),
	}
}

func (c *statsCollector) consume(e protocol.Event) {
	switch e.Type {
	case protocol.EventTaskStarted:
		if p := e.TaskStarted; p != nil {
			c.mu.Lock()
			c.tasksStarted++
			c.taskStarts[p.SubID] = time.Now()
			c.mu.Unlock()
		}
	case protocol.EventTaskComplete:
		if p := e.TaskComplete; p != nil {
			c.finishTask(p.SubID, true)
		}
	case protocol.EventTaskError:
		if p := e.TaskError; p != nil {
			c.finishTask(p.SubID, false)
		}
	case protocol.EventToolCallRequested:
		if p := e.ToolCallRequested; p != nil {
			c.mu.Lock()
			c.toolStarts[p.ID] = time.Now()
			c.mu.Unlock()
		}
	case protocol.EventToolCallCompleted:
		if p := e.ToolCallCompleted; p != nil {
			c.finishTool(p.ID, true)
		}
	case protocol.EventToolCallFailed:
		if p := e.ToolCallFailed; p != nil {
			c.finishTool(p.ID, false)
		}
	}
}

func (c *statsCollector) finishTask(subID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start, found := c.taskStarts[subID]; found {
		c.taskDurationTotal += time.Since(start)
		c.taskDurationCount++
		delete(c.taskStarts, subID)
	}
	if ok {
		c.tasksCompleted++
	} else {
		c.tasksErrored++
	}
}

func (c *statsCollector) finishTool(id string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start, found := c.toolStarts[id]; found {
		c.toolDurationTotal += time.Since(start)
		c.toolDurationCount++
		delete(c.toolStarts, id)
	}
	c.toolCalls++
	if !ok {
		c.toolCallErrors++
	}
}

func (c *statsCollector) snapshot(dropped int64) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TasksStarted:   c.tasksStarted,
		TasksCompleted: c.tasksCompleted,
		TasksErrored:   c.tasksErrored,
		ToolCalls:      c.toolCalls,
		ToolCallErrors: c.toolCallErrors,
		DroppedEvents:  dropped,
	}
	if c.taskDurationCount > 0 {
		s.MeanTaskDuration = c.taskDurationTotal / time.Duration(c.taskDurationCount)
	}
	if c.toolDurationCount > 0 {
		s.MeanToolCallDuration = c.toolDurationTotal / time.Duration(c.toolDurationCount)
	}
	return s
}
