package bus

import (
	"log/slog"
	"time"
)

// Event is a notification emitted by the engine for external consumers:
// rollout completion, validation verdicts, cost estimates.
type Event struct {
	Topic   string         `json:"topic"`
	Time    time.Time      `json:"time"`
	Payload map[string]any `json:"payload"`
}

// Topics emitted by the engine.
const (
	TopicRolloutCompleted = "rollout.completed"
	TopicValidateResult   = "validate.result"
	TopicValidateDegraded = "validate.degraded"
	TopicCostEstimated    = "cost.estimated"
	TopicTemplateRendered = "template.rendered"
)

// Sink receives events. Implementations must be safe for concurrent use;
// the orchestrator publishes from worker goroutines' coordinator.
type Sink interface {
	Publish(event Event)
}

// NewEvent creates an event stamped with the current time.
func NewEvent(topic string, payload map[string]any) Event {
	return Event{
		Topic:   topic,
		Time:    time.Now(),
		Payload: payload,
	}
}

// LogSink publishes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that writes events to the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event at info level.
func (s *LogSink) Publish(event Event) {
	s.logger.Info("event",
		slog.String("topic", event.Topic),
		slog.Any("payload", event.Payload),
	)
}

// NopSink discards all events.
type NopSink struct{}

// Publish discards the event.
func (NopSink) Publish(Event) {}

// FuncSink adapts a function into a Sink. Useful in tests.
type FuncSink func(event Event)

// Publish invokes the wrapped function.
func (f FuncSink) Publish(event Event) { f(event) }
