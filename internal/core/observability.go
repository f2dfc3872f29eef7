package core

import (
	"context"
	"errors"
	"time"

	"gearguard/internal/persistence/memory"
	"gearguard/pkg/domain"
)

// Logger is the minimal structured logging seam used by the service. Args are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan ends a trace started by a Tracer.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// AuditStatus categorizes an audit entry outcome.
type AuditStatus string

// Audit entry outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry captures the outcome of a single service operation.
type AuditEntry struct {
	Operation  string            `json:"operation"`
	Entity     domain.EntityType `json:"entity,omitempty"`
	EntityID   int               `json:"entity_id,omitempty"`
	Status     AuditStatus       `json:"status"`
	Error      string            `json:"error,omitempty"`
	Violations int               `json:"violations,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// AuditRecorder receives audit entries emitted by the service.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Clock supplies the current time for operations and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface. A nil function falls
// back to UTC wall time.
type ClockFunc func() time.Time

// Now returns the clock's current time.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// selectNowFunc resolves the time source for a service: an explicit clock
// wins, otherwise the memory store's own provider is reused so test clocks
// installed on the store stay authoritative.
func selectNowFunc(store domain.PersistentStore, clock Clock) func() time.Time {
	if clock != nil {
		return clock.Now
	}
	if mem, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := mem.NowFunc(); fn != nil {
			return fn
		}
	}
	return func() time.Time { return time.Now().UTC() }
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = recorder
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithAuditRecorder installs an audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		s.audit = recorder
	}
}

// WithClock overrides the service time source.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock.Now
			if mem, ok := s.store.(*memory.Store); ok {
				mem.SetNowFunc(clock.Now)
			}
		}
	}
}

// observe wraps a service operation with tracing, metrics, audit, and error
// logging. The returned entry mutator lets operations attach entity ids.
func (s *Service) observe(ctx context.Context, operation string, fn func(ctx context.Context, entry *AuditEntry) error) error {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}

	entry := AuditEntry{
		Operation:  operation,
		Status:     AuditStatusSuccess,
		OccurredAt: s.now(),
	}
	started := time.Now()

	err := fn(ctx, &entry)

	duration := time.Since(started)
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		var ruleErr domain.RuleViolationError
		if errors.As(err, &ruleErr) {
			entry.Violations = len(ruleErr.Result.Violations)
		}
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation, "duration", duration)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
	if span != nil {
		span.End(err)
	}
	return err
}
