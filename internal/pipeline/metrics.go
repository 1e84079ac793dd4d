package pipeline

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bookclub.pipeline")

var (
	// operationsTotal counts invocations by kind, operation and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_pipeline_operations_total",
		Help: "Write pipeline invocations by resource kind, operation and outcome",
	}, []string{"kind", "operation", "outcome"})

	// operationDuration tracks end-to-end pipeline latency.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookclub_pipeline_duration_seconds",
		Help:    "Write pipeline duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "operation"})

	// syncTotal counts identity provider sync decisions.
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_pipeline_sync_total",
		Help: "External sync outcomes by resource kind",
	}, []string{"kind", "result"})

	// publishFailures counts notifications that could not be delivered.
	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_pipeline_publish_failures_total",
		Help: "Notifications the publisher rejected, by resource kind",
	}, []string{"kind"})
)

// Outcomes recorded in operationsTotal.
const (
	outcomeOK            = "ok"
	outcomeRejected      = "rejected"
	outcomePersistFailed = "persist_failed"
	outcomeSyncFailed    = "sync_failed"
)

func startSpan(ctx context.Context, kind string, op Operation) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline."+op.String(),
		trace.WithAttributes(
			attribute.String("pipeline.kind", kind),
			attribute.String("pipeline.operation", op.String()),
		),
	)
}

func endSpan(span trace.Span, state State, err error) {
	span.SetAttributes(attribute.String("pipeline.state", state.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
