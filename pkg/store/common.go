package store

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	jobsTable     = "relay_jobs"
	targetsTable  = "configured_webhooks"
	receivedTable = "received_webhooks"
)

const tracerName = "webhook-relay"

func addDBStatsToSpan(span trace.Span, system, statement string, rowCount int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("rowCount", rowCount),
		attribute.String("db.system", system),
		attribute.String("db.statement", statement),
		attribute.Float64("db.execution_time_ms", float64(duration.Milliseconds())),
	)
}
