// Package telemetry wraps the global OpenTelemetry tracer for the two
// long-running operations worth a span: a Monte Carlo run and an MSD
// search. The analysis core never configures an exporter or SDK — that is
// the serving layer's job; this package only calls otel.Tracer() and
// trusts whatever TracerProvider the host process has installed (a no-op
// one if none has).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "netgraph"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartMonteCarloRun opens a span covering one FailureManager run.
func StartMonteCarloRun(ctx context.Context, analysisFunc, policyName string, iterations int) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, "netgraph.monte_carlo_run")
	span.SetAttributes(
		attribute.String("analysis_function", analysisFunc),
		attribute.String("policy_name", policyName),
		attribute.Int("iterations", iterations),
	)
	return ctx, span
}

// StartMSDSearch opens a span covering one alpha* bisection search.
func StartMSDSearch(ctx context.Context, alphaStart float64) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, "netgraph.msd_search")
	span.SetAttributes(attribute.Float64("alpha_start", alphaStart))
	return ctx, span
}

// EndWithError records err on the span (if non-nil) and ends it.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
