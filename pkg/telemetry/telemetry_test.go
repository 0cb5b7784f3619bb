package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracer_ReturnsNonNilTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}

func TestStartMonteCarloRun_ReturnsUsableSpan(t *testing.T) {
	ctx, span := StartMonteCarloRun(context.Background(), "max_flow", "link-failures", 1000)
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()
}

func TestStartMSDSearch_ReturnsUsableSpan(t *testing.T) {
	ctx, span := StartMSDSearch(context.Background(), 1.0)
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()
}

func TestEndWithError_NilErrorDoesNotPanic(t *testing.T) {
	_, span := StartMSDSearch(context.Background(), 1.0)
	assert.NotPanics(t, func() { EndWithError(span, nil) })
}

func TestEndWithError_NonNilErrorRecordsAndEnds(t *testing.T) {
	_, span := StartMonteCarloRun(context.Background(), "sensitivity", "node-failures", 50)
	assert.NotPanics(t, func() { EndWithError(span, errors.New("probe failed")) })
}
