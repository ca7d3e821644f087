package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestGet_LazyInit(t *testing.T) {
	m := Get()
	require.NotNil(t, m)
	assert.Same(t, m, Get())

	assert.NotPanics(t, func() {
		m.ScansTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("outcome", "NO_MATCH"), attribute.String("mode", "camera")))
		m.OracleRequestDuration.Record(context.Background(), 0.42)
	})
}
