package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazae41/glace/internal/config"
	"github.com/hazae41/glace/internal/foundation/errors"
)

func TestNewProviderDisabled(t *testing.T) {
	tp, err := NewProvider(context.Background(), config.TracingConfig{Exporter: config.TraceExporterNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestNewProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(context.Background(), config.TracingConfig{Exporter: config.TraceExporterStdout}, &buf)
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), "glace.build")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "glace.build"`)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TracingConfig{Exporter: "zipkin"}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
