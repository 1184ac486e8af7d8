package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan(t *testing.T) {
	require.NoError(t, Init("apool-test", "0.0.1", ""))

	ctx, span := StartSpan(context.Background(), "pool.Get")
	assert.NotNil(t, ctx)
	require.NotNil(t, span)
	span.WithAttributes(map[string]string{"app.root": "/apps/demo"})
	EndSpan(span, nil)

	_, failed := StartSpan(ctx, "pool.Get")
	EndSpan(failed, assert.AnError)
}
