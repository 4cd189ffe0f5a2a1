package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, log.Default(), FromContext(context.Background()))
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).Debug("packing", "parts", 3)
	assert.Contains(t, buf.String(), "packing")
	assert.Contains(t, buf.String(), "parts=3")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf, LevelInfo).Info("served", "status", 200)
	assert.Contains(t, buf.String(), `"msg":"served"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(New(&buf, LevelInfo))
	p.Done("Packed sheet", "placed", 4)
	assert.Contains(t, buf.String(), "Packed sheet")
	assert.Contains(t, buf.String(), "placed=4")
	assert.Contains(t, buf.String(), "elapsed=")
}
