package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("linguahub", "info", &buf)

	l.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "linguahub", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("linguahub", "warn", &buf)

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "u-1")
	assert.Equal(t, "u-1", UserIDFromContext(ctx))
}

func TestWithContext_Enrichment(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("linguahub", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-9")
	ctx = WithUserID(ctx, "u-9")

	WithContext(ctx, base).Info("enriched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-9", entry["correlation_id"])
	assert.Equal(t, "u-9", entry["user_id"])
}

func TestFromContext_Default(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	l := NewWithWriter("linguahub", "info", &buf)
	ctx := NewContext(context.Background(), l)
	assert.Equal(t, l, FromContext(ctx))
}
