package observability_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelinerl/runtrack/internal/observability"
)

func TestNewTags(t *testing.T) {
	testCases := []struct {
		name   string
		input  []any
		expect observability.Tags
	}{
		{
			name:   "tags from slog.Attr",
			input:  []any{slog.Attr{Key: "key1", Value: slog.Int64Value(123)}},
			expect: observability.Tags{"key1": "123"},
		},
		{
			name:   "tags from string and value",
			input:  []any{"key2", 456},
			expect: observability.Tags{"key2": "456"},
		},
		{
			name: "mixed input",
			input: []any{
				slog.Attr{Key: "key3", Value: slog.StringValue("value3")},
				"key4",
				789,
			},
			expect: observability.Tags{"key3": "value3", "key4": "789"},
		},
		{
			name:   "dangling key is dropped",
			input:  []any{slog.Attr{Key: "key5", Value: slog.Int64Value(1)}, "key6"},
			expect: observability.Tags{"key5": "1"},
		},
		{
			name:   "empty input",
			input:  []any{},
			expect: observability.Tags{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, observability.NewTags(tc.input...))
		})
	}
}

func TestCoreLogger_TagsInMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewCoreLogger(
		slog.New(slog.NewJSONHandler(&buf, nil)),
		&observability.CoreLoggerParams{
			Tags: observability.Tags{"run_id": "abc123"},
		},
	)

	logger.Info("starting")

	assert.Contains(t, buf.String(), `"run_id":"abc123"`)
	assert.Equal(t, observability.Tags{"run_id": "abc123"}, logger.GetTags())
}

func TestCoreLogger_CaptureErrorWithoutSentry(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewCoreLogger(
		slog.New(slog.NewJSONHandler(&buf, nil)), nil)

	logger.CaptureError(errors.New("tracking unavailable"), "step", 7)

	assert.Contains(t, buf.String(), "tracking unavailable")
	assert.Contains(t, buf.String(), `"step":7`)
}

func TestCoreLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewCoreLogger(
		slog.New(slog.NewJSONHandler(&buf, nil)), nil)

	logger.With("process_index", 2).Info("worker up")

	assert.Contains(t, buf.String(), `"process_index":2`)
}

func TestCoreLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewCoreLogger(
		slog.New(slog.NewJSONHandler(
			&buf,
			&slog.HandlerOptions{Level: slog.LevelError},
		)),
		nil,
	)

	logger.Info("suppressed")
	logger.Error("kept")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "kept")
}
