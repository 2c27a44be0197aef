package telemetry

import (
	"context"
	"fmt"
)

// LogMetrics reports the metrics of one completed training step.
//
// On processes other than the coordinator this is a no-op. The
// coordinator logs a rounded human-readable summary locally, then
// forwards the numeric-valued entries to the tracking run keyed by
// step. Forwarding failures are logged and swallowed: a flaky tracking
// service must not stop training.
func (s *Session) LogMetrics(ctx context.Context, completedSteps int, metrics map[string]any) {
	if !s.accel.IsMainProcess() {
		return
	}

	pretty := make(map[string]string, len(metrics))
	for key, value := range metrics {
		if number, ok := toFloat(value); ok {
			pretty[key] = fmt.Sprintf("%.3f", number)
		} else {
			pretty[key] = fmt.Sprintf("%v", value)
		}
	}
	s.Logger.Info("telemetry: completed steps",
		"step", completedSteps, "metrics", pretty)

	if !s.tracking.Active() {
		return
	}

	numeric := make(map[string]float64, len(metrics))
	for key, value := range metrics {
		if number, ok := toFloat(value); ok {
			numeric[key] = number
		}
	}

	if err := s.tracking.Run.LogHistory(ctx, completedSteps, numeric); err != nil {
		s.Logger.CaptureError(
			fmt.Errorf("telemetry: failed to forward metrics: %v", err),
			"step", completedSteps)
	}
}

// toFloat reports whether value is numeric and converts it.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
