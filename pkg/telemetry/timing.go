package telemetry

import "time"

// LogTime records the seconds elapsed since start into stats under key
// and returns the current time, so calls can be chained to time the
// phases of a training step.
func LogTime(start time.Time, stats map[string]float64, key string) time.Time {
	now := time.Now()
	stats[key] = now.Sub(start).Seconds()
	return now
}
