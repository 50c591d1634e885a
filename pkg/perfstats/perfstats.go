package perfstats

// Package perfstats accumulates coarse timing of a pipeline run, so you can
// see where a slow run spends its time (almost always the forward passes).

import (
	"time"

	"github.com/cyclopcam/logs"
)

// TimeAccumulator accumulates samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// Time runs f and adds its duration to the accumulator
func (a *TimeAccumulator) Time(f func()) {
	start := time.Now()
	f()
	a.AddSample(time.Since(start))
}

// RunStats is the timing breakdown of one inference run
type RunStats struct {
	Load        TimeAccumulator // Dataloader waits (tile read + padding)
	Forward     TimeAccumulator // Model forward passes, one sample per variant per batch
	Materialize TimeAccumulator // Quantize + raster write, one sample per output
}

func (s *RunStats) LogSummary(logger logs.Log) {
	logger.Infof("Timing: load %v avg (%v total), forward %v avg (%v total), write %v avg (%v total)",
		s.Load.Average(), s.Load.Total,
		s.Forward.Average(), s.Forward.Total,
		s.Materialize.Average(), s.Materialize.Total)
}
