// Package telemetry exports per-cell sweep metrics in the Prometheus text
// format, for collection by node_exporter's textfile collector.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/rdsweep/internal/results"
)

const namespace = "rdsweep"

// Recorder holds the sweep's metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	cells         *prometheus.CounterVec
	score         *prometheus.GaugeVec
	pairs         *prometheus.GaugeVec
	encodeSeconds prometheus.Histogram
	artifactBytes *prometheus.GaugeVec
	lastCell      prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Grid cells recorded, by outcome",
		}, []string{"outcome"}),
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cell_score",
			Help:      "Mean fidelity score of a grid cell",
		}, []string{"scorer", "resolution", "bitrate"}),
		pairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cell_scored_pairs",
			Help:      "Frame pairs scored in a grid cell",
		}, []string{"scorer", "resolution", "bitrate"}),
		encodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Wall time of one cell encode",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		artifactBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of the encoded artifact of a grid cell",
		}, []string{"resolution", "bitrate"}),
		lastCell: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cell_timestamp_seconds",
			Help:      "Unix time the last cell was recorded",
		}),
	}
	reg.MustRegister(r.cells, r.score, r.pairs, r.encodeSeconds, r.artifactBytes, r.lastCell)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Outcome labels for cells_total.
const (
	OutcomeScored = "scored"
	OutcomeFailed = "failed"
	OutcomeNull   = "null"
)

func outcome(c results.CellResult) string {
	switch {
	case c.Failed():
		return OutcomeFailed
	case len(c.Scores) == 0 || c.Scores[0].Null():
		return OutcomeNull
	default:
		return OutcomeScored
	}
}

// ObserveCell records one cell. Null scores leave the score gauge unset so
// they are absent rather than zero. encodeTime and artifactBytes are skipped
// when zero.
func (r *Recorder) ObserveCell(c results.CellResult, encodeTime time.Duration, artifactBytes uint64) {
	res, br := c.Cell.Resolution.String(), c.Cell.Bitrate.String()

	r.cells.WithLabelValues(outcome(c)).Inc()
	for _, s := range c.Scores {
		r.pairs.WithLabelValues(s.Scorer, res, br).Set(float64(s.Count))
		if s.Null() {
			r.score.DeleteLabelValues(s.Scorer, res, br)
			continue
		}
		r.score.WithLabelValues(s.Scorer, res, br).Set(s.Mean)
	}
	if encodeTime > 0 {
		r.encodeSeconds.Observe(encodeTime.Seconds())
	}
	if artifactBytes > 0 {
		r.artifactBytes.WithLabelValues(res, br).Set(float64(artifactBytes))
	}
	r.lastCell.SetToCurrentTime()
}

// WriteTextfile atomically writes the current metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
