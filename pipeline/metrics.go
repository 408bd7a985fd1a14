package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one process. Each Metrics owns its
// registry, so several pipelines (and tests) never collide.
type Metrics struct {
	Registry *prometheus.Registry

	// StageDuration observes wall time per pipeline stage.
	StageDuration *prometheus.HistogramVec
	// Tasks counts finished tasks by status ("ok", "failed").
	Tasks *prometheus.CounterVec
	// AugmentedEdges counts MST edges added to kNN graphs.
	AugmentedEdges prometheus.Counter
	// Rows tracks the size of the last task per kind ("pixels",
	// "backbone", "landmarks").
	Rows *prometheus.GaugeVec
}

// NewMetrics registers the pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hsisomap_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 3600},
			},
			[]string{"stage"},
		),
		Tasks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hsisomap_tasks_total",
				Help: "Total number of finished tasks",
			},
			[]string{"status"},
		),
		AugmentedEdges: f.NewCounter(prometheus.CounterOpts{
			Name: "hsisomap_knngraph_augmented_edges_total",
			Help: "Total number of MST edges added to connect kNN graphs",
		}),
		Rows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hsisomap_rows",
				Help: "Row counts of the last task",
			},
			[]string{"kind"},
		),
	}
}

// WriteToTextfile exports the registry in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
