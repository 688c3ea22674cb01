package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

var TotalRows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "anonymizer_total_rows",
	Help: "The total number of rows anonymized",
})

var TotalFields = promauto.NewCounter(prometheus.CounterOpts{
	Name: "anonymizer_total_fields",
	Help: "The total number of fields replaced",
})

var IdentifiersRemapped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "anonymizer_identifiers_remapped",
	Help: "The total number of identity values assigned a new identifier",
})

var RunErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonymizer_run_errors",
	Help: "The number of errors collected by kind",
}, []string{"kind"})

var TableDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "anonymizer_table_duration_seconds",
	Help:    "The duration of the field pass of a table",
	Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
})

var RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "anonymizer_run_duration_seconds",
	Help:    "The duration of a complete anonymization run",
	Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
})

// SystemStats contains the metrics and system stats
type SystemStats struct {
	Metrics struct {
		TotalRows           float64 `json:"totalRows"`
		TotalFields         float64 `json:"totalFields"`
		IdentifiersRemapped float64 `json:"identifiersRemapped"`
		RunErrors           float64 `json:"runErrors"`
		Tables              float64 `json:"tables"`
		Runs                float64 `json:"runs"`
	} `json:"metrics"`
	Memory *mem.VirtualMemoryStat `json:"memory"`
	Load   *load.AvgStat          `json:"load"`
}

// collect calls the function for each metric associated with the Collector
func collect(col prometheus.Collector, do func(*dto.Metric)) {
	c := make(chan prometheus.Metric)
	go func(c chan prometheus.Metric) {
		col.Collect(c)
		close(c)
	}(c)
	for x := range c { // eg range across distinct label vector values
		m := dto.Metric{}
		_ = x.Write(&m)
		do(&m)
	}
}

// getMetricValue returns the sum of the Counter metrics associated with the Collector
// e.g. the metric for a non-vector, or the sum of the metrics for vector labels.
// If the metric is a Histogram then number of samples is used.
func getMetricValue(col prometheus.Collector) float64 {
	var total float64
	collect(col, func(m *dto.Metric) {
		if h := m.GetHistogram(); h != nil {
			total += float64(h.GetSampleCount())
		} else {
			total += m.GetCounter().GetValue()
		}
	})
	return total
}

// RecordRun adds the counters of a finished run to the process metrics.
func RecordRun(result *RunResult) {
	RunDuration.Observe(result.Duration.Seconds())
	for _, t := range result.Tables {
		TotalRows.Add(float64(t.Rows))
		TotalFields.Add(float64(t.Fields))
		TableDuration.Observe(t.Duration.Seconds())
	}
	IdentifiersRemapped.Add(float64(result.RelationshipStats.IdentifiersRemapped))
	for _, e := range result.Errors {
		RunErrors.WithLabelValues(string(e.Kind)).Inc()
	}
}

// GetSystemStats returns a snapshot of the system stats
func GetSystemStats() (*SystemStats, error) {
	var s SystemStats
	var err error
	s.Metrics.TotalRows = getMetricValue(TotalRows)
	s.Metrics.TotalFields = getMetricValue(TotalFields)
	s.Metrics.IdentifiersRemapped = getMetricValue(IdentifiersRemapped)
	s.Metrics.RunErrors = getMetricValue(RunErrors)
	s.Metrics.Tables = getMetricValue(TableDuration)
	s.Metrics.Runs = getMetricValue(RunDuration)
	s.Memory, err = mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	s.Load, err = load.Avg()
	return &s, err
}
