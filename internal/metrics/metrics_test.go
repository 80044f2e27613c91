package metrics

import (
	"testing"

	metrictestutil "github.com/collate-cloud/collate/internal/metrics/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type MetricsSuite struct {
	suite.Suite
	registry *prometheus.Registry
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsSuite))
}

func (s *MetricsSuite) SetupTest() {
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		JobRunsTotal,
		JobRunDurationSeconds,
		RowsProcessedTotal,
		JobsActive,
		JobsSweptTotal,
		NotificationsTotal,
	)
}

func (s *MetricsSuite) TestJobRunsTotalIncrements() {
	JobRunsTotal.WithLabelValues("import", "done").Inc()
	JobRunsTotal.WithLabelValues("import", "failed").Inc()
	JobRunsTotal.WithLabelValues("import", "failed").Inc()

	val := metrictestutil.CounterValue(s.T(), JobRunsTotal, "import", "done")
	s.GreaterOrEqual(val, float64(1))

	val = metrictestutil.CounterValue(s.T(), JobRunsTotal, "import", "failed")
	s.GreaterOrEqual(val, float64(2))
}

func (s *MetricsSuite) TestJobRunDurationObserves() {
	JobRunDurationSeconds.WithLabelValues("merge", "done").Observe(42.5)

	families, err := s.registry.Gather()
	s.Require().NoError(err)

	found := false
	for _, fam := range families {
		if fam.GetName() == "collate_job_run_duration_seconds" {
			for _, m := range fam.GetMetric() {
				h := m.GetHistogram()
				if h != nil && h.GetSampleCount() > 0 {
					found = true
					s.Equal(uint64(1), h.GetSampleCount())
					s.Equal(42.5, h.GetSampleSum())
				}
			}
		}
	}
	s.True(found, "expected histogram sample")
}

func (s *MetricsSuite) TestRowsProcessedTotalIncrements() {
	RowsProcessedTotal.WithLabelValues("added").Inc()
	RowsProcessedTotal.WithLabelValues("added").Inc()
	RowsProcessedTotal.WithLabelValues("skipped").Inc()

	val := metrictestutil.CounterValue(s.T(), RowsProcessedTotal, "added")
	s.GreaterOrEqual(val, float64(2))
}

func (s *MetricsSuite) TestJobsActiveGauge() {
	JobsActive.WithLabelValues("clone").Inc()
	s.Equal(float64(1), metrictestutil.GaugeValue(s.T(), JobsActive, "clone"))

	JobsActive.WithLabelValues("clone").Dec()
	s.Equal(float64(0), metrictestutil.GaugeValue(s.T(), JobsActive, "clone"))
}
