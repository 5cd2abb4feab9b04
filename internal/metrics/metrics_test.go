package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// These tests flip the package-level switch, so they do not run in parallel.

func TestRecordLookupDisabledIsNoop(t *testing.T) {
	metricsEnabled = false
	m := GetMetrics()

	before := testutil.ToFloat64(m.LookupsTotal.WithLabelValues("NS", "ok"))
	m.RecordLookup("NS", "")
	assert.Equal(t, before, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("NS", "ok")))

	done := MeasureDuration(m.LookupDuration, prometheus.Labels{"record_type": "NS"})
	done()
	assert.NoError(t, StartMetricsServer("127.0.0.1:0"))
}

func TestRecordLookupAndRow(t *testing.T) {
	metricsEnabled = true
	defer func() { metricsEnabled = false }()
	m := GetMetrics()

	okBefore := testutil.ToFloat64(m.LookupsTotal.WithLabelValues("A", "ok"))
	errBefore := testutil.ToFloat64(m.LookupErrors.WithLabelValues("MX", "nxdomain"))
	rowsBefore := testutil.ToFloat64(m.RowsWritten)
	domainsBefore := testutil.ToFloat64(m.DomainsProcessed)

	m.RecordLookup("A", "")
	m.RecordLookup("MX", "nxdomain")
	m.RecordRow("No,(Based on A record)", "Other/Unknown: Emails hosted at an external location")
	m.ObserveRun(1500 * time.Millisecond)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("A", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(m.LookupErrors.WithLabelValues("MX", "nxdomain")))
	assert.Equal(t, rowsBefore+1, testutil.ToFloat64(m.RowsWritten))
	assert.Equal(t, domainsBefore, testutil.ToFloat64(m.DomainsProcessed), "rows and domains are counted separately")
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
	assert.True(t, IsMetricsEnabled())
}

func TestDomainsCountedWithoutRow(t *testing.T) {
	metricsEnabled = true
	defer func() { metricsEnabled = false }()
	m := GetMetrics()

	domainsBefore := testutil.ToFloat64(m.DomainsProcessed)
	rowsBefore := testutil.ToFloat64(m.RowsWritten)

	// A domain that resolved but whose row could not be written.
	m.RecordDomain()

	assert.Equal(t, domainsBefore+1, testutil.ToFloat64(m.DomainsProcessed))
	assert.Equal(t, rowsBefore, testutil.ToFloat64(m.RowsWritten))
}
