package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goOTP.MetricsSnapshot
	dropped  uint64
	mail     [3]uint64
}

func (f fakeSource) MetricsSnapshot() goOTP.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                   { return f.dropped }
func (f fakeSource) MailStats() (uint64, uint64, uint64)    { return f.mail[0], f.mail[1], f.mail[2] }

func TestCollectorDisabledEngineOnlyDispatcherCounters(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters:   map[goOTP.MetricID]uint64{},
			Histograms: map[goOTP.MetricID][]uint64{},
		},
	})

	assert.Equal(t, 4, testutil.CollectAndCount(c))
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{
				goOTP.MetricOTPRequested: 3,
				goOTP.MetricOTPLocked:    1,
			},
			Histograms: map[goOTP.MetricID][]uint64{
				goOTP.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
		mail:    [3]uint64{5, 1, 0},
	})

	expected := `
# HELP gootp_otp_requested_total OTP codes issued.
# TYPE gootp_otp_requested_total counter
gootp_otp_requested_total 3
# HELP gootp_otp_locked_total Lockouts started by a failed verification.
# TYPE gootp_otp_locked_total counter
gootp_otp_locked_total 1
# HELP gootp_audit_dropped_total Audit events dropped under dispatcher backpressure.
# TYPE gootp_audit_dropped_total counter
gootp_audit_dropped_total 2
# HELP gootp_mail_failed_total Emails the sender failed to deliver.
# TYPE gootp_mail_failed_total counter
gootp_mail_failed_total 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gootp_otp_requested_total",
		"gootp_otp_locked_total",
		"gootp_audit_dropped_total",
		"gootp_mail_failed_total",
	))

	histogram := `
# HELP gootp_verify_latency_seconds OTP verification latency.
# TYPE gootp_verify_latency_seconds histogram
gootp_verify_latency_seconds_bucket{le="0.005"} 1
gootp_verify_latency_seconds_bucket{le="0.01"} 3
gootp_verify_latency_seconds_bucket{le="0.025"} 6
gootp_verify_latency_seconds_bucket{le="0.05"} 10
gootp_verify_latency_seconds_bucket{le="0.1"} 15
gootp_verify_latency_seconds_bucket{le="0.25"} 21
gootp_verify_latency_seconds_bucket{le="0.5"} 28
gootp_verify_latency_seconds_bucket{le="+Inf"} 36
gootp_verify_latency_seconds_sum 0
gootp_verify_latency_seconds_count 36
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(histogram), "gootp_verify_latency_seconds"))
}

func TestCollectorLints(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{goOTP.MetricLoginSuccess: 1},
		},
	})
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestHandlerServesTextFormat(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{goOTP.MetricLoginSuccess: 1},
		},
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gootp_login_success_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
