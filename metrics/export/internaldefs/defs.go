package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// Source is what exporters read on each collection.
// *goOTP.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goOTP.MetricsSnapshot
	AuditDropped() uint64
	MailStats() (sent, failed, dropped uint64)
}

var CounterDefs = []CounterDef{
	{ID: goOTP.MetricOTPRequested, Name: "gootp_otp_requested_total", Help: "OTP codes issued."},
	{ID: goOTP.MetricOTPVerified, Name: "gootp_otp_verified_total", Help: "Successful OTP verifications."},
	{ID: goOTP.MetricOTPFailed, Name: "gootp_otp_failed_total", Help: "Wrong, expired or missing OTP codes submitted."},
	{ID: goOTP.MetricOTPLocked, Name: "gootp_otp_locked_total", Help: "Lockouts started by a failed verification."},
	{ID: goOTP.MetricOTPLockoutRejected, Name: "gootp_otp_lockout_rejected_total", Help: "Verifications rejected by an active lockout."},
	{ID: goOTP.MetricRateLimitHit, Name: "gootp_rate_limit_hit_total", Help: "Requests rejected by a rate limit."},
	{ID: goOTP.MetricLoginSuccess, Name: "gootp_login_success_total", Help: "Successful password logins."},
	{ID: goOTP.MetricLoginFailure, Name: "gootp_login_failure_total", Help: "Failed password logins."},
	{ID: goOTP.MetricRegisterSuccess, Name: "gootp_register_success_total", Help: "Accounts registered with a password."},
	{ID: goOTP.MetricRegisterDuplicate, Name: "gootp_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: goOTP.MetricTokenRefreshSuccess, Name: "gootp_token_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goOTP.MetricTokenRefreshFailure, Name: "gootp_token_refresh_failure_total", Help: "Rejected token refreshes."},
	{ID: goOTP.MetricUserCreated, Name: "gootp_user_created_total", Help: "Users created on first OTP contact."},
	{ID: goOTP.MetricStoreUnavailable, Name: "gootp_store_unavailable_total", Help: "Requests failed closed on a counter store outage."},
	{ID: goOTP.MetricSideEffectFailure, Name: "gootp_side_effect_failure_total", Help: "Swallowed mail, audit or directory side-effect failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricVerifyLatency, Name: "gootp_verify_latency_seconds", Help: "OTP verification latency."},
}

// Dispatcher counters read from AuditDropped and MailStats.
const (
	AuditDroppedName = "gootp_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."
	MailSentName     = "gootp_mail_sent_total"
	MailSentHelp     = "Emails handed to the sender successfully."
	MailFailedName   = "gootp_mail_failed_total"
	MailFailedHelp   = "Emails the sender failed to deliver."
	MailDroppedName  = "gootp_mail_dropped_total"
	MailDroppedHelp  = "Emails dropped because the queue was full or closed."
)

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = 8

// HistogramBounds are the bucket upper bounds in seconds, without +Inf.
func HistogramBounds() []float64 {
	bounds := goOTP.HistogramBucketBounds()
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Seconds()
	}
	return out
}

// HistogramBoundSuffix names each bucket for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
