package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exporters publish for
// [goSession.Engine.AuditDropped].
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Created sessions."},
	{ID: goSession.MetricSessionVerified, Name: "gosession_session_verified_total", Help: "Access tokens that produced a session."},
	{ID: goSession.MetricSessionVerifyFailed, Name: "gosession_session_verify_failed_total", Help: "GetSession calls that returned an error."},
	{ID: goSession.MetricTryRefresh, Name: "gosession_try_refresh_total", Help: "Expired access tokens answered with try-refresh."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goSession.MetricTokenTheftDetected, Name: "gosession_token_theft_detected_total", Help: "Replayed refresh tokens."},
	{ID: goSession.MetricRefreshContention, Name: "gosession_refresh_contention_total", Help: "Refreshes that exhausted compare-and-swap retries."},
	{ID: goSession.MetricAntiCSRFFailed, Name: "gosession_anti_csrf_failed_total", Help: "Requests rejected by the anti-CSRF check."},
	{ID: goSession.MetricClaimValidationFailed, Name: "gosession_claim_validation_failed_total", Help: "Sessions rejected by a claim validator."},
	{ID: goSession.MetricSessionRevoked, Name: "gosession_session_revoked_total", Help: "Revoked sessions."},
	{ID: goSession.MetricSessionsRevokedForUser, Name: "gosession_sessions_revoked_for_user_total", Help: "Revoke-all-for-user operations."},
	{ID: goSession.MetricSessionDataUpdated, Name: "gosession_session_data_updated_total", Help: "Session data updates."},
	{ID: goSession.MetricAccessPayloadUpdated, Name: "gosession_access_payload_updated_total", Help: "Access-token payload updates."},
	{ID: goSession.MetricAccessTokenRegenerated, Name: "gosession_access_token_regenerated_total", Help: "Access tokens re-minted without rotation."},
	{ID: goSession.MetricStoreUnavailable, Name: "gosession_store_unavailable_total", Help: "Session store failures."},
	{ID: goSession.MetricCodecUnavailable, Name: "gosession_codec_unavailable_total", Help: "Token codec failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricGetSessionLatency, Name: "gosession_get_session_latency_seconds", Help: "GetSession latency histogram."},
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "RefreshSession latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBounds are the bucket labels, +Inf included.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding
// with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
