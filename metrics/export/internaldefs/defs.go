package internaldefs

import (
	"strconv"
	"strings"

	goCreds "github.com/MrEthical07/goCreds"
)

type CounterDef struct {
	ID   goCreds.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goCreds.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goCreds.MetricRegisterSuccess, Name: "gocreds_register_success_total", Help: "Successful registrations."},
	{ID: goCreds.MetricRegisterDuplicate, Name: "gocreds_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: goCreds.MetricActivationSuccess, Name: "gocreds_activation_success_total", Help: "Accounts activated."},
	{ID: goCreds.MetricActivationFailure, Name: "gocreds_activation_failure_total", Help: "Activation attempts with an invalid token."},
	{ID: goCreds.MetricActivationResent, Name: "gocreds_activation_resent_total", Help: "Activation tokens reissued."},
	{ID: goCreds.MetricLoginSuccess, Name: "gocreds_login_success_total", Help: "Successful logins."},
	{ID: goCreds.MetricLoginFailure, Name: "gocreds_login_failure_total", Help: "Failed logins."},
	{ID: goCreds.MetricLoginTwoFactorRequired, Name: "gocreds_login_two_factor_required_total", Help: "Logins halted for a missing TOTP code."},
	{ID: goCreds.MetricLoginPasswordUpgraded, Name: "gocreds_login_password_upgraded_total", Help: "Password hashes rehashed on login."},
	{ID: goCreds.MetricPasswordResetRequest, Name: "gocreds_password_reset_request_total", Help: "Password reset requests."},
	{ID: goCreds.MetricPasswordResetSuccess, Name: "gocreds_password_reset_success_total", Help: "Completed password resets."},
	{ID: goCreds.MetricPasswordResetFailure, Name: "gocreds_password_reset_failure_total", Help: "Rejected password resets."},
	{ID: goCreds.MetricTOTPEnrollmentStarted, Name: "gocreds_totp_enrollment_started_total", Help: "TOTP enrollments begun."},
	{ID: goCreds.MetricTOTPEnabled, Name: "gocreds_totp_enabled_total", Help: "TOTP enrollments confirmed."},
	{ID: goCreds.MetricTOTPDisabled, Name: "gocreds_totp_disabled_total", Help: "TOTP enrollments removed."},
	{ID: goCreds.MetricTOTPFailure, Name: "gocreds_totp_failure_total", Help: "Wrong TOTP codes during enrollment changes."},
	{ID: goCreds.MetricAccountUpdated, Name: "gocreds_account_updated_total", Help: "Account updates applied."},
	{ID: goCreds.MetricAccountUpdateRejected, Name: "gocreds_account_update_rejected_total", Help: "Account updates rejected."},
	{ID: goCreds.MetricSessionIssued, Name: "gocreds_session_issued_total", Help: "Session credentials issued."},
	{ID: goCreds.MetricSessionRejected, Name: "gocreds_session_rejected_total", Help: "Session credentials rejected."},
	{ID: goCreds.MetricTokenIssueFailure, Name: "gocreds_token_issue_failure_total", Help: "Single-use tokens that could not be persisted."},
	{ID: goCreds.MetricTokenRedeemRace, Name: "gocreds_token_redeem_race_total", Help: "Token redemptions that lost a concurrent delete."},
	{ID: goCreds.MetricDeliveryQueued, Name: "gocreds_delivery_queued_total", Help: "Messages handed to the delivery outbox."},
	{ID: goCreds.MetricDeliveryFailure, Name: "gocreds_delivery_failure_total", Help: "Messages the mailer failed to send."},
}

var HistogramDefs = []HistogramDef{
	{ID: goCreds.MetricLoginLatency, Name: "gocreds_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels of the latency buckets.
var HistogramBounds = boundLabels()

// HistogramBoundSuffix names the per-bucket OTel counters.
var HistogramBoundSuffix = boundSuffixes()

func boundLabels() []string {
	out := make([]string, 0, goCreds.LoginLatencyBuckets)
	for _, b := range goCreds.LoginLatencyBounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

func boundSuffixes() []string {
	labels := boundLabels()
	out := make([]string, len(labels))
	for i, l := range labels {
		if l == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(l, ".", "_")
	}
	return out
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [goCreds.LoginLatencyBuckets]uint64 {
	var out [goCreds.LoginLatencyBuckets]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [goCreds.LoginLatencyBuckets]uint64) [goCreds.LoginLatencyBuckets]uint64 {
	var out [goCreds.LoginLatencyBuckets]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
