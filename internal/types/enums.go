package types

// EmergencyCategory classifies what the vision model believes it is seeing.
type EmergencyCategory string

const (
	CategoryFall        EmergencyCategory = "fall"
	CategoryChoking     EmergencyCategory = "choking"
	CategorySeizure     EmergencyCategory = "seizure"
	CategoryUnconscious EmergencyCategory = "unconscious"
	CategoryDistress    EmergencyCategory = "distress"
	CategoryNormal      EmergencyCategory = "normal"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c EmergencyCategory) bool {
	switch c {
	case CategoryFall, CategoryChoking, CategorySeizure,
		CategoryUnconscious, CategoryDistress, CategoryNormal:
		return true
	}
	return false
}

// DetectorState is the emergency detector's debouncing state.
type DetectorState string

const (
	DetectorNormal          DetectorState = "NORMAL"
	DetectorEmergencyActive DetectorState = "EMERGENCY_ACTIVE"
	DetectorCooldown        DetectorState = "COOLDOWN"
)

// PatientStatus is the coarse clinical status maintained per patient.
type PatientStatus string

const (
	PatientNormal   PatientStatus = "Normal"
	PatientWarning  PatientStatus = "Warning"
	PatientCritical PatientStatus = "Critical"
)

// SessionStatus is the lifecycle state of a monitoring session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// FactorDirection indicates whether a contributing factor pushes the risk
// score up or down.
type FactorDirection string

const (
	DirectionIncreasesRisk FactorDirection = "increases_risk"
	DirectionDecreasesRisk FactorDirection = "decreases_risk"
)

// RiskSource identifies which engine produced a RiskPrediction.
type RiskSource string

const (
	// RiskSourceUpstream means the external risk-prediction service answered.
	RiskSourceUpstream RiskSource = "woodwide"
	// RiskSourceLocalFallback means the deterministic local scorer was used,
	// either because the upstream is unconfigured or because it failed.
	RiskSourceLocalFallback RiskSource = "local_fallback"
)

// UrgencyLevel determines notification priority for alert fan-out.
type UrgencyLevel string

const (
	UrgencyWatch    UrgencyLevel = "watch"
	UrgencyWarning  UrgencyLevel = "warning"
	UrgencyCritical UrgencyLevel = "critical"
)

// UrgencyForCategory maps an emergency category to its fan-out urgency.
// Unconscious and choking patients need the fastest response.
func UrgencyForCategory(c EmergencyCategory) UrgencyLevel {
	switch c {
	case CategoryUnconscious, CategoryChoking:
		return UrgencyCritical
	case CategoryFall, CategorySeizure:
		return UrgencyWarning
	default:
		return UrgencyWatch
	}
}

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelWebhook ChannelType = "webhook"
)

// Metric names and dimensions emitted to CloudWatch.
const (
	MetricNamespace       = "MediWatch"
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricDeliveryAttempt = "AlertDeliveryAttempt"
	MetricDeliveryLatency = "AlertDeliveryLatency"
	MetricAlertEmitted    = "AlertEmitted"

	DimChannel  = "Channel"
	DimResult   = "Result"
	DimCategory = "Category"
)
