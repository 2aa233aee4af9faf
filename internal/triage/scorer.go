// Package triage produces patient risk assessments. The external risk
// service is the preferred engine; ScoreSnapshot is the deterministic local
// fallback used when it is unconfigured or unavailable, and is also the
// behavior that service is meant to approximate.
package triage

import (
	"math"
	"sort"

	"mediwatch/internal/types"
)

// localConfidence is the fixed confidence reported for locally computed
// predictions. The heuristic is deliberate but crude, so it never claims the
// certainty of the trained model.
const localConfidence = 0.7

// ScoreSnapshot maps a patient snapshot to a risk prediction using additive
// point scoring clamped to [0,100].
//
// It is a pure, total function: out-of-range inputs (negative heart rate,
// oxygen above 100) fall into the zero-point bucket of each rule rather than
// being rejected.
func ScoreSnapshot(s types.PatientSnapshot) types.RiskPrediction {
	raw := heartRatePoints(s.HeartRate) +
		oxygenPoints(s.OxygenSaturation) +
		statusPoints(s.CurrentStatus) +
		alertVolumePoints(s.AlertCount1h, s.AlertCount24h) +
		recencyPoints(s)

	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return types.RiskPrediction{
		PatientID:                s.PatientID,
		RiskScore:                score,
		DeteriorationProbability: math.Round(float64(score)*0.9) / 100,
		ContributingFactors:      contributingFactors(s),
		RecommendedAction:        recommendedAction(score, s),
		Confidence:               localConfidence,
		Source:                   types.RiskSourceLocalFallback,
	}
}

func heartRatePoints(hr int) float64 {
	switch {
	case hr < 50:
		return 30
	case hr < 60:
		return 15
	case hr > 120:
		return 35
	case hr > 100:
		return 20
	case hr > 90:
		return 10
	default:
		return 0
	}
}

func oxygenPoints(spo2 float64) float64 {
	switch {
	case spo2 < 90:
		return 40
	case spo2 < 92:
		return 30
	case spo2 < 94:
		return 20
	case spo2 < 96:
		return 10
	default:
		return 0
	}
}

func statusPoints(status types.PatientStatus) float64 {
	switch status {
	case types.PatientCritical:
		return 25
	case types.PatientWarning:
		return 15
	default:
		return 0
	}
}

func alertVolumePoints(count1h, count24h int) float64 {
	return math.Min(float64(count1h)*10, 30) + math.Min(float64(count24h)*2, 15)
}

// recencyPoints scores how recently the last emergency occurred, weighted by
// how confident the classifier was about it. Decays to zero after an hour.
func recencyPoints(s types.PatientSnapshot) float64 {
	if s.LastEmergencyCategory == "" || s.LastEmergencyCategory == types.CategoryNormal {
		return 0
	}
	return math.Max(0, 20-s.MinutesSinceLastAlert/3) * s.LastEmergencyConfidence
}

// contributingFactors derives the human-readable explanation list. Thresholds
// and importance weights here are intentionally independent of the scoring
// arithmetic so explanations stay stable when score weights are tuned.
func contributingFactors(s types.PatientSnapshot) []types.ContributingFactor {
	var factors []types.ContributingFactor

	switch {
	case s.OxygenSaturation < 90:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Oxygen Saturation",
			Importance: 0.95,
			Direction:  types.DirectionIncreasesRisk,
		})
	case s.OxygenSaturation < 94:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Oxygen Saturation",
			Importance: 0.7,
			Direction:  types.DirectionIncreasesRisk,
		})
	case s.OxygenSaturation >= 96:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Oxygen Saturation",
			Importance: 0.2,
			Direction:  types.DirectionDecreasesRisk,
		})
	}

	switch {
	case s.HeartRate < 50 || s.HeartRate > 120:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Heart Rate",
			Importance: 0.9,
			Direction:  types.DirectionIncreasesRisk,
		})
	case s.HeartRate < 60 || s.HeartRate > 100:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Heart Rate",
			Importance: 0.6,
			Direction:  types.DirectionIncreasesRisk,
		})
	default:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Heart Rate",
			Importance: 0.25,
			Direction:  types.DirectionDecreasesRisk,
		})
	}

	if s.AlertCount1h > 0 {
		factors = append(factors, types.ContributingFactor{
			Factor:     "Recent Emergency Alerts",
			Importance: 0.8,
			Direction:  types.DirectionIncreasesRisk,
		})
	} else if s.AlertCount24h > 0 {
		factors = append(factors, types.ContributingFactor{
			Factor:     "Recent Emergency Alerts",
			Importance: 0.5,
			Direction:  types.DirectionIncreasesRisk,
		})
	}

	switch s.CurrentStatus {
	case types.PatientCritical:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Current Status",
			Importance: 0.85,
			Direction:  types.DirectionIncreasesRisk,
		})
	case types.PatientWarning:
		factors = append(factors, types.ContributingFactor{
			Factor:     "Current Status",
			Importance: 0.55,
			Direction:  types.DirectionIncreasesRisk,
		})
	}

	// Sort by importance descending; tie-break on name so output is stable.
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Importance != factors[j].Importance {
			return factors[i].Importance > factors[j].Importance
		}
		return factors[i].Factor < factors[j].Factor
	})

	return factors
}

// recommendedAction looks up the action from the score band combined with the
// specific abnormal vital.
func recommendedAction(score int, s types.PatientSnapshot) string {
	switch {
	case score >= 80 && s.OxygenSaturation < 90:
		return "Dispatch respiratory specialist immediately"
	case score >= 80:
		return "Immediate bedside assessment required"
	case score >= 60:
		return "Prioritize check within 15 minutes"
	case score >= 40:
		return "Schedule follow-up within 30 minutes"
	default:
		return "Continue routine monitoring"
	}
}
