package scoring

import "github.com/kirillkom/deepfake-scan/internal/core/domain"

var captureBase = domain.BaseMetrics{
	Authenticity:            94,
	ManipulationProbability: 6,
	Confidence:              92,
}

// ApplyCaptureOverride pins a camera capture to the verified baseline values.
// The explanation is left as generated.
func ApplyCaptureOverride(result *domain.AnalysisResult) {
	if result == nil {
		return
	}
	result.IsDeepfake = false
	result.OverallResult = domain.OverallResult(false)
	result.BaseMetrics = captureBase
	result.ConfidenceInterval = domain.ConfidenceInterval(captureBase.Confidence)
	result.SpecificMetrics = specificMetrics(result.MediaKind, func(rule metricRule) float64 {
		return rule.verified.base
	})
}
