package scoring

import (
	"fmt"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

func explain(kind domain.MediaKind, isDeepfake, verified bool, base domain.BaseMetrics, specific domain.SpecificMetrics) string {
	pct := domain.RoundHalfUp
	authenticity := pct(base.Authenticity)

	if verified {
		return verifiedExplanation(kind, authenticity, pct(base.Confidence))
	}

	switch m := specific.(type) {
	case domain.ImageMetrics:
		if isDeepfake {
			return fmt.Sprintf("Our analysis detected signs of digital manipulation in this image. "+
				"Artifact detection scored %d%% while pixel consistency reached only %d%%, with an overall authenticity score of %d%%. "+
				"These patterns are commonly associated with AI-generated or edited imagery.",
				pct(m.ArtifactDetection), pct(m.PixelConsistency), authenticity)
		}
		return fmt.Sprintf("This image shows characteristics consistent with an authentic photograph. "+
			"Pixel consistency scored %d%% and natural texture %d%%, giving an overall authenticity score of %d%%.",
			pct(m.PixelConsistency), pct(m.NaturalTexture), authenticity)
	case domain.VideoMetrics:
		if isDeepfake {
			return fmt.Sprintf("Frame-level analysis indicates potential manipulation. "+
				"Facial consistency measured %d%% and temporal coherence %d%%, below the levels expected for unaltered footage (authenticity %d%%).",
				pct(m.FacialConsistency), pct(m.TemporalCoherence), authenticity)
		}
		return fmt.Sprintf("The video exhibits natural temporal behaviour. "+
			"Facial consistency scored %d%% and lip-sync accuracy %d%%, for an overall authenticity score of %d%%.",
			pct(m.FacialConsistency), pct(m.LipSyncAccuracy), authenticity)
	case domain.AudioMetrics:
		if isDeepfake {
			return fmt.Sprintf("Spectral analysis found irregularities typical of synthesized speech. "+
				"Voice consistency scored %d%% and spectral naturalness %d%% (authenticity %d%%).",
				pct(m.VoiceConsistency), pct(m.SpectralNaturalness), authenticity)
		}
		return fmt.Sprintf("The recording shows natural vocal characteristics. "+
			"Voice consistency scored %d%% and prosody pattern %d%%, yielding an authenticity score of %d%%.",
			pct(m.VoiceConsistency), pct(m.ProsodyPattern), authenticity)
	default:
		return fmt.Sprintf("Authenticity score: %d%%.", authenticity)
	}
}

func verifiedExplanation(kind domain.MediaKind, authenticity, confidence int) string {
	switch kind {
	case domain.MediaVideo:
		return fmt.Sprintf("This video was recorded directly from a live camera and verified as authentic. "+
			"Authenticity score: %d%% with %d%% confidence. Temporal and facial signals are consistent with unaltered footage.",
			authenticity, confidence)
	case domain.MediaAudio:
		return fmt.Sprintf("This recording was captured directly from a live device and verified as authentic. "+
			"Authenticity score: %d%% with %d%% confidence. No synthesis indicators were found.",
			authenticity, confidence)
	default:
		return fmt.Sprintf("This image was captured directly from a live camera and verified as authentic. "+
			"Authenticity score: %d%% with %d%% confidence. No manipulation indicators were found.",
			authenticity, confidence)
	}
}
