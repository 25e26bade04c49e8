package scoring

import (
	"math"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

type wave struct {
	base      float64
	amplitude float64
}

func (w wave) at(seed, k float64) float64 {
	return w.base + w.amplitude*math.Sin(seed*k)
}

type feature int

const (
	noFeature feature = iota
	featureArtificialPatterns
	featureNaturalFeatures
	featureTextureConsistency
	featureLighting
)

func (f feature) from(out domain.ClassifierOutput) float64 {
	switch f {
	case featureArtificialPatterns:
		return out.Features.ArtificialPatterns
	case featureNaturalFeatures:
		return out.Features.NaturalFeatures
	case featureTextureConsistency:
		return out.Features.TextureConsistency
	case featureLighting:
		return out.Features.Lighting
	default:
		return 0
	}
}

// metricRule is one row of the per-kind constant table. Rows are in field order.
type metricRule struct {
	k         float64
	verified  wave
	feature   feature
	deepfake  wave
	authentic wave
}

func (r metricRule) value(seed float64, verified, isDeepfake bool, out domain.ClassifierOutput) float64 {
	if verified {
		return r.verified.at(seed, r.k)
	}
	if v := r.feature.from(out); v > 0 {
		return v
	}
	if isDeepfake {
		return r.deepfake.at(seed, r.k)
	}
	return r.authentic.at(seed, r.k)
}

var imageRules = [5]metricRule{
	{k: 11, verified: wave{93, 3}, feature: featureTextureConsistency, deepfake: wave{45, 15}, authentic: wave{88, 7}},
	{k: 13, verified: wave{91, 4}, feature: featureLighting, deepfake: wave{48, 14}, authentic: wave{86, 8}},
	{k: 17, verified: wave{92, 3}, feature: featureNaturalFeatures, deepfake: wave{40, 15}, authentic: wave{87, 8}},
	{k: 19, verified: wave{8, 4}, feature: featureArtificialPatterns, deepfake: wave{70, 15}, authentic: wave{15, 10}},
	{k: 23, verified: wave{90, 5}, deepfake: wave{52, 18}, authentic: wave{84, 9}},
}

var videoRules = [5]metricRule{
	{k: 11, verified: wave{93, 3}, feature: featureNaturalFeatures, deepfake: wave{42, 16}, authentic: wave{87, 8}},
	{k: 13, verified: wave{92, 4}, feature: featureTextureConsistency, deepfake: wave{45, 15}, authentic: wave{89, 7}},
	{k: 17, verified: wave{91, 4}, deepfake: wave{50, 18}, authentic: wave{86, 9}},
	{k: 19, verified: wave{90, 5}, deepfake: wave{38, 16}, authentic: wave{84, 10}},
	{k: 23, verified: wave{91, 4}, feature: featureLighting, deepfake: wave{47, 15}, authentic: wave{86, 8}},
}

var audioRules = [5]metricRule{
	{k: 11, verified: wave{92, 4}, deepfake: wave{44, 16}, authentic: wave{87, 8}},
	{k: 13, verified: wave{91, 4}, deepfake: wave{40, 15}, authentic: wave{85, 9}},
	{k: 17, verified: wave{90, 5}, deepfake: wave{46, 17}, authentic: wave{84, 10}},
	{k: 19, verified: wave{89, 5}, deepfake: wave{35, 15}, authentic: wave{82, 10}},
	{k: 23, verified: wave{93, 3}, deepfake: wave{52, 18}, authentic: wave{88, 7}},
}

func rulesFor(kind domain.MediaKind) [5]metricRule {
	switch kind {
	case domain.MediaVideo:
		return videoRules
	case domain.MediaAudio:
		return audioRules
	default:
		return imageRules
	}
}

func specificMetrics(kind domain.MediaKind, eval func(metricRule) float64) domain.SpecificMetrics {
	rules := rulesFor(kind)
	var v [5]float64
	for i, rule := range rules {
		v[i] = eval(rule)
	}

	switch kind {
	case domain.MediaVideo:
		return domain.VideoMetrics{
			FacialConsistency:   v[0],
			TemporalCoherence:   v[1],
			LipSyncAccuracy:     v[2],
			BlinkPattern:        v[3],
			LightingConsistency: v[4],
		}
	case domain.MediaAudio:
		return domain.AudioMetrics{
			VoiceConsistency:      v[0],
			SpectralNaturalness:   v[1],
			ProsodyPattern:        v[2],
			BreathingPattern:      v[3],
			BackgroundConsistency: v[4],
		}
	default:
		return domain.ImageMetrics{
			PixelConsistency:    v[0],
			LightingConsistency: v[1],
			NaturalTexture:      v[2],
			ArtifactDetection:   v[3],
			CompressionAnalysis: v[4],
		}
	}
}
