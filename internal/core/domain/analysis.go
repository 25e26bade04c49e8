package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	VerdictDeepfake  = "Potential Deepfake Detected"
	VerdictAuthentic = "Verified Authentic"
)

type BaseMetrics struct {
	Authenticity            float64 `json:"authenticity"`
	ManipulationProbability float64 `json:"manipulationProbability"`
	Confidence              float64 `json:"confidence"`
}

// MetricField is one rendered line of a specific-metrics record.
type MetricField struct {
	Key   string
	Label string
	Value float64
}

// SpecificMetrics is a closed union over ImageMetrics, VideoMetrics and AudioMetrics.
type SpecificMetrics interface {
	Kind() MediaKind
	Fields() []MetricField
	isSpecificMetrics()
}

type ImageMetrics struct {
	PixelConsistency    float64 `json:"pixelConsistency"`
	LightingConsistency float64 `json:"lightingConsistency"`
	NaturalTexture      float64 `json:"naturalTexture"`
	ArtifactDetection   float64 `json:"artifactDetection"`
	CompressionAnalysis float64 `json:"compressionAnalysis"`
}

func (ImageMetrics) Kind() MediaKind { return MediaImage }

func (m ImageMetrics) Fields() []MetricField {
	return []MetricField{
		{Key: "pixelConsistency", Label: "Pixel Consistency", Value: m.PixelConsistency},
		{Key: "lightingConsistency", Label: "Lighting Consistency", Value: m.LightingConsistency},
		{Key: "naturalTexture", Label: "Natural Texture", Value: m.NaturalTexture},
		{Key: "artifactDetection", Label: "Artifact Detection", Value: m.ArtifactDetection},
		{Key: "compressionAnalysis", Label: "Compression Analysis", Value: m.CompressionAnalysis},
	}
}

func (ImageMetrics) isSpecificMetrics() {}

type VideoMetrics struct {
	FacialConsistency   float64 `json:"facialConsistency"`
	TemporalCoherence   float64 `json:"temporalCoherence"`
	LipSyncAccuracy     float64 `json:"lipSyncAccuracy"`
	BlinkPattern        float64 `json:"blinkPattern"`
	LightingConsistency float64 `json:"lightingConsistency"`
}

func (VideoMetrics) Kind() MediaKind { return MediaVideo }

func (m VideoMetrics) Fields() []MetricField {
	return []MetricField{
		{Key: "facialConsistency", Label: "Facial Consistency", Value: m.FacialConsistency},
		{Key: "temporalCoherence", Label: "Temporal Coherence", Value: m.TemporalCoherence},
		{Key: "lipSyncAccuracy", Label: "Lip Sync Accuracy", Value: m.LipSyncAccuracy},
		{Key: "blinkPattern", Label: "Blink Pattern", Value: m.BlinkPattern},
		{Key: "lightingConsistency", Label: "Lighting Consistency", Value: m.LightingConsistency},
	}
}

func (VideoMetrics) isSpecificMetrics() {}

type AudioMetrics struct {
	VoiceConsistency      float64 `json:"voiceConsistency"`
	SpectralNaturalness   float64 `json:"spectralNaturalness"`
	ProsodyPattern        float64 `json:"prosodyPattern"`
	BreathingPattern      float64 `json:"breathingPattern"`
	BackgroundConsistency float64 `json:"backgroundConsistency"`
}

func (AudioMetrics) Kind() MediaKind { return MediaAudio }

func (m AudioMetrics) Fields() []MetricField {
	return []MetricField{
		{Key: "voiceConsistency", Label: "Voice Consistency", Value: m.VoiceConsistency},
		{Key: "spectralNaturalness", Label: "Spectral Naturalness", Value: m.SpectralNaturalness},
		{Key: "prosodyPattern", Label: "Prosody Pattern", Value: m.ProsodyPattern},
		{Key: "breathingPattern", Label: "Breathing Pattern", Value: m.BreathingPattern},
		{Key: "backgroundConsistency", Label: "Background Consistency", Value: m.BackgroundConsistency},
	}
}

func (AudioMetrics) isSpecificMetrics() {}

type AnalysisResult struct {
	MediaKind          MediaKind       `json:"mediaKind"`
	FileName           string          `json:"fileName"`
	IsDeepfake         bool            `json:"isDeepfake"`
	OverallResult      string          `json:"overallResult"`
	BaseMetrics        BaseMetrics     `json:"baseMetrics"`
	SpecificMetrics    SpecificMetrics `json:"specificMetrics"`
	ConfidenceInterval string          `json:"confidenceInterval"`
	Explanation        string          `json:"explanation"`
	DatasetReference   string          `json:"datasetReference"`
	AnalysisVersion    string          `json:"analysisVersion"`
}

// UnmarshalJSON dispatches specificMetrics on mediaKind.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	type alias AnalysisResult
	var raw struct {
		alias
		SpecificMetrics json.RawMessage `json:"specificMetrics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = AnalysisResult(raw.alias)
	r.SpecificMetrics = nil

	if len(raw.SpecificMetrics) == 0 || string(raw.SpecificMetrics) == "null" {
		return nil
	}

	var target SpecificMetrics
	switch r.MediaKind {
	case MediaImage:
		var m ImageMetrics
		if err := json.Unmarshal(raw.SpecificMetrics, &m); err != nil {
			return fmt.Errorf("decode image metrics: %w", err)
		}
		target = m
	case MediaVideo:
		var m VideoMetrics
		if err := json.Unmarshal(raw.SpecificMetrics, &m); err != nil {
			return fmt.Errorf("decode video metrics: %w", err)
		}
		target = m
	case MediaAudio:
		var m AudioMetrics
		if err := json.Unmarshal(raw.SpecificMetrics, &m); err != nil {
			return fmt.Errorf("decode audio metrics: %w", err)
		}
		target = m
	default:
		return fmt.Errorf("decode specific metrics: unknown media kind %q", r.MediaKind)
	}
	r.SpecificMetrics = target
	return nil
}

// RoundHalfUp rounds .5 toward +Inf, matching how report percentages are shown.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func ConfidenceInterval(confidence float64) string {
	return fmt.Sprintf("%d%%-%d%%", RoundHalfUp(confidence-8), RoundHalfUp(confidence+8))
}

func OverallResult(isDeepfake bool) string {
	if isDeepfake {
		return VerdictDeepfake
	}
	return VerdictAuthentic
}

type AnalysisStatus string

const (
	StatusQueued     AnalysisStatus = "queued"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

type AnalysisSource string

const (
	SourceUpload  AnalysisSource = "upload"
	SourceCapture AnalysisSource = "capture"
)

type Analysis struct {
	ID             string          `json:"id"`
	FileName       string          `json:"file_name"`
	MimeType       string          `json:"mime_type"`
	MediaKind      MediaKind       `json:"media_kind"`
	StoragePath    string          `json:"storage_path"`
	Source         AnalysisSource  `json:"source"`
	ForceAuthentic bool            `json:"force_authentic"`
	Status         AnalysisStatus  `json:"status"`
	Error          string          `json:"error,omitempty"`
	Media          MediaInfo       `json:"media"`
	Result         *AnalysisResult `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AnalysisEvent is the queue payload for analysis lifecycle events.
type AnalysisEvent struct {
	AnalysisID string    `msgpack:"id"`
	MediaKind  MediaKind `msgpack:"kind,omitempty"`
	IsDeepfake bool      `msgpack:"deepfake,omitempty"`
	OccurredAt time.Time `msgpack:"at"`
}

// ReportFile is a downloadable rendering of an analysis.
type ReportFile struct {
	Name        string
	ContentType string
	Body        []byte
}
