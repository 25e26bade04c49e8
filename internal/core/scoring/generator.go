// Package scoring derives the presentation scores for an analysis.
//
// Scores are a deterministic function of the file name, the payload size and an
// optional classifier signal. Nothing here inspects media content.
package scoring

import (
	"context"
	"log/slog"
	"math"
	"unicode/utf16"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

const (
	DatasetReference = "FaceForensics++, Celeb-DF v2, DFDC (Deepfake Detection Challenge)"
	AnalysisVersion  = "DeepScan v2.1.0"

	deepfakeThreshold = 60.0
)

// verifiedSignal replaces any classifier output for forced or camera-captured input.
var verifiedSignal = domain.ClassifierOutput{
	IsDeepfake: false,
	Confidence: 90,
	Features: domain.ClassifierFeatures{
		ArtificialPatterns: 12,
		NaturalFeatures:    92,
		TextureConsistency: 95,
		Lighting:           90,
	},
}

// Request is the input of a single scoring run. Data may be nil.
type Request struct {
	Kind           domain.MediaKind
	FileName       string
	MimeType       string
	Data           []byte
	ForceAuthentic bool
}

type Generator struct {
	classifier ports.MediaClassifier
	logger     *slog.Logger
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator builds a generator. A nil classifier disables the soft signal.
func NewGenerator(classifier ports.MediaClassifier, opts ...Option) *Generator {
	g := &Generator{
		classifier: classifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Seed maps a file name and optional payload to the scoring seed.
func Seed(fileName string, data []byte) float64 {
	var charSum int
	for _, unit := range utf16.Encode([]rune(fileName)) {
		charSum += int(unit)
	}
	sizeFactor := 0.0
	if data != nil {
		sizeFactor = float64(len(data)%1000) / 1000
	}
	return float64(charSum)/1000 + sizeFactor
}

// Generate never fails; classifier problems degrade to "no signal".
func (g *Generator) Generate(ctx context.Context, req Request) domain.AnalysisResult {
	seed := Seed(req.FileName, req.Data)

	signal := g.classify(ctx, req)
	verified := req.ForceAuthentic || domain.WebcamCapture(req.FileName)
	if verified {
		signal = verifiedSignal
	}

	authenticity, isDeepfake := verdict(req.Kind, seed, verified, signal)
	base := domain.BaseMetrics{
		Authenticity:            authenticity,
		ManipulationProbability: 100 - authenticity,
		Confidence:              75 + 15*math.Sin(seed*7),
	}

	specific := specificMetrics(req.Kind, func(rule metricRule) float64 {
		return rule.value(seed, verified, isDeepfake, signal)
	})

	return domain.AnalysisResult{
		MediaKind:          req.Kind,
		FileName:           req.FileName,
		IsDeepfake:         isDeepfake,
		OverallResult:      domain.OverallResult(isDeepfake),
		BaseMetrics:        base,
		SpecificMetrics:    specific,
		ConfidenceInterval: domain.ConfidenceInterval(base.Confidence),
		Explanation:        explain(req.Kind, isDeepfake, verified, base, specific),
		DatasetReference:   DatasetReference,
		AnalysisVersion:    AnalysisVersion,
	}
}

func (g *Generator) classify(ctx context.Context, req Request) (out domain.ClassifierOutput) {
	if g.classifier == nil || req.ForceAuthentic || req.Data == nil {
		return domain.ClassifierOutput{}
	}
	if req.Kind != domain.MediaImage && req.Kind != domain.MediaVideo {
		return domain.ClassifierOutput{}
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("classifier_panic", "file_name", req.FileName, "panic", r)
			out = domain.ClassifierOutput{}
		}
	}()

	return g.classifier.Classify(ctx, ports.MediaSample{
		FileName: req.FileName,
		MimeType: req.MimeType,
		Data:     req.Data,
	})
}

func verdict(kind domain.MediaKind, seed float64, verified bool, signal domain.ClassifierOutput) (float64, bool) {
	wave5 := math.Sin(seed * 5)

	switch {
	case verified:
		return 90 + 5*wave5, false
	case signal.HasSignal() && signal.IsDeepfake:
		return 35 + 15*wave5, true
	case signal.HasSignal() && kind == domain.MediaVideo:
		return 80 + 10*wave5, false
	case signal.HasSignal():
		return 75 + 15*wave5, false
	default:
		authenticity := 50 + 40*wave5
		return authenticity, 100-authenticity > deepfakeThreshold
	}
}
