package scoring

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

type classifierFake struct {
	out   domain.ClassifierOutput
	calls int
	panic bool
}

func (f *classifierFake) Classify(context.Context, ports.MediaSample) domain.ClassifierOutput {
	f.calls++
	if f.panic {
		panic("backend exploded")
	}
	return f.out
}

var allKinds = []domain.MediaKind{domain.MediaImage, domain.MediaVideo, domain.MediaAudio}

func TestSeedUsesCharSumAndSizeFactor(t *testing.T) {
	if got, want := Seed("test.jpg", nil), float64(815)/1000; got != want {
		t.Fatalf("expected seed %v, got %v", want, got)
	}
	if got, want := Seed("ab", make([]byte, 1500)), float64(195)/1000+float64(500)/1000; got != want {
		t.Fatalf("expected seed %v, got %v", want, got)
	}
	if got := Seed("ab", []byte{}); got != float64(195)/1000 {
		t.Fatalf("empty payload must contribute zero size factor, got %v", got)
	}
}

func TestGenerateWithoutBytesSkipsClassifier(t *testing.T) {
	classifier := &classifierFake{out: domain.ClassifierOutput{IsDeepfake: false, Confidence: 99}}
	gen := NewGenerator(classifier)

	result := gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "test.jpg"})
	if classifier.calls != 0 {
		t.Fatalf("classifier must be skipped without bytes, got %d calls", classifier.calls)
	}

	seed := float64(815) / 1000
	wantAuthenticity := 50 + 40*math.Sin(5*seed)
	if result.BaseMetrics.Authenticity != wantAuthenticity {
		t.Fatalf("expected authenticity %v, got %v", wantAuthenticity, result.BaseMetrics.Authenticity)
	}
	if result.IsDeepfake != (result.BaseMetrics.ManipulationProbability > 60) {
		t.Fatalf("verdict must follow manipulation probability, got %+v", result.BaseMetrics)
	}
	if !result.IsDeepfake {
		t.Fatalf("expected test.jpg to be flagged, authenticity=%v", result.BaseMetrics.Authenticity)
	}
	if result.OverallResult != domain.VerdictDeepfake {
		t.Fatalf("unexpected overall result %q", result.OverallResult)
	}
	if _, ok := result.SpecificMetrics.(domain.ImageMetrics); !ok {
		t.Fatalf("expected image metrics, got %T", result.SpecificMetrics)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen := NewGenerator(&classifierFake{out: domain.ClassifierOutput{IsDeepfake: true, Confidence: 72}})
	req := Request{Kind: domain.MediaVideo, FileName: "clip.mp4", Data: []byte("0123456789")}

	first := gen.Generate(context.Background(), req)
	second := gen.Generate(context.Background(), req)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results:\n%+v\n%+v", first, second)
	}
}

func TestGenerateBaseInvariants(t *testing.T) {
	gen := NewGenerator(nil)
	names := []string{"a.png", "holiday.jpg", "interview.mp4", "voice-note.ogg", "x", "Ünïcödé.wav", "webcam-capture-1.jpg"}

	for _, kind := range allKinds {
		for _, name := range names {
			for _, force := range []bool{false, true} {
				result := gen.Generate(context.Background(), Request{Kind: kind, FileName: name, Data: []byte(name), ForceAuthentic: force})
				base := result.BaseMetrics
				if base.ManipulationProbability != 100-base.Authenticity {
					t.Fatalf("%s/%s: manipulation %v != 100-%v", kind, name, base.ManipulationProbability, base.Authenticity)
				}
				want := domain.ConfidenceInterval(base.Confidence)
				if result.ConfidenceInterval != want {
					t.Fatalf("%s/%s: interval %q, want %q", kind, name, result.ConfidenceInterval, want)
				}
				if result.SpecificMetrics.Kind() != kind {
					t.Fatalf("%s/%s: metrics kind %s", kind, name, result.SpecificMetrics.Kind())
				}
				if result.DatasetReference != DatasetReference || result.AnalysisVersion != AnalysisVersion {
					t.Fatalf("%s/%s: static references missing", kind, name)
				}
			}
		}
	}
}

func TestGenerateForcedAndWebcamAreAuthentic(t *testing.T) {
	classifier := &classifierFake{out: domain.ClassifierOutput{IsDeepfake: true, Confidence: 99}}
	gen := NewGenerator(classifier)

	cases := []Request{
		{Kind: domain.MediaImage, FileName: "suspicious.jpg", Data: []byte("abc"), ForceAuthentic: true},
		{Kind: domain.MediaVideo, FileName: "suspicious.mp4", Data: []byte("abc"), ForceAuthentic: true},
		{Kind: domain.MediaAudio, FileName: "suspicious.wav", ForceAuthentic: true},
		{Kind: domain.MediaImage, FileName: "webcam-capture-1700000000000.jpg", Data: []byte("abc")},
		{Kind: domain.MediaVideo, FileName: "my-webcam-capture.webm"},
	}
	for _, req := range cases {
		result := gen.Generate(context.Background(), req)
		if result.IsDeepfake {
			t.Fatalf("%s: expected authentic verdict", req.FileName)
		}
		if a := result.BaseMetrics.Authenticity; a < 85 || a > 95 {
			t.Fatalf("%s: authenticity %v outside [85,95]", req.FileName, a)
		}
		if !strings.Contains(result.Explanation, "verified as authentic") {
			t.Fatalf("%s: expected verified explanation, got %q", req.FileName, result.Explanation)
		}
	}
}

func TestGenerateClassifierOnlyForVisualMediaWithBytes(t *testing.T) {
	classifier := &classifierFake{out: domain.ClassifierOutput{IsDeepfake: false, Confidence: 80}}
	gen := NewGenerator(classifier)

	gen.Generate(context.Background(), Request{Kind: domain.MediaAudio, FileName: "a.wav", Data: []byte("x")})
	gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "a.jpg", Data: []byte("x"), ForceAuthentic: true})
	if classifier.calls != 0 {
		t.Fatalf("expected no classifier calls, got %d", classifier.calls)
	}

	gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "a.jpg", Data: []byte("x")})
	gen.Generate(context.Background(), Request{Kind: domain.MediaVideo, FileName: "a.mp4", Data: []byte("x")})
	if classifier.calls != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", classifier.calls)
	}
}

func TestGenerateUsesClassifierSignal(t *testing.T) {
	signal := domain.ClassifierOutput{
		IsDeepfake: true,
		Confidence: 77,
		Features: domain.ClassifierFeatures{
			ArtificialPatterns: 77,
			NaturalFeatures:    20,
			TextureConsistency: 45,
			Lighting:           50,
		},
	}
	gen := NewGenerator(&classifierFake{out: signal})

	result := gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "photo.png", Data: []byte("payload")})
	if !result.IsDeepfake {
		t.Fatalf("expected classifier verdict to carry over")
	}
	if a := result.BaseMetrics.Authenticity; a < 20 || a > 50 {
		t.Fatalf("authenticity %v outside deepfake band", a)
	}
	metrics := result.SpecificMetrics.(domain.ImageMetrics)
	if metrics.PixelConsistency != 45 || metrics.LightingConsistency != 50 || metrics.NaturalTexture != 20 || metrics.ArtifactDetection != 77 {
		t.Fatalf("expected classifier features to substitute, got %+v", metrics)
	}

	signal.IsDeepfake = false
	gen = NewGenerator(&classifierFake{out: signal})
	video := gen.Generate(context.Background(), Request{Kind: domain.MediaVideo, FileName: "clip.mp4", Data: []byte("payload")})
	if video.IsDeepfake {
		t.Fatalf("expected authentic video verdict")
	}
	if a := video.BaseMetrics.Authenticity; a < 70 || a > 90 {
		t.Fatalf("video authenticity %v outside authentic band", a)
	}
}

func TestGenerateRecoversFromClassifierPanic(t *testing.T) {
	classifier := &classifierFake{panic: true}
	gen := NewGenerator(classifier)

	result := gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "test.jpg", Data: []byte("abc")})
	seed := Seed("test.jpg", []byte("abc"))
	if want := 50 + 40*math.Sin(5*seed); result.BaseMetrics.Authenticity != want {
		t.Fatalf("expected no-signal formula %v, got %v", want, result.BaseMetrics.Authenticity)
	}
}

func TestScoresStayInRangeAcrossSeedSweep(t *testing.T) {
	signals := []domain.ClassifierOutput{
		{},
		{IsDeepfake: true, Confidence: 65},
		{IsDeepfake: false, Confidence: 95},
	}
	inRange := func(v float64) bool { return v >= 0 && v <= 100 }

	period := 2 * math.Pi / 5
	for step := 0; step <= 2000; step++ {
		seed := period * float64(step) / 2000 * 3
		for _, kind := range allKinds {
			for _, verified := range []bool{false, true} {
				for _, signal := range signals {
					authenticity, isDeepfake := verdict(kind, seed, verified, signal)
					if !inRange(authenticity) || !inRange(100-authenticity) {
						t.Fatalf("seed=%v kind=%s: authenticity %v out of range", seed, kind, authenticity)
					}
					confidence := 75 + 15*math.Sin(seed*7)
					if !inRange(confidence-8) || !inRange(confidence+8) {
						t.Fatalf("seed=%v: confidence interval out of range", seed)
					}
					metrics := specificMetrics(kind, func(rule metricRule) float64 {
						return rule.value(seed, verified, isDeepfake, signal)
					})
					for _, field := range metrics.Fields() {
						if !inRange(field.Value) {
							t.Fatalf("seed=%v kind=%s %s=%v out of range", seed, kind, field.Key, field.Value)
						}
					}
				}
			}
		}
	}
}

func TestApplyCaptureOverride(t *testing.T) {
	gen := NewGenerator(nil)
	result := gen.Generate(context.Background(), Request{Kind: domain.MediaImage, FileName: "test.jpg"})

	ApplyCaptureOverride(&result)
	if result.IsDeepfake || result.OverallResult != domain.VerdictAuthentic {
		t.Fatalf("expected authentic override, got %+v", result)
	}
	if result.BaseMetrics.ManipulationProbability != 100-result.BaseMetrics.Authenticity {
		t.Fatalf("override must keep manipulation = 100 - authenticity: %+v", result.BaseMetrics)
	}
	if result.ConfidenceInterval != "84%-100%" {
		t.Fatalf("unexpected interval %q", result.ConfidenceInterval)
	}
	metrics := result.SpecificMetrics.(domain.ImageMetrics)
	if metrics.PixelConsistency != 93 || metrics.ArtifactDetection != 8 {
		t.Fatalf("expected verified baselines, got %+v", metrics)
	}

	ApplyCaptureOverride(nil)
}

func TestConfidenceIntervalRoundsHalfUp(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{confidence: 80, want: "72%-88%"},
		{confidence: 80.5, want: "73%-89%"},
		{confidence: 80.49, want: "72%-88%"},
		{confidence: 60.2, want: "52%-68%"},
	}
	for _, tt := range tests {
		if got := domain.ConfidenceInterval(tt.confidence); got != tt.want {
			t.Fatalf("ConfidenceInterval(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}
