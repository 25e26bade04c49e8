// Package classifier wraps a single-label image classifier into the soft
// signal used by scoring. It never propagates errors to its callers.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

const deepfakeThreshold = 60.0

// Factory constructs the underlying labeler on first use.
type Factory func(ctx context.Context) (ports.ImageLabeler, error)

type FallbackPolicy string

const (
	// FallbackNeutral reports no signal when the classifier is unavailable.
	FallbackNeutral FallbackPolicy = "neutral"
	// FallbackLegacy trusts webcam input and flags everything else.
	FallbackLegacy FallbackPolicy = "legacy"
)

func ParseFallbackPolicy(raw string) FallbackPolicy {
	if FallbackPolicy(strings.ToLower(strings.TrimSpace(raw))) == FallbackLegacy {
		return FallbackLegacy
	}
	return FallbackNeutral
}

// Recorder receives one outcome per classification, e.g. for metrics.
type Recorder interface {
	RecordClassification(outcome string, duration time.Duration)
}

type Options struct {
	Backend  string
	Fallback FallbackPolicy
	CacheTTL time.Duration
	Timeout  time.Duration
	Recorder Recorder
	Logger   *slog.Logger
}

type Adapter struct {
	factory  Factory
	backend  string
	fallback FallbackPolicy
	timeout  time.Duration
	recorder Recorder
	logger   *slog.Logger
	cache    *gocache.Cache

	// initSlot serializes the lazy build. Waiters give up on their own ctx.
	initSlot chan struct{}
	labeler  ports.ImageLabeler
}

func New(factory Factory, opts Options) *Adapter {
	a := &Adapter{
		factory:  factory,
		backend:  opts.Backend,
		fallback: opts.Fallback,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		initSlot: make(chan struct{}, 1),
	}
	if a.backend == "" {
		a.backend = "unknown"
	}
	if a.fallback == "" {
		a.fallback = FallbackNeutral
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if opts.CacheTTL > 0 {
		a.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return a
}

func (a *Adapter) Classify(ctx context.Context, sample ports.MediaSample) domain.ClassifierOutput {
	start := time.Now()
	webcam := domain.WebcamLike(sample.FileName)

	key := cacheKey(sample.Data, webcam)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.record("cache_hit", start)
			return cached.(domain.ClassifierOutput)
		}
	}

	out, err := a.classify(ctx, sample, webcam)
	if err != nil {
		a.logger.Warn("classifier_fallback",
			"backend", a.backend,
			"policy", string(a.fallback),
			"file_name", sample.FileName,
			"error", err,
		)
		a.record("fallback", start)
		return a.fallbackOutput(webcam)
	}

	if a.cache != nil {
		a.cache.SetDefault(key, out)
	}
	a.record("success", start)
	return out
}

func (a *Adapter) classify(ctx context.Context, sample ports.MediaSample, webcam bool) (domain.ClassifierOutput, error) {
	if len(sample.Data) == 0 {
		return domain.ClassifierOutput{}, fmt.Errorf("empty payload")
	}
	sniffed := http.DetectContentType(sample.Data)
	if !strings.HasPrefix(sniffed, "image/") {
		return domain.ClassifierOutput{}, fmt.Errorf("payload is %s, not an image", sniffed)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	labeler, err := a.get(ctx)
	if err != nil {
		return domain.ClassifierOutput{}, err
	}
	label, err := labeler.Label(ctx, sample.Data, sniffed)
	if err != nil {
		return domain.ClassifierOutput{}, fmt.Errorf("label image: %w", err)
	}
	return FromLabel(label, webcam), nil
}

// get returns the cached labeler or builds it. Failed builds are not cached.
// The factory and warmup run while the init slot is held.
func (a *Adapter) get(ctx context.Context) (ports.ImageLabeler, error) {
	select {
	case a.initSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for classifier %s: %w", a.backend, ctx.Err())
	}
	defer func() { <-a.initSlot }()

	if a.labeler != nil {
		return a.labeler, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("classifier backend %s is disabled", a.backend)
	}
	labeler, err := a.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("init classifier %s: %w", a.backend, err)
	}
	if err := labeler.Warmup(ctx); err != nil {
		return nil, fmt.Errorf("warm up classifier %s: %w", a.backend, err)
	}
	a.labeler = labeler
	a.logger.Info("classifier_ready", "backend", a.backend)
	return labeler, nil
}

func (a *Adapter) fallbackOutput(webcam bool) domain.ClassifierOutput {
	if a.fallback != FallbackLegacy {
		return domain.ClassifierOutput{}
	}
	if webcam {
		return domain.ClassifierOutput{
			IsDeepfake: false,
			Confidence: 95,
			Features:   domain.ClassifierFeatures{ArtificialPatterns: 15, NaturalFeatures: 90, TextureConsistency: 92, Lighting: 88},
		}
	}
	return domain.ClassifierOutput{
		IsDeepfake: true,
		Confidence: 65,
		Features:   domain.ClassifierFeatures{ArtificialPatterns: 65, NaturalFeatures: 35, TextureConsistency: 60, Lighting: 55},
	}
}

func (a *Adapter) record(outcome string, start time.Time) {
	if a.recorder != nil {
		a.recorder.RecordClassification(outcome, time.Since(start))
	}
}

// FromLabel converts a top label into the scoring signal. Camera captures are
// never flagged regardless of score.
func FromLabel(label domain.Label, webcam bool) domain.ClassifierOutput {
	confidence := label.Score * 100
	isDeepfake := confidence > deepfakeThreshold && !webcam

	out := domain.ClassifierOutput{IsDeepfake: isDeepfake, Confidence: confidence}
	if isDeepfake {
		out.Features = domain.ClassifierFeatures{
			ArtificialPatterns: confidence,
			NaturalFeatures:    20,
			TextureConsistency: 45,
			Lighting:           50,
		}
		return out
	}
	out.Features = domain.ClassifierFeatures{
		ArtificialPatterns: 20,
		NaturalFeatures:    confidence,
		TextureConsistency: 85,
		Lighting:           80,
	}
	return out
}

func cacheKey(data []byte, webcam bool) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%t", hex.EncodeToString(sum[:]), webcam)
}
