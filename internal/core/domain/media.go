package domain

import (
	"fmt"
	"strings"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

func ParseMediaKind(raw string) (MediaKind, error) {
	switch kind := MediaKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case MediaImage, MediaVideo, MediaAudio:
		return kind, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse media kind", fmt.Errorf("unknown media kind %q", raw))
	}
}

// MediaInfo is the fingerprint collected at intake. It never influences scoring.
type MediaInfo struct {
	SizeBytes      int64  `json:"size_bytes"`
	SHA256         string `json:"sha256"`
	PerceptualHash string `json:"perceptual_hash,omitempty"`
	Format         string `json:"format,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	CameraMake     string `json:"camera_make,omitempty"`
	CameraModel    string `json:"camera_model,omitempty"`
	Software       string `json:"software,omitempty"`
}

// WebcamCapture reports whether a file name carries the camera-capture marker.
func WebcamCapture(fileName string) bool {
	return strings.Contains(fileName, "webcam-capture")
}

// WebcamLike is the looser match used by the classifier fallback.
func WebcamLike(fileName string) bool {
	return strings.Contains(fileName, "webcam")
}
