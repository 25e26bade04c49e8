// Package media fingerprints uploaded payloads. Inspection never fails: fields
// that cannot be extracted are left empty.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/bep/imagemeta"
	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

// maxHashPixels bounds the decode done for perceptual hashing.
const maxHashPixels = 40_000_000

type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(data []byte, mimeType string) domain.MediaInfo {
	sum := sha256.Sum256(data)
	info := domain.MediaInfo{
		SizeBytes: int64(len(data)),
		SHA256:    hex.EncodeToString(sum[:]),
	}
	if len(data) == 0 || !strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return info
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height

	if cfg.Width*cfg.Height <= maxHashPixels {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			if hash, err := goimagehash.PerceptionHash(img); err == nil {
				info.PerceptualHash = hash.ToString()
			}
		}
	}

	extractCamera(data, &info)
	return info
}

var cameraTags = map[string]bool{
	"Make":     true,
	"Model":    true,
	"Software": true,
}

func extractCamera(data []byte, info *domain.MediaInfo) {
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return cameraTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			value := strings.TrimSpace(tagString(ti.Value))
			switch ti.Tag {
			case "Make":
				info.CameraMake = value
			case "Model":
				info.CameraModel = value
			case "Software":
				info.Software = value
			}
			return nil
		},
	})
}

func tagString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(bytes.TrimRight(val, "\x00"))
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
