package usecase

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

var allowedMIME = map[domain.MediaKind]map[string]bool{
	domain.MediaImage: {
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
	domain.MediaVideo: {
		"video/mp4":       true,
		"video/webm":      true,
		"video/quicktime": true,
		"video/x-msvideo": true,
	},
	domain.MediaAudio: {
		"audio/mpeg":  true,
		"audio/wav":   true,
		"audio/x-wav": true,
		"audio/ogg":   true,
		"audio/webm":  true,
		"audio/mp4":   true,
		"audio/aac":   true,
		"audio/flac":  true,
	},
}

var captureExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// mimeAliases maps alternate spellings, including the names
// http.DetectContentType reports, onto the allowlist entries.
var mimeAliases = map[string]string{
	"audio/wave":      "audio/wav",
	"audio/vnd.wave":  "audio/wav",
	"audio/mp3":       "audio/mpeg",
	"application/ogg": "audio/ogg",
	"video/avi":       "video/x-msvideo",
	"video/msvideo":   "video/x-msvideo",
}

// Containers the sniffer only knows as video.
var audioContainers = map[string]string{
	"video/webm": "audio/webm",
	"video/mp4":  "audio/mp4",
}

// normalizeMIME strips parameters and folds known aliases onto the
// allowlist spelling.
func normalizeMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = strings.ToLower(raw)
	}
	if alias, ok := mimeAliases[mediaType]; ok {
		return alias
	}
	return mediaType
}

func untypedMIME(mimeType string) bool {
	return mimeType == "" || mimeType == "application/octet-stream"
}

// sniffMIME detects the media type from content. A declared audio kind
// takes the audio spelling of webm and mp4 containers.
func sniffMIME(kind domain.MediaKind, data []byte) string {
	mimeType := normalizeMIME(http.DetectContentType(data))
	if kind == domain.MediaAudio {
		if audio, ok := audioContainers[mimeType]; ok {
			return audio
		}
	}
	return mimeType
}

// resolveKind checks the declared kind against the MIME allowlist. An empty
// kind is inferred from the MIME type's top-level type.
func resolveKind(kind domain.MediaKind, mimeType string) (domain.MediaKind, error) {
	if kind == "" {
		top, _, _ := strings.Cut(mimeType, "/")
		parsed, err := domain.ParseMediaKind(top)
		if err != nil {
			return "", domain.WrapError(domain.ErrUnsupportedMedia, "resolve media kind", fmt.Errorf("mime type %q", mimeType))
		}
		kind = parsed
	}
	allowed, ok := allowedMIME[kind]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve media kind", fmt.Errorf("unknown media kind %q", kind))
	}
	if !allowed[mimeType] {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "resolve media kind", fmt.Errorf("%s is not accepted for %s", mimeType, kind))
	}
	return kind, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return defaultFileName
	}
	return base
}
