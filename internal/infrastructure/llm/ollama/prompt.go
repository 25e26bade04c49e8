package ollama

import "strings"

func buildLabelPrompt(mimeType string) string {
	format := strings.TrimPrefix(strings.TrimSpace(mimeType), "image/")
	if format == "" {
		format = "unknown"
	}

	return `You are a general-purpose image classifier.
Name the single most likely class of the attached image (format: ` + format + `).
Return strict JSON object with keys:
label (string, short lowercase class name), score (number from 0 to 1, probability of that class).
No markdown, no extra keys.`
}
