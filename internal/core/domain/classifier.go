package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ClassifierFeatures struct {
	ArtificialPatterns float64 `json:"artificialPatterns"`
	NaturalFeatures    float64 `json:"naturalFeatures"`
	TextureConsistency float64 `json:"textureConsistency"`
	Lighting           float64 `json:"lighting"`
}

// ClassifierOutput is the soft signal fed into scoring. Zero value means "no signal".
type ClassifierOutput struct {
	IsDeepfake bool               `json:"isDeepfake"`
	Confidence float64            `json:"confidence"`
	Features   ClassifierFeatures `json:"features"`
}

func (o ClassifierOutput) HasSignal() bool {
	return o.Confidence > 0
}

// Label is the top prediction of a single-label image classifier. Score is in [0,1].
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// ParseLabel reads a {"label","score"} object out of a model reply. Percent
// scores in (1,100] are rescaled to [0,1].
func ParseLabel(raw string) (Label, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var label Label
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		return Label{}, fmt.Errorf("parse label json: %w", err)
	}
	label.Name = strings.ToLower(strings.TrimSpace(label.Name))
	if label.Score > 1 && label.Score <= 100 {
		label.Score /= 100
	}
	if label.Name == "" || label.Score < 0 || label.Score > 1 {
		return Label{}, WrapError(ErrInvalidInput, "parse label", fmt.Errorf("unusable label %q score %v", label.Name, label.Score))
	}
	return label, nil
}
