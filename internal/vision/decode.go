package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// StripJSONFences removes the markdown fences models like to wrap JSON in.
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeRawExtraction unmarshals validated model output into the loosely
// typed extraction the pipeline works on.
func DecodeRawExtraction(data []byte) (*entity.RawExtraction, error) {
	var raw entity.RawExtraction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	return &raw, nil
}
