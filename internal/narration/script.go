package narration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Anning01/playlet-clip/pkg/models"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// scriptEntry is the wire shape of one segment in the model's reply and
// in the persisted narration script.
type scriptEntry struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Time    string `json:"time"`
}

// ParseScript extracts the first JSON array from a model reply and maps
// it to narration segments. Replies often wrap the array in prose or
// markdown fences, so everything outside the outermost brackets is
// ignored. Parse failures are ValidationErrors so the generator can ask
// the model to correct itself.
func ParseScript(reply string) ([]models.NarrationSegment, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, &ValidationError{Index: -1, Reason: "no JSON array found in response"}
	}

	var entries []scriptEntry
	if err := json.Unmarshal([]byte(reply[start:end+1]), &entries); err != nil {
		return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	segments := make([]models.NarrationSegment, 0, len(entries))
	for i, entry := range entries {
		startTime, endTime, err := srt.ParseRange(entry.Time)
		if err != nil {
			return nil, &ValidationError{Index: i, Reason: fmt.Sprintf("invalid time range %q: %v", entry.Time, err)}
		}
		segments = append(segments, models.NarrationSegment{
			Kind:      models.SegmentKind(entry.Type),
			Content:   entry.Content,
			StartTime: startTime,
			EndTime:   endTime,
		})
	}
	return segments, nil
}

// WriteScript persists segments as a JSON script file, the same shape
// the model produces. The file is a debugging artifact: it shows what
// was generated before audio lengths stretched any end times.
func WriteScript(segments []models.NarrationSegment, path string) error {
	entries := make([]scriptEntry, 0, len(segments))
	for _, seg := range segments {
		entries = append(entries, scriptEntry{
			Type:    string(seg.Kind),
			Content: seg.Content,
			Time:    seg.TimeRange(),
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode script: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

// ReadScript loads a script file written by WriteScript.
func ReadScript(path string) ([]models.NarrationSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(string(data))
}
