package tts

import (
	"strings"

	"github.com/Anning01/playlet-clip/pkg/srt"
)

const clauseBreaks = "，。！？、；：,.!?;:"

func isClauseBreak(r rune) bool {
	return strings.ContainsRune(clauseBreaks, r)
}

// SplitText breaks narration text into subtitle-sized lines: first at
// clause punctuation (the punctuation stays with its clause), then any
// line still longer than maxChars is chopped into maxChars runs.
// maxChars counts runes, not bytes.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 15
	}

	var clauses []string
	var current []rune
	for _, r := range text {
		if !isClauseBreak(r) && len(current) > 0 && isClauseBreak(current[len(current)-1]) {
			clauses = append(clauses, string(current))
			current = nil
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		clauses = append(clauses, string(current))
	}

	var lines []string
	for _, clause := range clauses {
		runes := []rune(clause)
		if len(runes) <= maxChars {
			lines = append(lines, clause)
			continue
		}
		for i := 0; i < len(runes); i += maxChars {
			end := i + maxChars
			if end > len(runes) {
				end = len(runes)
			}
			lines = append(lines, string(runes[i:end]))
		}
	}
	return lines
}

// GenerateSubtitles distributes the spoken text over the audio duration
// proportionally to line length and returns the timed subtitle file.
func GenerateSubtitles(text string, totalDuration float64, maxChars int) *srt.File {
	lines := SplitText(text, maxChars)

	totalChars := 0
	for _, line := range lines {
		totalChars += len([]rune(line))
	}
	charsPerSecond := 5.0
	if totalDuration > 0 && totalChars > 0 {
		charsPerSecond = float64(totalChars) / totalDuration
	}

	file := &srt.File{}
	cursor := 0.0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		end := cursor + float64(len([]rune(line)))/charsPerSecond
		if end > totalDuration {
			end = totalDuration
		}
		file.Append(cursor, end, trimmed)
		cursor = end
	}
	return file
}

// WriteSubtitles renders the timed subtitles for a synthesized clip to
// an SRT file.
func WriteSubtitles(text string, totalDuration float64, maxChars int, path string) error {
	return GenerateSubtitles(text, totalDuration, maxChars).Save(path)
}
