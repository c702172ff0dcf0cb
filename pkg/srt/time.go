package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatError indicates a malformed SRT timestamp or time range.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Input, e.Reason)
}

// ParseTimestamp converts an SRT timestamp ("HH:MM:SS,mmm") to seconds.
// Both comma and dot are accepted as the millisecond separator.
func ParseTimestamp(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 3 {
		return 0, &FormatError{Input: s, Reason: "expected HH:MM:SS,mmm"}
	}

	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "non-numeric hours"}
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "non-numeric minutes"}
	}

	secPart := strings.Replace(strings.TrimSpace(parts[2]), ",", ".", 1)
	seconds, err := strconv.ParseFloat(secPart, 64)
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "non-numeric seconds"}
	}

	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, &FormatError{Input: s, Reason: "negative time component"}
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// FormatTimestamp converts seconds to the SRT timestamp form
// "HH:MM:SS,mmm". Negative input is clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	total := int64(math.Round(seconds * 1000))
	hours := total / 3600000
	minutes := (total % 3600000) / 60000
	secs := (total % 60000) / 1000
	millis := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseRange parses a time range of the form
// "00:00:00,000 --> 00:00:03,000" into start and end seconds.
func ParseRange(s string) (float64, float64, error) {
	parts := strings.Split(s, "-->")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Input: s, Reason: "expected \"start --> end\""}
	}

	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}

	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// FormatRange renders start and end seconds as an SRT time range.
func FormatRange(start, end float64) string {
	return fmt.Sprintf("%s --> %s", FormatTimestamp(start), FormatTimestamp(end))
}
