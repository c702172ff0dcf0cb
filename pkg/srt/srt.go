// Package srt provides SRT subtitle parsing, generation and timestamp
// conversion shared by the transcription, narration and assembly layers.
package srt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var timePattern = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`,
)

var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// Segment is a single subtitle cue.
type Segment struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

// Duration returns the cue length in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Block renders the cue as one SRT block, trailing newline included.
func (s Segment) Block() string {
	return fmt.Sprintf("%d\n%s\n%s\n", s.Index, FormatRange(s.StartTime, s.EndTime), s.Text)
}

// File is an ordered collection of subtitle cues.
type File struct {
	Segments []Segment `json:"segments"`
}

// TotalDuration returns the largest end time over all cues.
func (f *File) TotalDuration() float64 {
	var max float64
	for _, seg := range f.Segments {
		if seg.EndTime > max {
			max = seg.EndTime
		}
	}
	return max
}

// Render serializes the file to SRT text.
func (f *File) Render() string {
	var b strings.Builder
	for i, seg := range f.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(seg.Block())
	}
	return b.String()
}

// Append adds a cue and assigns it the next 1-based index.
func (f *File) Append(start, end float64, text string) {
	f.Segments = append(f.Segments, Segment{
		Index:     len(f.Segments) + 1,
		StartTime: start,
		EndTime:   end,
		Text:      text,
	})
}

// Parse reads SRT text into a File. Blocks without a recognizable time
// line or without text are skipped; surviving cues are re-indexed 1..n.
func Parse(content string) *File {
	content = strings.TrimPrefix(content, "﻿")

	file := &File{}
	for _, block := range blockSeparator.Split(strings.TrimSpace(content), -1) {
		seg, ok := parseBlock(block)
		if !ok {
			continue
		}
		file.Segments = append(file.Segments, seg)
	}

	for i := range file.Segments {
		file.Segments[i].Index = i + 1
	}
	return file
}

func parseBlock(block string) (Segment, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return Segment{}, false
	}

	timeLine := -1
	for i, line := range lines {
		if timePattern.MatchString(line) {
			timeLine = i
			break
		}
	}
	if timeLine == -1 {
		return Segment{}, false
	}

	m := timePattern.FindStringSubmatch(lines[timeLine])
	start := clockSeconds(m[1], m[2], m[3], m[4])
	end := clockSeconds(m[5], m[6], m[7], m[8])

	var textLines []string
	for _, line := range lines[timeLine+1:] {
		if t := strings.TrimSpace(line); t != "" {
			textLines = append(textLines, t)
		}
	}
	if len(textLines) == 0 {
		return Segment{}, false
	}

	index := 1
	if timeLine > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(lines[timeLine-1])); err == nil {
			index = n
		}
	}

	return Segment{
		Index:     index,
		StartTime: start,
		EndTime:   end,
		Text:      strings.Join(textLines, "\n"),
	}, true
}

func clockSeconds(hh, mm, ss, mmm string) float64 {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	ms, _ := strconv.Atoi(mmm)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}

// Load parses an SRT file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return Parse(string(data)), nil
}

// Save writes the file as SRT text, creating parent directories.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(f.Render()), 0o644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}
