package narration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/internal/llm"
	"github.com/Anning01/playlet-clip/pkg/srt"
)

// scriptedClient replays canned replies and records every conversation
// it was called with.
type scriptedClient struct {
	replies []string
	errs    []error
	calls   [][]llm.Message
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.calls = append(c.calls, snapshot)

	i := len(c.calls) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", errors.New("scripted client exhausted")
}

func testSubtitles() *srt.File {
	f := &srt.File{}
	f.Append(0, 3.5, "He walked into the room.")
	f.Append(4, 8, "Nobody recognized him at first.")
	f.Append(10, 14, "Then the lights went out.")
	return f
}

const validScript = `[
  {"type": "narration", "content": "Watch this man carefully.", "time": "00:00:00,000 --> 00:00:04,000"},
  {"type": "video", "time": "00:00:04,000 --> 00:00:15,000"}
]`

func TestGenerate(t *testing.T) {
	client := &scriptedClient{replies: []string{"Here is the script:\n" + validScript}}
	gen := NewGenerator(client, Options{}, nil)

	segments, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "suspense", "")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "Watch this man carefully.", segments[0].Content)
	assert.True(t, segments[0].IsNarration())
	assert.False(t, segments[1].IsNarration())
	assert.InDelta(t, 15.0, segments[1].EndTime, 0.001)

	require.Len(t, client.calls, 1)
	first := client.calls[0]
	require.Len(t, first, 2)
	assert.Equal(t, llm.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, "00:00:15,000")
	assert.Contains(t, first[0].Content, "Nobody recognized him at first.")
	assert.Equal(t, llm.RoleUser, first[1].Role)
	assert.Contains(t, first[1].Content, "suspense")
}

func TestGenerateRetriesWithFeedback(t *testing.T) {
	// First reply overlaps beyond tolerance, second is clean. The retry
	// conversation must carry the bad reply and a correction request.
	invalid := `[
  {"type": "narration", "content": "Opening hook.", "time": "00:00:00,000 --> 00:00:08,000"},
  {"type": "video", "time": "00:00:02,000 --> 00:00:15,000"}
]`
	client := &scriptedClient{replies: []string{invalid, validScript}}
	gen := NewGenerator(client, Options{MaxRetries: 3}, nil)

	segments, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "warm", "")
	require.NoError(t, err)
	assert.Len(t, segments, 2)

	require.Len(t, client.calls, 2)
	second := client.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, invalid, second[2].Content)
	assert.Equal(t, llm.RoleUser, second[3].Role)
	assert.Contains(t, second[3].Content, "Validation failed")
	assert.Contains(t, second[3].Content, "overlaps")
}

func TestGenerateExhaustsRetries(t *testing.T) {
	client := &scriptedClient{replies: []string{"no json here", "still nothing", "sorry"}}
	gen := NewGenerator(client, Options{MaxRetries: 3}, nil)

	_, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "sarcastic", "")
	require.Error(t, err)
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Contains(t, llmErr.Message, "after 3 attempts")
	assert.Len(t, client.calls, 3)
}

func TestGenerateRetriesTransportErrors(t *testing.T) {
	client := &scriptedClient{
		replies: []string{"", validScript},
		errs:    []error{errors.New("connection reset"), nil},
	}
	gen := NewGenerator(client, Options{MaxRetries: 3}, nil)

	segments, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "warm", "")
	require.NoError(t, err)
	assert.Len(t, segments, 2)

	// Transport failures retry with the unchanged conversation.
	require.Len(t, client.calls, 2)
	assert.Len(t, client.calls[1], 2)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{replies: []string{validScript}}
	gen := NewGenerator(client, Options{}, nil)

	_, err := gen.Generate(ctx, testSubtitles(), 15.0, "warm", "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.calls)
}

func TestGenerateCustomTemplate(t *testing.T) {
	client := &scriptedClient{replies: []string{validScript}}
	gen := NewGenerator(client, Options{}, nil)

	_, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "warm", "You are a pirate narrator.")
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0][0].Content, "pirate narrator")
	assert.NotContains(t, client.calls[0][0].Content, "Film clip narration assistant")
}

func TestGenerateReportsProgress(t *testing.T) {
	client := &scriptedClient{replies: []string{validScript}}
	gen := NewGenerator(client, Options{}, nil)

	var messages []string
	gen.Progress = func(pct float64, message string) {
		messages = append(messages, message)
	}

	_, err := gen.Generate(context.Background(), testSubtitles(), 15.0, "warm", "")
	require.NoError(t, err)
	assert.NotEmpty(t, messages)
	assert.Contains(t, messages[len(messages)-1], "validated")
}
