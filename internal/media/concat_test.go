package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/internal/config"
)

func TestConcatFilter(t *testing.T) {
	assert.Equal(t, "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[outv][outa]", concatFilter(2))
	assert.Equal(t, "[0:v][0:a][1:v][1:a][2:v][2:a]concat=n=3:v=1:a=1[outv][outa]", concatFilter(3))
}

func TestConcatArgs(t *testing.T) {
	args := concatArgs([]string{"a.mp4", "b.mp4"}, "out.mp4", config.DefaultVideoConfig())
	assert.Equal(t, []string{
		"-y",
		"-i", "a.mp4",
		"-i", "b.mp4",
		"-filter_complex", "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[outv][outa]",
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "24000",
		"-ac", "2",
		"-movflags", "+faststart",
		"out.mp4",
	}, args)
}

func TestConcatSingleInputCopies(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "only.mp4")
	require.NoError(t, os.WriteFile(input, []byte("clip-bytes"), 0o644))

	f := NewFFmpeg(config.VideoConfig{}, nil)
	output := filepath.Join(dir, "final", "out.mp4")
	require.NoError(t, f.Concat(context.Background(), []string{input}, output, config.VideoConfig{}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "clip-bytes", string(data))
}

func TestPartialPath(t *testing.T) {
	assert.Equal(t, "/out/final.partial.mp4", partialPath("/out/final.mp4"))
}

// fakeEncoder writes a shell script standing in for ffmpeg.
func fakeEncoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestConcatRenamesCompletedOutput(t *testing.T) {
	script := `#!/bin/sh
for last; do :; done
printf 'joined' > "$last"
`
	f := NewFFmpeg(config.VideoConfig{FFmpegPath: fakeEncoder(t, script)}, nil)

	output := filepath.Join(t.TempDir(), "out", "final.mp4")
	require.NoError(t, f.Concat(context.Background(), []string{"a.mp4", "b.mp4"}, output, config.DefaultVideoConfig()))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "joined", string(data))

	_, err = os.Stat(partialPath(output))
	assert.True(t, os.IsNotExist(err), "temp file must be gone after the rename")
}

func TestConcatFailureLeavesNoOutput(t *testing.T) {
	script := `#!/bin/sh
for last; do :; done
printf 'truncated' > "$last"
echo "encode failed" >&2
exit 1
`
	f := NewFFmpeg(config.VideoConfig{FFmpegPath: fakeEncoder(t, script)}, nil)

	output := filepath.Join(t.TempDir(), "out", "final.mp4")
	err := f.Concat(context.Background(), []string{"a.mp4", "b.mp4"}, output, config.DefaultVideoConfig())
	require.Error(t, err)
	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Stderr, "encode failed")

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err), "a failed encode must not leave a file at the output path")
	_, err = os.Stat(partialPath(output))
	assert.True(t, os.IsNotExist(err))
}

func TestConcatNoInputs(t *testing.T) {
	f := NewFFmpeg(config.VideoConfig{}, nil)
	err := f.Concat(context.Background(), nil, filepath.Join(t.TempDir(), "out.mp4"), config.VideoConfig{})
	require.Error(t, err)
	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Error(), "no videos")
}
