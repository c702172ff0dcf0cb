package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Anning01/playlet-clip/internal/config"
)

// concatFilter builds the filter graph joining n clips:
// [0:v][0:a][1:v][1:a]...concat=n=N:v=1:a=1[outv][outa]
func concatFilter(n int) string {
	var inputs strings.Builder
	for i := 0; i < n; i++ {
		inputs.WriteString(fmt.Sprintf("[%d:v][%d:a]", i, i))
	}
	return fmt.Sprintf("%sconcat=n=%d:v=1:a=1[outv][outa]", inputs.String(), n)
}

// concatArgs builds the argument list for filter-graph concatenation.
func concatArgs(inputs []string, outputPath string, cfg config.VideoConfig) []string {
	args := []string{"-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}
	return append(args,
		"-filter_complex", concatFilter(len(inputs)),
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", cfg.VideoCodec,
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-c:a", cfg.AudioCodec,
		"-b:a", cfg.AudioBitrate,
		"-ar", strconv.Itoa(cfg.AudioSampleRate),
		"-ac", "2",
		"-movflags", "+faststart",
		outputPath,
	)
}

// partialPath puts a marker before the extension so ffmpeg still picks
// the muxer from it.
func partialPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + ".partial" + ext
}

// Concat joins clips into outputPath through the concat filter. The
// filter re-encodes; the concat demuxer with stream copy is avoided
// because it carries the clips' timestamps over and they drift audibly
// at the joins. A single input is copied as a plain file. The result
// is written to a sibling temp file and renamed into place, so a
// failed encode never leaves a truncated file at outputPath.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, outputPath string, cfg config.VideoConfig) error {
	if len(inputs) == 0 {
		return &ProcessingError{Op: "video concatenation", Err: fmt.Errorf("no videos to concatenate")}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &ProcessingError{Op: "video concatenation", Err: err}
	}

	tmpPath := partialPath(outputPath)
	if len(inputs) == 1 {
		if err := copyFile(inputs[0], tmpPath); err != nil {
			os.Remove(tmpPath)
			return &ProcessingError{Op: "video concatenation", Err: err}
		}
	} else if err := f.run(ctx, "video concatenation", concatArgs(inputs, tmpPath, withDefaults(cfg))); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return &ProcessingError{Op: "video concatenation", Err: err}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
