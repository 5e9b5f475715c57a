package composer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// frameDuration is how long each still is held in the encoded clip
//.
const frameDuration = 1 * time.Second

// EncodeVideo concatenates the annotated frame sequence (already written
// to framePaths, in order) into an MP4 at outPath via ffmpeg, holding each
// frame for frameDuration. Grounded on the same exec.Command("ffmpeg",
// ...) invocation shape used for snapshot capture, adapted from a single
// RTSP grab to a concat-demuxer encode.
func EncodeVideo(ctx context.Context, framePaths []string, outPath string) error {
	if len(framePaths) == 0 {
		return fmt.Errorf("composer: no frames to encode")
	}

	listFile, err := os.CreateTemp("", "composer-concat-*.txt")
	if err != nil {
		return fmt.Errorf("composer: create concat list: %w", err)
	}
	defer os.Remove(listFile.Name())

	for _, p := range framePaths {
		fmt.Fprintf(listFile, "file '%s'\nduration %f\n", p, frameDuration.Seconds())
	}
	// ffmpeg's concat demuxer requires the last listed file to repeat
	// without a duration to avoid being truncated.
	fmt.Fprintf(listFile, "file '%s'\n", framePaths[len(framePaths)-1])
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("composer: close concat list: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-vsync", "vfr",
		"-pix_fmt", "yuv420p",
		outPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("composer: ffmpeg encode failed: %w", err)
	}
	return nil
}
