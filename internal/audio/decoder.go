package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const DefaultSampleRate = 22050

// FFmpegDecoder converts any format ffmpeg understands to mono 16-bit PCM
// at a target rate, then reads the result natively. Conversion artifacts
// live in TempDir under uuid names so concurrent decodes never collide.
type FFmpegDecoder struct {
	TempDir string
}

func NewFFmpegDecoder(tempDir string) *FFmpegDecoder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegDecoder{TempDir: tempDir}
}

// Decode returns normalized mono samples in [-1, 1] and the actual sample
// rate.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string, targetRate int) ([]float64, int, error) {
	if targetRate == 0 {
		targetRate = DefaultSampleRate
	}

	wavPath, err := d.convertToMonoWAV(ctx, path, targetRate)
	if err != nil {
		return nil, 0, err
	}
	defer os.Remove(wavPath)

	return ReadWAV(wavPath)
}

func (d *FFmpegDecoder) convertToMonoWAV(ctx context.Context, inputPath string, sampleRate int) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	if err := os.MkdirAll(d.TempDir, 0o755); err != nil {
		return "", err
	}

	outputPath := filepath.Join(d.TempDir, uuid.NewString()+".wav")

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-c:a", "pcm_s16le",
		outputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed for %s: %v (%s)", inputPath, err, out)
	}

	return outputPath, nil
}
