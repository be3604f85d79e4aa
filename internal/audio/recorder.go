package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// FFmpegRecorder captures audio from a system input device via ffmpeg and
// writes a mono 16-bit PCM WAV to TempDir. A recording is handled
// downstream exactly like a decoded file.
type FFmpegRecorder struct {
	Backend    string // ffmpeg input backend, e.g. "pulse", "alsa", "avfoundation"
	Device     string // device name understood by the backend
	SampleRate int
	TempDir    string
}

func NewFFmpegRecorder(tempDir string, sampleRate int) *FFmpegRecorder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpegRecorder{
		Backend:    defaultBackend(),
		Device:     "default",
		SampleRate: sampleRate,
		TempDir:    tempDir,
	}
}

func defaultBackend() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

// Record captures for the given duration and returns the path to the
// recorded WAV file. The caller owns the file.
func (r *FFmpegRecorder) Record(ctx context.Context, duration time.Duration) (string, error) {
	if duration <= 0 {
		return "", fmt.Errorf("invalid recording duration %v", duration)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration+30*time.Second)
		defer cancel()
	}

	if err := os.MkdirAll(r.TempDir, 0o755); err != nil {
		return "", err
	}

	outputPath := filepath.Join(r.TempDir, uuid.NewString()+".wav")

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-f", r.Backend,
		"-i", r.Device,
		"-t", fmt.Sprintf("%.1f", duration.Seconds()),
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", r.SampleRate),
		"-c:a", "pcm_s16le",
		outputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg capture failed: %v (%s)", err, out)
	}

	return outputPath, nil
}
