package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ReadWAV reads a PCM WAV file and returns mono samples normalized to
// [-1, 1] plus the sample rate. Stereo input is downmixed by averaging
// the channels.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty WAV data")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	numChans := buf.Format.NumChannels
	switch numChans {
	case 1:
		samples := make([]float64, len(buf.Data))
		for i, v := range buf.Data {
			samples[i] = float64(v) * scale
		}
		return samples, int(dec.SampleRate), nil
	case 2:
		frames := len(buf.Data) / 2
		samples := make([]float64, frames)
		for i := 0; i < frames; i++ {
			l := float64(buf.Data[2*i]) * scale
			r := float64(buf.Data[2*i+1]) * scale
			samples[i] = (l + r) * 0.5
		}
		return samples, int(dec.SampleRate), nil
	default:
		return nil, 0, fmt.Errorf("unsupported channel count %d", numChans)
	}
}
