package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, data []int, numChans, sampleRate, bitDepth int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Creating WAV file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, numChans, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChans, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Writing WAV data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Closing WAV encoder: %v", err)
	}
}

func TestReadWAVMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")

	// 16-bit full scale is 32768; half scale is 16384
	data := []int{0, 16384, -16384, 32767, -32768}
	writeTestWAV(t, path, data, 1, 22050, 16)

	samples, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}

	if rate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", rate)
	}
	if len(samples) != len(data) {
		t.Fatalf("Expected %d samples, got %d", len(data), len(samples))
	}

	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("Sample %d: expected %f, got %f", i, want[i], samples[i])
		}
	}
}

func TestReadWAVStereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// Interleaved L/R pairs
	data := []int{16384, -16384, 16384, 16384, 0, 32767}
	writeTestWAV(t, path, data, 2, 44100, 16)

	samples, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}

	if rate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", rate)
	}
	if len(samples) != 3 {
		t.Fatalf("Expected 3 downmixed frames, got %d", len(samples))
	}

	want := []float64{0, 0.5, 0.5 * 32767.0 / 32768.0}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("Frame %d: expected %f, got %f", i, want[i], samples[i])
		}
	}
}

func TestReadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("this is not a wav file"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReadWAV(path); err == nil {
		t.Error("Expected error for invalid WAV file")
	}

	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}
