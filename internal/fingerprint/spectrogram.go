package fingerprint

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
	"github.com/mjibson/go-dsp/fft"
)

// Defaults
const (
	DefaultFFTSize   = 2048
	DefaultHopLength = 512
	DefaultDBFloor   = -80.0

	// floor for log10 to avoid log(0)
	magnitudeEpsilon = 1e-10
)

// ErrInputTooShort is returned when the signal has fewer samples than one
// FFT window.
var ErrInputTooShort = errors.New("signal shorter than FFT size")

// WindowFunc builds an analysis window of length n.
type WindowFunc func(n int) []float64

// Hann returns a raised-cosine window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 0.5
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Hamming returns a Hamming window of length n. Kept as an alternative
// window for experiments; Hann is the default.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Engine converts a normalized mono signal into a dB magnitude
// spectrogram. It holds only analysis parameters; Compute is a pure
// function of its inputs and safe for concurrent use.
type Engine struct {
	FFTSize   int
	HopLength int
	Window    WindowFunc
	DBFloor   float64
}

// NewEngine returns an Engine with zero-valued fields replaced by the
// package defaults.
func NewEngine(fftSize, hopLength int, window WindowFunc, dbFloor float64) *Engine {
	if fftSize == 0 {
		fftSize = DefaultFFTSize
	}
	if hopLength == 0 {
		hopLength = DefaultHopLength
	}
	if window == nil {
		window = Hann
	}
	if dbFloor == 0 {
		dbFloor = DefaultDBFloor
	}
	return &Engine{FFTSize: fftSize, HopLength: hopLength, Window: window, DBFloor: dbFloor}
}

// Compute runs a short-time FFT over the signal and returns the
// frequency-major dB spectrogram with its frequency and time axes.
func (e *Engine) Compute(signal []float64, sampleRate int) (*models.Spectrogram, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(signal) < e.FFTSize {
		return nil, fmt.Errorf("%w: %d samples, FFT size %d", ErrInputTooShort, len(signal), e.FFTSize)
	}

	numFrames := 1 + (len(signal)-e.FFTSize)/e.HopLength
	numBins := e.FFTSize/2 + 1
	window := e.Window(e.FFTSize)

	db := make([][]float64, numBins)
	for b := range db {
		db[b] = make([]float64, numFrames)
	}

	frame := make([]float64, e.FFTSize)
	for t := 0; t < numFrames; t++ {
		start := t * e.HopLength
		end := start + e.FFTSize
		if end > len(signal) {
			end = len(signal)
		}

		// zero-pad short slices to a full window before windowing
		n := copy(frame, signal[start:end])
		for i := n; i < e.FFTSize; i++ {
			frame[i] = 0
		}
		for i := range frame {
			frame[i] *= window[i]
		}

		spectrum := fft.FFTReal(frame)
		for b := 0; b < numBins; b++ {
			mag := cmplx.Abs(spectrum[b])
			v := 20 * math.Log10(mag+magnitudeEpsilon)
			if v < e.DBFloor {
				v = e.DBFloor
			}
			db[b][t] = v
		}
	}

	freqs := make([]float64, numBins)
	for b := range freqs {
		freqs[b] = float64(b) * float64(sampleRate) / float64(e.FFTSize)
	}
	times := make([]float64, numFrames)
	for t := range times {
		times[t] = float64(t) * float64(e.HopLength) / float64(sampleRate)
	}

	return &models.Spectrogram{DB: db, Freqs: freqs, Times: times}, nil
}
