package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	hpaudio "github.com/Programmer-5090/hocuspocus/internal/audio"
)

var (
	inputDir  string
	outputDir string
	width     int
	height    int
)

func init() {
	flag.StringVar(&inputDir, "in", "testdata", "Directory containing WAV files")
	flag.StringVar(&outputDir, "out", "spectrograms", "Directory to write PNG files")
	flag.IntVar(&width, "width", 2048, "Output image width in pixels")
	flag.IntVar(&height, "height", 512, "Output image height in pixels (frequency bins)")
}

func main() {
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatal(err)
	}

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".wav" {
			return nil
		}

		fmt.Printf("Processing %s...\n", path)

		samples, sampleRate, err := hpaudio.ReadWAV(path)
		if err != nil {
			log.Printf("Error reading %s: %v", path, err)
			return nil
		}
		if len(samples) == 0 {
			log.Printf("No samples in %s", path)
			return nil
		}

		fmt.Printf("Read %d samples at %d Hz\n", len(samples), sampleRate)

		img := spectrogram.NewImage128(image.Rect(0, 0, width, height))

		// Black background
		black := spectrogram.ParseColor("000000")
		draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

		// RECTANGLE: false = use Hamming window
		// DFT: false = use FFT (faster)
		// MAG: true = magnitude
		// LOG10: false = linear scale
		spectrogram.Drawfft(
			img,
			samples,
			uint32(sampleRate),
			uint32(height),
			false,
			false,
			true,
			false,
		)

		baseName := filepath.Base(path)
		outputPath := filepath.Join(outputDir, baseName+".png")

		if err := spectrogram.SavePng(img, outputPath); err != nil {
			log.Printf("Error saving PNG for %s: %v", outputPath, err)
			return nil
		}

		fmt.Printf("Saved spectrogram to %s\n", outputPath)
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Done!")
}
