// Package mfcc computes mel-frequency cepstral coefficients and their time
// derivatives from mono PCM audio.
//
// The front-end reproduces the librosa defaults that accent classifiers are
// usually trained with, so features computed here line up with features
// computed at training time:
//
//	SampleRate:  16000
//	FFTSize:     2048 (periodic Hann window, centered frames, zero padding)
//	HopSize:     512
//	NumMels:     128  (Slaney mel scale, area normalised)
//	NumCoeffs:   20   (orthonormal DCT-II of the dB mel spectrogram)
//	TopDB:       80
//
// [Extractor.Extract] stacks the coefficients with their first and second
// derivatives and fits the result to a fixed [MaxFrames][3*NumCoeffs] matrix.
package mfcc

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrEmptyInput is returned by Extract when there are no samples.
var ErrEmptyInput = errors.New("mfcc: empty input")

// Config controls MFCC extraction parameters.
type Config struct {
	SampleRate  int     // audio sample rate in Hz (default 16000)
	FFTSize     int     // FFT and window length in samples (default 2048)
	HopSize     int     // hop length in samples (default 512)
	NumMels     int     // number of mel bands (default 128)
	NumCoeffs   int     // number of cepstral coefficients kept (default 20)
	FMin        float64 // lowest mel frequency (default 0)
	FMax        float64 // highest mel frequency (default SampleRate/2)
	TopDB       float64 // dynamic range below the peak, 0 disables (default 80)
	PreEmphasis float64 // pre-emphasis coefficient, 0 disables (default 0)
	DeltaWidth  int     // derivative window in frames (default 9)
	MaxFrames   int     // rows of the fitted matrix (default 157)
}

// DefaultConfig returns the configuration for 5 s clips at 16 kHz.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    128,
		NumCoeffs:  20,
		FMin:       0,
		FMax:       8000,
		TopDB:      80,
		DeltaWidth: 9,
		MaxFrames:  FramesFor(5, 16000, 512),
	}
}

// FramesFor returns the frame count of a centered analysis of a clip of the
// given duration: floor(seconds*sampleRate/hop) + 1.
func FramesFor(seconds float64, sampleRate, hop int) int {
	return int(seconds*float64(sampleRate))/hop + 1
}

// Channels returns the column count of an Extract result.
func (c Config) Channels() int {
	return 3 * c.NumCoeffs
}

// Extractor computes MFCC features. It is safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	dct     [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) *Extractor {
	if cfg.FMax <= 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}
	if cfg.DeltaWidth == 0 {
		cfg.DeltaWidth = 9
	}
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FMin, cfg.FMax),
		dct:     dctMatrix(cfg.NumCoeffs, cfg.NumMels),
	}
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// NumFrames returns the number of analysis frames for n samples.
func (e *Extractor) NumFrames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// MFCC computes the cepstral coefficients of pcm.
// Output: [NumCoeffs][T] where T = NumFrames(len(pcm)).
func (e *Extractor) MFCC(pcm []float32) [][]float64 {
	if len(pcm) == 0 {
		return nil
	}
	cfg := e.cfg
	nfft := cfg.FFTSize
	half := nfft / 2

	// Centered frames: pad nfft/2 zeros on both sides.
	padded := make([]float64, len(pcm)+nfft)
	for i, s := range pcm {
		v := float64(s)
		if cfg.PreEmphasis != 0 && i > 0 {
			v -= cfg.PreEmphasis * float64(pcm[i-1])
		}
		padded[half+i] = v
	}

	numFrames := e.NumFrames(len(pcm))
	melDB := make([][]float64, numFrames)

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, half+1)
	power := make([]float64, half+1)
	peak := math.Inf(-1)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize
		for i := range frame {
			frame[i] = padded[start+i] * e.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			power[k] = real(c)*real(c) + imag(c)*imag(c)
		}

		mel := make([]float64, cfg.NumMels)
		for m, filter := range e.melBank {
			mel[m] = 10 * math.Log10(math.Max(1e-10, floats.Dot(filter, power)))
		}
		peak = math.Max(peak, floats.Max(mel))
		melDB[t] = mel
	}

	if cfg.TopDB > 0 {
		floor := peak - cfg.TopDB
		for _, mel := range melDB {
			for m, v := range mel {
				if v < floor {
					mel[m] = floor
				}
			}
		}
	}

	out := make([][]float64, cfg.NumCoeffs)
	for c, basis := range e.dct {
		row := make([]float64, numFrames)
		for t, mel := range melDB {
			row[t] = floats.Dot(basis, mel)
		}
		out[c] = row
	}
	return out
}

// Extract computes MFCC, delta and delta-delta features and returns them as
// a [MaxFrames][3*NumCoeffs] matrix. Rows past the end of the audio are
// zero; frames beyond MaxFrames are dropped.
func (e *Extractor) Extract(pcm []float32) ([][]float32, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyInput
	}
	base := e.MFCC(pcm)
	d1, err := Delta(base, 1, e.cfg.DeltaWidth)
	if err != nil {
		return nil, err
	}
	d2, err := Delta(base, 2, e.cfg.DeltaWidth)
	if err != nil {
		return nil, err
	}

	numFrames := len(base[0])
	nc := e.cfg.NumCoeffs
	stacked := make([][]float32, numFrames)
	for t := range stacked {
		row := make([]float32, 3*nc)
		for c := 0; c < nc; c++ {
			row[c] = float32(base[c][t])
			row[nc+c] = float32(d1[c][t])
			row[2*nc+c] = float32(d2[c][t])
		}
		stacked[t] = row
	}
	return FitRows(stacked, e.cfg.MaxFrames, 3*nc), nil
}

// FitRows truncates features to rows, or appends zero rows of width cols
// until it has that many.
func FitRows(features [][]float32, rows, cols int) [][]float32 {
	if len(features) >= rows {
		return features[:rows]
	}
	out := make([][]float32, rows)
	copy(out, features)
	for t := len(features); t < rows; t++ {
		out[t] = make([]float32, cols)
	}
	return out
}

// Flatten converts [T][C] to a row-major [T*C] slice.
func Flatten(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	flat := make([]float32, len(features)*cols)
	for t, row := range features {
		copy(flat[t*cols:], row)
	}
	return flat
}
