// Package waveform turns an audio file into the fixed-length mono waveform
// the feature extractor expects.
//
// # Pipeline
//
//  1. ffmpeg decodes the file to PCM16 little-endian at the decode format
//  2. stereo is downmixed to mono by averaging channels
//  3. the pure-Go resampler converts the decode rate to the target rate
//  4. the waveform is zero-padded or truncated to Duration x SampleRate
//
// Only the prefix of long recordings is kept; there is no centering or
// silence trimming.
package waveform

import (
	"encoding/binary"
	"errors"
)

// ErrNoAudio is returned when decoding produced no samples.
var ErrNoAudio = errors.New("waveform: no audio samples decoded")

// Fit returns exactly n samples: a copy of samples truncated to n, or
// right-padded with zeros up to n.
func Fit(samples []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, samples)
	return out
}

// PCM16ToFloat32 converts interleaved little-endian int16 samples to float32
// in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return out
}

// DownmixStereo averages interleaved L/R pairs into mono. A trailing
// unpaired sample is dropped.
func DownmixStereo(samples []float32) []float32 {
	out := make([]float32, len(samples)/2)
	for i := range out {
		out[i] = (samples[2*i] + samples[2*i+1]) / 2
	}
	return out
}
