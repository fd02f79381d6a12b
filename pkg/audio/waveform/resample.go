package waveform

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono samples from one sample rate to another using the
// pure-Go high-quality resampler. Equal rates return the input unchanged.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("waveform: invalid sample rates %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("waveform: create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("waveform: resample: %w", err)
	}
	// The filter delay holds back the tail until Flush.
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("waveform: resample flush: %w", err)
	}
	output = append(output, tail...)
	if want := int(math.Round(float64(len(samples)) * float64(to) / float64(from))); len(output) > want {
		output = output[:want]
	}

	out := make([]float32, len(output))
	for i, s := range output {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = float32(s)
	}
	return out, nil
}
