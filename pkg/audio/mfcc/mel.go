package mfcc

import "math"

// hannWindow generates a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
	melMinLog   = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSP
	}
	return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melMinLog {
		return mel * melFSP
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
}

// melFilterBank creates Slaney-normalised triangular filters.
// Returns [numMels][fftSize/2+1].
func melFilterBank(numMels, fftSize, sampleRate int, fmin, fmax float64) [][]float64 {
	halfFFT := fftSize/2 + 1

	fftFreqs := make([]float64, halfFFT)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// numMels + 2 band edges equally spaced on the mel scale.
	lowMel, highMel := hzToMel(fmin), hzToMel(fmax)
	edges := make([]float64, numMels+2)
	for i := range edges {
		edges[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1))
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		enorm := 2.0 / (right - left)
		filter := make([]float64, halfFFT)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			if w := math.Min(lower, upper); w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}

// dctMatrix returns the first n rows of the orthonormal DCT-II basis of size
// size.
func dctMatrix(n, size int) [][]float64 {
	out := make([][]float64, n)
	for k := range out {
		scale := math.Sqrt(2.0 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		row := make([]float64, size)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size)))
		}
		out[k] = row
	}
	return out
}
