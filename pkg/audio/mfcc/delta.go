package mfcc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Delta computes the order-th time derivative of each row of data using a
// Savitzky-Golay filter of the given width and polynomial order equal to
// the derivative order.
//
// Frames within width/2 of either end take the derivative of the polynomial
// fitted to the first or last full window. With polynomial order equal to
// derivative order that derivative is constant over the window, so edge
// frames repeat the nearest interior value.
func Delta(data [][]float64, order, width int) ([][]float64, error) {
	if order < 1 {
		return nil, fmt.Errorf("mfcc: delta order must be positive, got %d", order)
	}
	if width < 3 || width%2 == 0 {
		return nil, fmt.Errorf("mfcc: delta width must be odd and >= 3, got %d", width)
	}
	if order >= width {
		return nil, fmt.Errorf("mfcc: delta order %d needs width > order, got %d", order, width)
	}
	if len(data) == 0 {
		return nil, nil
	}
	n := len(data[0])
	if width > n {
		return nil, fmt.Errorf("mfcc: delta width %d exceeds %d frames", width, n)
	}

	coeffs, err := savgolCoeffs(width, order)
	if err != nil {
		return nil, err
	}

	half := width / 2
	out := make([][]float64, len(data))
	for r, row := range data {
		d := make([]float64, n)
		for t := half; t < n-half; t++ {
			sum := 0.0
			for k, c := range coeffs {
				sum += c * row[t-half+k]
			}
			d[t] = sum
		}
		for t := 0; t < half; t++ {
			d[t] = d[half]
			d[n-1-t] = d[n-1-half]
		}
		out[r] = d
	}
	return out, nil
}

// savgolCoeffs returns the filter taps that evaluate the order-th
// derivative at the center of a window of the given width, from the least
// squares polynomial of degree order.
func savgolCoeffs(width, order int) ([]float64, error) {
	half := width / 2
	a := mat.NewDense(width, order+1, nil)
	for i := 0; i < width; i++ {
		x := float64(i - half)
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= x
		}
	}

	// pinv(A) via least squares against the identity: A X = I.
	var pinv mat.Dense
	if err := pinv.Solve(a, identity(width)); err != nil {
		return nil, fmt.Errorf("mfcc: savgol fit: %w", err)
	}

	fact := 1.0
	for i := 2; i <= order; i++ {
		fact *= float64(i)
	}
	taps := make([]float64, width)
	for k := range taps {
		taps[k] = fact * pinv.At(order, k)
	}
	return taps, nil
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
