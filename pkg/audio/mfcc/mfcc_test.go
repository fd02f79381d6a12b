package mfcc

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, n int) []float32 {
	pcm := make([]float32, n)
	for i := range pcm {
		pcm[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return pcm
}

func TestHannWindow(t *testing.T) {
	w := hannWindow(2048)
	if len(w) != 2048 {
		t.Fatalf("expected 2048, got %d", len(w))
	}
	if w[0] != 0 {
		t.Errorf("w[0] = %f, want 0", w[0])
	}
	// Periodic window peaks at n/2.
	if math.Abs(w[1024]-1.0) > 1e-12 {
		t.Errorf("w[1024] = %f, want 1", w[1024])
	}
}

func TestMelConversion(t *testing.T) {
	if got := hzToMel(1000); math.Abs(got-15) > 1e-9 {
		t.Errorf("hzToMel(1000) = %f, want 15", got)
	}
	if got := hzToMel(500); math.Abs(got-7.5) > 1e-9 {
		t.Errorf("hzToMel(500) = %f, want 7.5", got)
	}
	for _, hz := range []float64{0, 440, 1000, 3000, 8000} {
		if back := melToHz(hzToMel(hz)); math.Abs(back-hz) > 1e-6 {
			t.Errorf("melToHz(hzToMel(%f)) = %f", hz, back)
		}
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(128, 2048, 16000, 0, 8000)
	if len(bank) != 128 {
		t.Fatalf("expected 128 filters, got %d", len(bank))
	}
	for i, f := range bank {
		if len(f) != 1025 {
			t.Fatalf("filter %d: expected 1025 bins, got %d", i, len(f))
		}
		nonZero := false
		for _, v := range f {
			if v < 0 {
				t.Fatalf("filter %d has negative weight", i)
			}
			if v > 0 {
				nonZero = true
			}
		}
		if !nonZero {
			t.Errorf("filter %d is all zeros", i)
		}
	}
}

func TestDCTOrthonormal(t *testing.T) {
	d := dctMatrix(20, 128)
	for i := range d {
		for j := range d {
			dot := 0.0
			for k := range d[i] {
				dot += d[i][k] * d[j][k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Fatalf("<row%d,row%d> = %f, want %f", i, j, dot, want)
			}
		}
	}
}

func TestFramesFor(t *testing.T) {
	if got := FramesFor(5, 16000, 512); got != 157 {
		t.Fatalf("FramesFor(5s) = %d, want 157", got)
	}
	if got := DefaultConfig().MaxFrames; got != 157 {
		t.Fatalf("MaxFrames = %d, want 157", got)
	}
}

func TestMFCCShape(t *testing.T) {
	e := New(DefaultConfig())
	out := e.MFCC(sine(440, 16000, 80000))
	if len(out) != 20 {
		t.Fatalf("expected 20 coefficients, got %d", len(out))
	}
	if len(out[0]) != 157 {
		t.Fatalf("expected 157 frames, got %d", len(out[0]))
	}
	for c, row := range out {
		for f, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("coefficient %d frame %d = %f", c, f, v)
			}
		}
	}
}

func TestMFCCSilenceIsFloor(t *testing.T) {
	e := New(DefaultConfig())
	out := e.MFCC(make([]float32, 16000))
	// 10*log10(1e-10) on every band: only c0 is non-zero.
	want0 := -100 * math.Sqrt(128)
	if math.Abs(out[0][0]-want0) > 1e-6 {
		t.Errorf("c0 = %f, want %f", out[0][0], want0)
	}
	for c := 1; c < len(out); c++ {
		if math.Abs(out[c][0]) > 1e-6 {
			t.Errorf("c%d = %f, want 0", c, out[c][0])
		}
	}
}

// Reference values follow librosa.feature.mfcc(y, sr=16000, n_mfcc=20) and
// librosa.feature.delta(width=9) for a two-tone float32 signal.
func TestMFCCGolden(t *testing.T) {
	pcm := make([]float32, 8192)
	for i := range pcm {
		x := float64(i) / 16000
		pcm[i] = float32(0.5*math.Sin(2*math.Pi*440*x) + 0.25*math.Sin(2*math.Pi*1250*x))
	}
	m := New(DefaultConfig()).MFCC(pcm)
	if len(m) != 20 || len(m[0]) != 17 {
		t.Fatalf("shape = %dx%d, want 20x17", len(m), len(m[0]))
	}
	d1, err := Delta(m, 1, 9)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Delta(m, 2, 9)
	if err != nil {
		t.Fatal(err)
	}

	frames := []int{0, 8, 16}
	tests := []struct {
		name string
		got  [][]float64
		row  int
		want [3]float64
	}{
		{"mfcc0", m, 0, [3]float64{-149.450174, -460.101946, -93.964655}},
		{"mfcc1", m, 1, [3]float64{150.417862, 45.413565, 107.505295}},
		{"mfcc5", m, 5, [3]float64{16.353551, -1.677156, -7.441691}},
		{"mfcc19", m, 19, [3]float64{-1.062081, -9.078138, -3.148406}},
		{"delta0", d1, 0, [3]float64{-33.04582, 0, 39.554523}},
		{"delta1", d1, 1, [3]float64{-12.428854, 0, 7.443857}},
		{"delta2_0", d2, 0, [3]float64{22.565399, 0, 26.779787}},
		{"delta2_1", d2, 1, [3]float64{8.008802, 0, 4.764697}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, f := range frames {
				if got := tt.got[tt.row][f]; math.Abs(got-tt.want[i]) > 1e-3 {
					t.Errorf("frame %d = %f, want %f", f, got, tt.want[i])
				}
			}
		})
	}
}

func TestDeltaLinearRamp(t *testing.T) {
	row := make([]float64, 30)
	for i := range row {
		row[i] = 3 * float64(i)
	}
	d, err := Delta([][]float64{row}, 1, 9)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range d[0] {
		if math.Abs(v-3) > 1e-9 {
			t.Fatalf("delta[%d] = %f, want 3", i, v)
		}
	}
}

func TestDeltaQuadratic(t *testing.T) {
	row := make([]float64, 30)
	for i := range row {
		x := float64(i)
		row[i] = 0.5*x*x + x
	}
	d, err := Delta([][]float64{row}, 2, 9)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range d[0] {
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("delta2[%d] = %f, want 1", i, v)
		}
	}
}

func TestDeltaErrors(t *testing.T) {
	data := [][]float64{make([]float64, 5)}
	tests := []struct {
		name  string
		order int
		width int
	}{
		{"width exceeds frames", 1, 9},
		{"even width", 1, 4},
		{"zero order", 0, 3},
		{"order too high", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Delta(data, tt.order, tt.width); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExtractShape(t *testing.T) {
	e := New(DefaultConfig())
	for _, n := range []int{16000, 80000, 160000} {
		feat, err := e.Extract(sine(220, 16000, n))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(feat) != 157 {
			t.Fatalf("n=%d: rows = %d, want 157", n, len(feat))
		}
		for i, row := range feat {
			if len(row) != 60 {
				t.Fatalf("n=%d: row %d has %d columns, want 60", n, i, len(row))
			}
		}
	}
}

func TestExtractShortInputPadsRows(t *testing.T) {
	e := New(DefaultConfig())
	// 16000 samples -> 32 frames, remaining rows must be zero.
	feat, err := e.Extract(sine(220, 16000, 16000))
	if err != nil {
		t.Fatal(err)
	}
	for i := 32; i < len(feat); i++ {
		for j, v := range feat[i] {
			if v != 0 {
				t.Fatalf("row %d col %d = %f, want 0", i, j, v)
			}
		}
	}
}

func TestExtractPaddedTailDeltasVanish(t *testing.T) {
	// 3 s tone followed by 2 s of silence.
	pcm := make([]float32, 80000)
	copy(pcm, sine(300, 16000, 48000))

	e := New(DefaultConfig())
	feat, err := e.Extract(pcm)
	if err != nil {
		t.Fatal(err)
	}
	// Frame t spans samples [512t-1024, 512t+1024); frames >= 96 are silent,
	// and their derivative windows are silent from frame 100 on.
	for i := 100; i < len(feat); i++ {
		for j := 20; j < 60; j++ {
			if math.Abs(float64(feat[i][j])) > 1e-4 {
				t.Fatalf("frame %d derivative column %d = %f, want ~0", i, j, feat[i][j])
			}
		}
	}
}

func TestExtractEmpty(t *testing.T) {
	e := New(DefaultConfig())
	if _, err := e.Extract(nil); err != ErrEmptyInput {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestFlatten(t *testing.T) {
	flat := Flatten([][]float32{{1, 2}, {3, 4}, {5, 6}})
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(flat) != len(want) {
		t.Fatalf("len = %d", len(flat))
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("flat[%d] = %f, want %f", i, flat[i], want[i])
		}
	}
	if Flatten(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func BenchmarkExtract5s(b *testing.B) {
	e := New(DefaultConfig())
	pcm := sine(440, 16000, 80000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Extract(pcm)
	}
}
