// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"testing"

	"spectral/pkg/utils"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		bitDepth int
		want     []float64
		wantErr  error
	}{
		{"Empty", nil, 16, []float64{}, nil},
		{"PCM16", utils.PCM16Raw(0, 1, -1, 32767, -32768), 16, []float64{0, 1, -1, 32767, -32768}, nil},
		{"Float32", utils.Float32LE([]float64{0.5, -1, 0}), 32, []float64{16383.5, -32767, 0}, nil},
		{"Odd bytes", []byte{1, 2, 3}, 16, nil, ErrShortBuffer},
		{"Float32 short", []byte{1, 2, 3, 4, 5, 6}, 32, nil, ErrShortBuffer},
		{"24 bit", make([]byte, 6), 24, nil, ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.buf, tt.bitDepth)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode() returned %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeIntoReusesBuffer(t *testing.T) {
	buf := utils.PCM16(utils.Sine(512, 48000, 440, 0.5))
	dst := make([]float64, 0, 512)

	dst, _ = DecodeInto(dst, buf, 16)
	allocs := testing.AllocsPerRun(100, func() {
		dst, _ = DecodeInto(dst, buf, 16)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in DecodeInto, got %.1f", allocs)
	}
	if len(dst) != 512 {
		t.Errorf("len = %d, want 512", len(dst))
	}
}

func TestSampleWidth(t *testing.T) {
	for depth, want := range map[int]int{16: 2, 32: 4} {
		if got, err := SampleWidth(depth); err != nil || got != want {
			t.Errorf("SampleWidth(%d) = %d, %v; want %d", depth, got, err, want)
		}
	}
	if _, err := SampleWidth(8); !errors.Is(err, ErrUnsupportedBitDepth) {
		t.Errorf("SampleWidth(8) error = %v, want ErrUnsupportedBitDepth", err)
	}
}
