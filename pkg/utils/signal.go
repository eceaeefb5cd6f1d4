// SPDX-License-Identifier: MIT
//
// Package utils provides deterministic test signals, PCM byte encoders and
// small inspection helpers shared by the package tests and the synthetic
// capture source.
package utils

import "math"

// Sine returns size samples of amp·sin(2π·freq·t).
func Sine(size int, sampleRate, freq, amp float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = amp * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

// Harmonics returns a sum of sines at fundamental·(k+1) with amplitude amps[k].
func Harmonics(size int, sampleRate, fundamental float64, amps ...float64) []float64 {
	out := make([]float64, size)
	for k, a := range amps {
		f := fundamental * float64(k+1)
		for i := range out {
			t := float64(i) / sampleRate
			out[i] += a * math.Sin(2*math.Pi*f*t)
		}
	}
	return out
}

// Constant returns size copies of v.
func Constant(size int, v float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		out[i] = v
	}
	return out
}

// Interleave repeats each mono sample across channels.
func Interleave(mono []float64, channels int) []float64 {
	out := make([]float64, len(mono)*channels)
	for i, v := range mono {
		for c := range channels {
			out[i*channels+c] = v
		}
	}
	return out
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin..endBin].
// Bounds are clamped to the slice; an empty slice yields 0.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
