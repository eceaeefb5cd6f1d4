// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Gate wraps a Source and flags packets whose peak amplitude does not exceed
// the threshold as silent.
type Gate struct {
	Source

	enabled   atomic.Bool
	threshold atomic.Int32 // absolute amplitude on the int32 scale
}

// NewGate returns an enabled gate over src. threshold is a fraction of full
// scale, see SetGateThreshold.
func NewGate(src Source, threshold float64) *Gate {
	g := &Gate{Source: src}
	g.SetGateThreshold(threshold)
	g.enabled.Store(true)
	return g
}

// EnableGate turns silence detection on.
func (g *Gate) EnableGate() {
	g.enabled.Store(true)
}

// DisableGate passes every packet through unflagged.
func (g *Gate) DisableGate() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate is flagging packets.
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
func (g *Gate) GetGateThreshold() float64 {
	return float64(g.threshold.Load()) / float64(math.MaxInt32)
}

// Open reports whether a packet with the given peak passes the gate.
func (g *Gate) Open(peak int32) bool {
	return !g.enabled.Load() || peak > g.threshold.Load()
}

// GetBuffer adds FlagSilent when the packet peak does not pass the gate.
func (g *Gate) GetBuffer() ([]byte, int, Flags, error) {
	data, frames, flags, err := g.Source.GetBuffer()
	if err != nil {
		return data, frames, flags, err
	}
	if !g.Open(Peak(data, g.Format().BitDepth)) {
		flags |= FlagSilent
	}
	return data, frames, flags, nil
}

// Peak returns the largest absolute sample of a PCM packet on the int32
// scale. 16-bit samples are shifted up, float samples are clipped to ±1.
func Peak(data []byte, bitDepth int) int32 {
	var maxAmplitude int32
	switch bitDepth {
	case 16:
		for i := 0; i+1 < len(data); i += 2 {
			v := int16(binary.LittleEndian.Uint16(data[i:]))
			if v == math.MinInt16 {
				v++
			}
			sample := int32(v) << 16
			maxAmplitude = maxAbs(maxAmplitude, sample)
		}
	case 32:
		for i := 0; i+3 < len(data); i += 4 {
			f := math.Abs(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))))
			sample := int32(math.Min(f, 1) * math.MaxInt32)
			maxAmplitude = maxAbs(maxAmplitude, sample)
		}
	}
	return maxAmplitude
}

// maxAbs returns max(current, |sample|) without branching.
func maxAbs(current, sample int32) int32 {
	mask := sample >> 31
	amplitude := (sample ^ mask) - mask
	diff := amplitude - current
	return current + ((diff & (diff >> 31)) ^ diff)
}
