// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"spectral/internal/log"
)

// EventSender is the subset of a transport used to forward onset events.
type EventSender interface {
	Send(data any) error
}

// Onset is the event published when frame energy jumps.
type Onset struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Sequence  uint64    `json:"sequence"`
	Energy    float64   `json:"energy"`
	Ratio     float64   `json:"ratio"`
	Timestamp time.Time `json:"timestamp"`
}

// OnsetDetector flags frames whose RMS energy rises above a threshold by at
// least minRatio over the previous frame. Works on any frame kind.
type OnsetDetector struct {
	threshold  float64
	minRatio   float64
	cooldown   time.Duration
	lastEnergy float64
	lastOnset  time.Time
	sender     EventSender
	onsets     uint64
}

var _ FrameSink = (*OnsetDetector)(nil)

// NewOnsetDetector reports an onset when frame RMS exceeds threshold and has
// risen by more than minRatio since the previous frame. Onsets closer than
// cooldown to the last one are ignored. sender may be nil.
func NewOnsetDetector(threshold, minRatio float64, cooldown time.Duration, sender EventSender) *OnsetDetector {
	log.Infof("Analysis: Initializing OnsetDetector (Threshold: %.2f, MinRatio: %.2f, Cooldown: %s)", threshold, minRatio, cooldown)
	return &OnsetDetector{
		threshold: threshold,
		minRatio:  minRatio,
		cooldown:  cooldown,
		sender:    sender,
	}
}

// Publish runs the detector on one frame. It must be called from a single goroutine.
func (d *OnsetDetector) Publish(f Frame) {
	energy := frameRMS(f.Values)
	defer func() { d.lastEnergy = energy }()

	if energy <= d.threshold {
		return
	}
	ratio := math.Inf(1)
	if d.lastEnergy > 0 {
		ratio = energy / d.lastEnergy
	}
	if ratio <= d.minRatio {
		return
	}
	if !d.lastOnset.IsZero() && f.Timestamp.Sub(d.lastOnset) < d.cooldown {
		return
	}
	d.lastOnset = f.Timestamp
	d.onsets++

	if d.sender == nil {
		return
	}
	ev := Onset{Type: "event", Name: "onset", Sequence: f.Sequence, Energy: energy, Ratio: ratio, Timestamp: f.Timestamp}
	if math.IsInf(ratio, 1) {
		ev.Ratio = 0
	}
	if err := d.sender.Send(ev); err != nil {
		log.Errorf("OnsetDetector: sending onset event: %v", err)
	}
}

// Count returns the number of onsets detected so far.
func (d *OnsetDetector) Count() uint64 { return d.onsets }

func frameRMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(values, values) / float64(len(values)))
}
