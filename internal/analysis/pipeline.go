// SPDX-License-Identifier: MIT
/*
Package analysis turns interleaved PCM chunks into spectral frames.

A Pipeline owns all per-run state: the sample ring, the window table, the
transform, the smoothing reference and the band table. Each call to Process
decodes one chunk, pushes the selected channel into the ring and emits exactly
one frame computed over the most recent FFTSize samples:

	bytes -> decode -> channel -> ring -> window -> pad -> /32767 -> FFT
	      -> ·1/√FFTSize -> attack/decay -> bands -> Frame

With UseFFT disabled the windowed block is instead offset into [0, 1] and
averaged in consecutive groups, one per band.

A Pipeline is not safe for concurrent use. Build a new one to apply changed
Settings.
*/
package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"spectral/internal/fft"
)

type Pipeline struct {
	settings   Settings
	blockAlign int

	selector  ChannelSelector
	ring      *Ring
	window    *Window
	transform fft.Transform
	smoother  *Smoother
	mapper    *BandMapper
	averager  LinearAverager
	emitter   *Emitter

	scale float64 // 1/√FFTSize

	// Scratch reused across chunks.
	decoded  []float64
	mono     []float64
	padded   []float64
	spectrum []float64
	bands    []float64

	now func() time.Time
}

// NewPipeline validates s and allocates every table and buffer for the run.
// A nil emitter gets a fresh one without sinks.
func NewPipeline(s Settings, emitter *Emitter) (*Pipeline, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.FFTBufferSize == 0 {
		s.FFTBufferSize = s.bufferSize()
	}
	if emitter == nil {
		emitter = NewEmitter()
	}

	p := &Pipeline{
		settings:   s,
		blockAlign: s.BlockAlign(),
		selector:   ChannelSelector{Channels: s.Channels, Channel: s.Channel},
		ring:       NewRing(s.FFTSize),
		window:     NewWindow(s.Window, s.FFTSize),
		emitter:    emitter,
		scale:      1 / math.Sqrt(float64(s.FFTSize)),
		padded:     make([]float64, s.FFTBufferSize),
		now:        time.Now,
	}

	if s.UseFFT {
		tr, err := fft.New(s.Engine, s.FFTBufferSize)
		if err != nil {
			return nil, fmt.Errorf("create %s transform: %w", s.Engine, err)
		}
		p.transform = tr
		p.spectrum = make([]float64, tr.Bins())
		p.smoother = NewSmoother(s.SampleRate, s.Attack, s.Decay)
		if s.Bands > 0 {
			p.mapper = NewBandMapper(s)
			p.bands = make([]float64, s.Bands)
		}
	} else {
		p.averager = NewLinearAverager(s.FFTSize, s.Bands)
		p.bands = make([]float64, s.Bands)
	}
	return p, nil
}

// Settings returns the copy the pipeline was built from.
func (p *Pipeline) Settings() Settings { return p.settings }

// Kind reports the kind of every frame this pipeline emits.
func (p *Pipeline) Kind() FrameKind {
	switch {
	case !p.settings.UseFFT:
		return KindLinear
	case p.mapper != nil:
		return KindBands
	default:
		return KindSpectrum
	}
}

// BandEdges returns the upper edge in Hz of every log band, or nil when the
// pipeline emits a full spectrum or linear averages.
func (p *Pipeline) BandEdges() []float64 {
	if p.mapper == nil {
		return nil
	}
	out := make([]float64, p.mapper.Bands())
	copy(out, p.mapper.Edges())
	return out
}

// Process analyzes the first count bytes of buf and emits one frame.
// count == 0 is a no-op. count must be a whole number of frames.
func (p *Pipeline) Process(buf []byte, count int) error {
	if count == 0 {
		return nil
	}
	if count < 0 || count > len(buf) {
		return fmt.Errorf("%w: count %d with %d bytes available", ErrShortBuffer, count, len(buf))
	}
	if count%p.blockAlign != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of block align %d", ErrPartialFrame, count, p.blockAlign)
	}

	start := p.now()
	var err error
	if p.decoded, err = DecodeInto(p.decoded, buf[:count], p.settings.BitDepth); err != nil {
		return err
	}
	return p.process(start)
}

// processSamples analyzes already decoded interleaved samples on the 16-bit
// amplitude scale (±32767) and emits one frame.
func (p *Pipeline) processSamples(interleaved []float64) error {
	if len(interleaved) == 0 {
		return nil
	}
	start := p.now()
	p.decoded = append(p.decoded[:0], interleaved...)
	return p.process(start)
}

func (p *Pipeline) process(start time.Time) error {
	var err error
	if p.mono, err = p.selector.Select(p.mono, p.decoded); err != nil {
		return err
	}
	p.ring.WriteSlice(p.mono)

	clear(p.padded)
	p.ring.LinearizeInto(p.padded)
	p.window.Apply(p.padded)

	if !p.settings.UseFFT {
		p.averager.Normalize(p.padded)
		p.bands = p.averager.Average(p.bands, p.padded)
		p.emitter.Emit(KindLinear, p.bands, p.now().Sub(start))
		return nil
	}

	vecmath.ScaleBlock(p.padded, p.padded, 1/floatScale)
	if err := p.transform.Compute(p.spectrum, p.padded); err != nil {
		return err
	}
	vecmath.ScaleBlock(p.spectrum, p.spectrum, p.scale)
	p.smoother.Apply(p.spectrum)

	if p.mapper == nil {
		p.emitter.Emit(KindSpectrum, p.spectrum, p.now().Sub(start))
		return nil
	}
	p.bands = p.mapper.Map(p.bands, p.spectrum)
	p.emitter.Emit(KindBands, p.bands, p.now().Sub(start))
	return nil
}

// Reset clears the ring and the smoothing reference.
func (p *Pipeline) Reset() {
	p.ring.Reset()
	if p.smoother != nil {
		p.smoother.Reset()
	}
}
