// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"spectral/internal/analysis"
)

// FrameChannel is a FrameSink that hands frames to the terminal view. When
// the view falls behind, new frames are dropped rather than blocking the
// analysis goroutine.
type FrameChannel chan analysis.Frame

var _ analysis.FrameSink = FrameChannel(nil)

// NewFrameChannel buffers up to size frames.
func NewFrameChannel(size int) FrameChannel {
	return make(FrameChannel, size)
}

func (c FrameChannel) Publish(f analysis.Frame) {
	select {
	case c <- f:
	default:
	}
}

// eighths are the partial block glyphs from empty to full.
var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// peakDecay is applied per frame to the auto-scaling reference of spectrum frames.
const peakDecay = 0.995

type frameMsg analysis.Frame

type framesClosedMsg struct{}

// SpectrumModel draws the latest frame as vertical bars.
type SpectrumModel struct {
	frames <-chan analysis.Frame
	header string
	edges  []float64

	width, height int
	frame         analysis.Frame
	received      uint64
	scale         float64
	paused        bool
	legend        bool
	done          bool
}

// NewSpectrumModel reads frames until the channel is closed. edges are the
// band upper edges in Hz shown in the legend; nil hides it.
func NewSpectrumModel(frames <-chan analysis.Frame, header string, edges []float64) SpectrumModel {
	return SpectrumModel{
		frames: frames,
		header: header,
		edges:  edges,
		width:  80,
		height: 20,
		legend: len(edges) > 0,
	}
}

func (m SpectrumModel) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func waitForFrame(frames <-chan analysis.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg(f)
	}
}

func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case frameMsg:
		m.received++
		if !m.paused {
			m.frame = analysis.Frame(msg)
			m.scale = nextScale(m.scale, m.frame)
		}
		return m, waitForFrame(m.frames)

	case framesClosedMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keyPause):
			m.paused = !m.paused
		case key.Matches(msg, keyLegend):
			m.legend = !m.legend && len(m.edges) > 0
		}
	}
	return m, nil
}

// nextScale tracks a decaying peak for spectrum frames, whose magnitudes are
// not normalized. Band and linear frames are already in [0, 1].
func nextScale(prev float64, f analysis.Frame) float64 {
	if f.Kind != analysis.KindSpectrum {
		return 1
	}
	peak := 0.0
	for _, v := range f.Values {
		peak = max(peak, v)
	}
	return max(peak, prev*peakDecay)
}

func (m SpectrumModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.header))
	sb.WriteString("\n")

	status := fmt.Sprintf("frame %d • %s • %d values • %.2f ms", m.frame.Sequence, m.frame.Kind, m.frame.Count, m.frame.ElapsedMs)
	if m.paused {
		status += " • paused"
	}
	sb.WriteString(dimStyle.Render(status))
	sb.WriteString("\n\n")

	rows := max(1, m.height-6)
	cols := columns(m.frame.Values, max(1, m.width))
	sb.WriteString(barStyle.Render(renderBars(cols, m.scale, rows)))
	sb.WriteString("\n")

	if m.legend {
		sb.WriteString(dimStyle.Render(legend(m.edges, len(cols))))
		sb.WriteString("\n")
	}
	sb.WriteString(infoStyle.Render("space: Pause • l: Legend • q: Quit"))
	return sb.String()
}

// columns reduces values to at most width columns, keeping the maximum of
// each group so narrow peaks stay visible.
func columns(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		for _, v := range values[lo:hi] {
			out[i] = max(out[i], v)
		}
	}
	return out
}

// renderBars draws one column per value, rows characters tall, with
// eighth-block resolution at the top of each bar.
func renderBars(cols []float64, scale float64, rows int) string {
	if scale <= 0 {
		scale = 1
	}
	heights := make([]int, len(cols))
	for i, v := range cols {
		h := v / scale
		if math.IsNaN(h) {
			h = 0
		}
		heights[i] = int(math.Round(min(max(h, 0), 1) * float64(rows*8)))
	}

	var sb strings.Builder
	for r := rows - 1; r >= 0; r-- {
		base := r * 8
		for _, h := range heights {
			sb.WriteRune(eighths[min(max(h-base, 0), 8)])
		}
		if r > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// legend labels the first, middle and last band edges.
func legend(edges []float64, width int) string {
	if len(edges) == 0 || width < 1 {
		return ""
	}
	label := func(hz float64) string {
		if hz >= 1000 {
			return fmt.Sprintf("%.1fk", hz/1000)
		}
		return fmt.Sprintf("%.0f", hz)
	}
	line := []rune(strings.Repeat(" ", width))
	put := func(pos int, s string) {
		pos = min(max(pos, 0), max(0, width-len(s)))
		copy(line[pos:], []rune(s))
	}
	put(0, label(edges[0]))
	put(width/2-2, label(edges[len(edges)/2]))
	put(width, label(edges[len(edges)-1]))
	return string(line)
}

// RunSpectrum shows the spectrum view until the user quits, ctx ends or the
// frame channel is closed.
func RunSpectrum(ctx context.Context, frames <-chan analysis.Frame, header string, edges []float64) error {
	p := tea.NewProgram(NewSpectrumModel(frames, header, edges), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
