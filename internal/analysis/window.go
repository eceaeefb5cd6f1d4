// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
	gwindow "gonum.org/v1/gonum/dsp/window"
)

// WindowType selects the taper applied to the analysis block before the transform.
type WindowType int

const (
	WindowNone WindowType = iota
	WindowHamming
	WindowHann
	WindowBlackmanHarris
	WindowBlackman
	WindowBlackmanNuttall
	WindowNuttall
	WindowBartlettHann
	WindowLanczos
)

var windowNames = map[WindowType]string{
	WindowNone:            "none",
	WindowHamming:         "hamming",
	WindowHann:            "hann",
	WindowBlackmanHarris:  "blackmanharris",
	WindowBlackman:        "blackman",
	WindowBlackmanNuttall: "blackmannuttall",
	WindowNuttall:         "nuttall",
	WindowBartlettHann:    "bartletthann",
	WindowLanczos:         "lanczos",
}

func (w WindowType) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowType(%d)", int(w))
}

// ParseWindow converts a case-insensitive window name to a WindowType.
// Unknown names return Hamming and an error.
func ParseWindow(name string) (WindowType, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	switch key {
	case "", "hamming":
		return WindowHamming, nil
	case "hanning":
		return WindowHann, nil
	}
	for t, n := range windowNames {
		if n == key {
			return t, nil
		}
	}
	return WindowHamming, fmt.Errorf("unknown window function %q", name)
}

// Window holds precomputed coefficients for one block length.
type Window struct {
	kind   WindowType
	coeffs []float64
}

// NewWindow computes the coefficient table for size samples. WindowNone has no table.
func NewWindow(kind WindowType, size int) *Window {
	w := &Window{kind: kind}
	if kind == WindowNone || size < 1 {
		return w
	}
	w.coeffs = make([]float64, size)
	fillWindow(w.coeffs, kind)
	return w
}

func (w *Window) Type() WindowType { return w.kind }

// Coefficients returns the table. Callers must not modify it.
func (w *Window) Coefficients() []float64 { return w.coeffs }

// Apply multiplies the first Len() entries of frames by the coefficients in place.
// Entries past the table (the zero padding) are left untouched.
func (w *Window) Apply(frames []float64) {
	n := min(len(frames), len(w.coeffs))
	if n == 0 {
		return
	}
	vecmath.MulBlockInPlace(frames[:n], w.coeffs[:n])
}

func (w *Window) Len() int { return len(w.coeffs) }

func fillWindow(c []float64, kind WindowType) {
	n := float64(len(c))
	if len(c) == 1 && kind != WindowHamming {
		c[0] = 1
		return
	}
	switch kind {
	case WindowHamming:
		for i := range c {
			c[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/(n+1)))
		}
		c[0] = 0
		return
	case WindowHann:
		for i := range c {
			c[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/(n-1)))
		}
		return
	case WindowBlackmanHarris:
		for i := range c {
			x := 2 * math.Pi * float64(i) / (n - 1)
			c[i] = 0.35875 - 0.48829*math.Cos(x) + 0.14128*math.Cos(2*x) - 0.01168*math.Cos(3*x)
		}
		return
	}

	// gonum windows scale the input in place, so start from ones.
	for i := range c {
		c[i] = 1
	}
	switch kind {
	case WindowBlackman:
		gwindow.Blackman(c)
	case WindowBlackmanNuttall:
		gwindow.BlackmanNuttall(c)
	case WindowNuttall:
		gwindow.Nuttall(c)
	case WindowBartlettHann:
		gwindow.BartlettHann(c)
	case WindowLanczos:
		gwindow.Lanczos(c)
	}
}
