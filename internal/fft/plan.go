// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// PlanTransform executes a precomputed algo-fft plan. The real input is
// promoted to complex128 in a reusable buffer before the forward pass.
type PlanTransform struct {
	size  int
	plan  *algofft.Plan[complex128]
	in    []complex128
	out   []complex128
	split splitter
}

var _ Transform = (*PlanTransform)(nil)

// NewPlan builds an algo-fft plan. size must be a power of two.
func NewPlan(size int) (*PlanTransform, error) {
	if err := EnginePlan.CheckSize(size); err != nil {
		return nil, err
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("fft: create plan for %d points: %w", size, err)
	}
	return &PlanTransform{
		size:  size,
		plan:  plan,
		in:    make([]complex128, size),
		out:   make([]complex128, size),
		split: newSplitter(size/2 + 1),
	}, nil
}

// Compute writes the size/2+1 magnitudes of src into dst without allocating.
func (t *PlanTransform) Compute(dst, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	for i, v := range src {
		t.in[i] = complex(v, 0)
	}
	if err := t.plan.Forward(t.out, t.in); err != nil {
		return fmt.Errorf("fft: forward transform: %w", err)
	}
	t.split.magnitude(dst, t.out[:t.size/2+1])
	return nil
}

func (t *PlanTransform) Size() int { return t.size }

func (t *PlanTransform) Bins() int { return t.size/2 + 1 }
