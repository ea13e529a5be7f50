package indicator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Computer computes one indicator over an input. Implementations must return
// a suffix-aligned series.
type Computer interface {
	Compute(ctx context.Context, spec Spec, in Input) (Series, error)
}

// ComputerFunc adapts a function to the Computer interface.
type ComputerFunc func(ctx context.Context, spec Spec, in Input) (Series, error)

func (f ComputerFunc) Compute(ctx context.Context, spec Spec, in Input) (Series, error) {
	return f(ctx, spec, in)
}

// ComputeAll runs every spec concurrently against the same input and returns
// the series in spec order. The first failure cancels the rest.
func ComputeAll(ctx context.Context, c Computer, specs []Spec, in Input) ([]Series, error) {
	out := make([]Series, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			s, err := c.Compute(gctx, spec, in)
			if err != nil {
				return fmt.Errorf("compute %s: %w", spec, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
