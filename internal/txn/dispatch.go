package txn

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

type orderedOutput[T any] struct {
	order  int
	output T
}

// orderedMap runs f over inputs with the given concurrency limit (0
// serializes, same convention as the teacher's ConcurrentMapFuncWithError),
// returning outputs in input order regardless of completion order.
// Adapted from the teacher's database/concurrent.go helper: txn always
// calls it at concurrency 1 because callback dispatch order must be
// preserved exactly, so this buys code-shape consistency with the rest
// of the module rather than real parallelism at this layer.
func orderedMap[Tin, Tout any](inputs []Tin, concurrency int, f func(Tin) (Tout, error)) ([]Tout, error) {
	eg := errgroup.Group{}
	switch {
	case concurrency == 0:
		eg.SetLimit(1)
	case concurrency > 0:
		eg.SetLimit(concurrency)
	}

	ch := make(chan orderedOutput[Tout], len(inputs))
	for i := range inputs {
		order, in := i, inputs[i]
		eg.Go(func() error {
			out, err := f(in)
			if err != nil {
				return err
			}
			ch <- orderedOutput[Tout]{order, out}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	close(ch)

	tagged := make([]orderedOutput[Tout], 0, len(inputs))
	for t := range ch {
		tagged = append(tagged, t)
	}
	sort.Slice(tagged, func(i, j int) bool { return tagged[i].order < tagged[j].order })

	outputs := make([]Tout, len(tagged))
	for i, t := range tagged {
		outputs[i] = t.output
	}
	return outputs, nil
}
