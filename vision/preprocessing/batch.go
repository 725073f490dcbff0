package preprocessing

import (
	"fmt"
	"sync"

	"github.com/tsawler/go-funcinfo/tensor"
)

// TransformBatch preprocesses multiple images concurrently and stacks them
// into a single (N, 3, H, W) tensor in path order. Every image must come out
// of the transform with identical dimensions; the center crop guarantees
// that, callers that skip it must supply same-sized images.
func TransformBatch(paths []string, resizeTo, cropTo, maxWorkers int) (*tensor.Tensor, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image paths given")
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	inputs := make([]*tensor.Tensor, len(paths))
	errors := make([]error, len(paths))

	type job struct {
		index int
		path  string
	}

	jobs := make(chan job, len(paths))
	var wg sync.WaitGroup

	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				img, err := LoadImage(j.path)
				if err != nil {
					errors[j.index] = err
					continue
				}
				pair, err := Transform(img, resizeTo, cropTo)
				if err != nil {
					errors[j.index] = err
					continue
				}
				inputs[j.index] = pair.Input
			}
		}()
	}

	for i, path := range paths {
		jobs <- job{index: i, path: path}
	}
	close(jobs)
	wg.Wait()

	for i, err := range errors {
		if err != nil {
			return nil, fmt.Errorf("failed to process image %d: %w", i, err)
		}
	}
	return tensor.ConcatBatch(inputs...)
}
