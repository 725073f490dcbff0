package interp

import (
	"fmt"
	"sync"

	"github.com/tsawler/go-funcinfo/tensor"
)

// chunkSizes divides n samples into split chunks: the first split-1 chunks
// hold n/split samples each and the last holds the remainder, so the sizes
// always sum to exactly n. A split of 1 or less yields a single chunk.
func chunkSizes(n, split int) []int {
	if split <= 1 {
		return []int{n}
	}
	base := n / split
	sizes := make([]int, split)
	for i := 0; i < split-1; i++ {
		sizes[i] = base
	}
	sizes[split-1] = n - base*(split-1)
	return sizes
}

type chunkSpan struct {
	from, to int
}

// chunkedGradients runs the gradient collaborator over the perturbed batch
// in chunks and reassembles the per-sample gradients in original order.
// Workers above 1 overlap the collaborator calls; completion order never
// affects the result because every chunk lands in its own slot.
func chunkedGradients(model GradientModel, noised *tensor.Tensor, label, split, workers int) (*tensor.Tensor, error) {
	spans := make([]chunkSpan, 0, split)
	offset := 0
	for _, size := range chunkSizes(noised.Shape[0], split) {
		if size == 0 {
			// split exceeds the sample count; nothing to process here
			continue
		}
		spans = append(spans, chunkSpan{from: offset, to: offset + size})
		offset += size
	}

	parts := make([]*tensor.Tensor, len(spans))

	if workers <= 1 || len(spans) == 1 {
		for i, span := range spans {
			part, err := gradientChunk(model, noised, span, label, i)
			if err != nil {
				return nil, err
			}
			parts[i] = part
		}
		return tensor.ConcatBatch(parts...)
	}

	errs := make([]error, len(spans))
	jobs := make(chan int, len(spans))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				part, err := gradientChunk(model, noised, spans[i], label, i)
				if err != nil {
					errs[i] = err
					continue
				}
				parts[i] = part
			}
		}()
	}

	for i := range spans {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return tensor.ConcatBatch(parts...)
}

func gradientChunk(model GradientModel, noised *tensor.Tensor, span chunkSpan, label, index int) (*tensor.Tensor, error) {
	chunk, err := noised.SliceBatch(span.from, span.to)
	if err != nil {
		return nil, err
	}

	labels := make([]int, span.to-span.from)
	for i := range labels {
		labels[i] = label
	}

	result, err := model.InputGradients(chunk, labels)
	if err != nil {
		return nil, fmt.Errorf("gradient chunk %d [%d:%d): %w", index, span.from, span.to, err)
	}
	if err := checkGradients(result, chunk); err != nil {
		return nil, fmt.Errorf("gradient chunk %d: %w", index, err)
	}
	return result.Gradients, nil
}
