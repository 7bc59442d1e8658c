package vectfit

import "sync"

// forEachChannel runs fn for every response channel index in [0, nv),
// splitting the range across at most workers goroutines. Every channel owns a
// disjoint row block of the stage's accumulation matrices, so the workers
// need no locking; the first error encountered is returned.
func forEachChannel(nv, workers int, fn func(ch int) error) error {
	if workers > nv {
		workers = nv
	}
	if workers <= 1 {
		for ch := 0; ch < nv; ch++ {
			if err := fn(ch); err != nil {
				return err
			}
		}
		return nil
	}

	chunk := (nv + workers - 1) / workers
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > nv {
			end = nv
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			for ch := start; ch < end; ch++ {
				if err := fn(ch); err != nil {
					errs[w] = err
					return
				}
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
