package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Parallel compiles several binaries at once into one temporary directory.
type Parallel struct {
	compiler    *Compiler
	parallelism int
	work        []Work
}

func NewParallel(parallelism int) *Parallel {
	if parallelism <= 0 {
		parallelism = 2
	}
	return &Parallel{
		compiler:    New(),
		parallelism: parallelism,
	}
}

func (t *Parallel) Dir() string {
	return t.compiler.Dir()
}

func (t *Parallel) Cleanup() {
	t.compiler.Cleanup()
}

func (t *Parallel) Add(work Work) {
	mustValidateWork(work)
	t.work = append(t.work, work)
}

// Run compiles everything added so far. Work whose Result is already set is skipped.
func (t *Parallel) Run(ctx context.Context) error {
	workCh := make(chan Work, len(t.work))
	for _, w := range t.work {
		if w.Result != nil && *w.Result != "" {
			continue
		}
		workCh <- w
	}
	close(workCh)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < t.parallelism; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case w, ok := <-workCh:
					if !ok {
						return nil
					}
					if _, err := t.compiler.Compile(ctx, w); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

func mustValidateWork(work Work) {
	if work.Name == "" {
		panic("work.Name not set")
	}
	if work.Target == "" {
		panic("work.Target not set")
	}
	if work.Source == "" {
		panic("work.Source not set")
	}
}
