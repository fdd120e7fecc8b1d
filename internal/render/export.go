package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/models"
)

// ExportOptions controls ExportTimeline.
type ExportOptions struct {
	// Workers bounds parallel rendering; zero uses GOMAXPROCS.
	Workers int
	// IncludeInitial also writes the frame before the first step.
	IncludeInitial bool
	// Prefix is prepended to every file name.
	Prefix string
}

// ExportTimeline renders every step of timeline into dir and returns the
// written paths in step order. The first failure cancels the remaining work.
func ExportTimeline(ctx context.Context, timeline *engine.Timeline, r Renderer, dir string, opts ExportOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	first := 0
	if opts.IncludeInitial {
		first = engine.InitialStep
	}
	steps := make([]int, 0, timeline.Len()+1)
	for i := first; i < timeline.Len(); i++ {
		steps = append(steps, i)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	plan := timeline.Plan()
	paths := make([]string, len(steps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for n, step := range steps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame := timeline.Frame(models.StateAt(plan, step))

			var buf bytes.Buffer
			if err := r.Render(&buf, frame); err != nil {
				return fmt.Errorf("rendering step %d: %w", step, err)
			}

			path := filepath.Join(dir, fmt.Sprintf("%sstep-%03d%s", opts.Prefix, step+1, r.Extension()))
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("writing step %d: %w", step, err)
			}
			paths[n] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fmt.Printf("[Export] Wrote %d frames to %s\n", len(paths), dir)
	return paths, nil
}
