package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/fsutil"
	"github.com/vk/bundlego/internal/mapping"
)

// maxCopyWorkers caps the number of concurrent file copies.
const maxCopyWorkers = 8

// copyPool copies data files into a staging directory with a fixed number of
// workers. The first failure cancels the remaining copies.
type copyPool struct {
	dir     string
	workers int

	mu  sync.Mutex
	err error
	wg  sync.WaitGroup
}

func newCopyPool(dir string, files int) *copyPool {
	workers := min(runtime.NumCPU(), maxCopyWorkers, files)
	return &copyPool{dir: dir, workers: max(workers, 1)}
}

// run copies every file and returns the first error encountered.
func (p *copyPool) run(ctx context.Context, files []mapping.File) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan mapping.File)
	for id := 0; id < p.workers; id++ {
		p.wg.Add(1)
		go p.worker(ctx, jobs, cancel, id)
	}

feed:
	for _, f := range files {
		select {
		case jobs <- f:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	p.wg.Wait()

	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

func (p *copyPool) worker(ctx context.Context, jobs <-chan mapping.File, cancel context.CancelFunc, workerID int) {
	defer p.wg.Done()
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for f := range jobs {
		if ctx.Err() != nil {
			continue
		}
		if err := fsutil.CopyFile(f.Source, filepath.Join(p.dir, filepath.FromSlash(f.Target))); err != nil {
			logger.Debug("Copy failed.", "source", f.Source, "error", err)
			p.fail(fmt.Errorf("copying data %q: %w", f.Label, err))
			cancel()
		}
	}
}

func (p *copyPool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}
