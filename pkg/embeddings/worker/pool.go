// Package worker hands embedding calls to dedicated worker goroutines. Each
// worker owns one model instance and holds that instance's lock for the
// whole call, so a model that is not safe for concurrent use is never
// entered twice.
//
// With the default size of one, every caller shares a single model and
// calls are serialised. That worker is the throughput ceiling for
// embeddings; raise Size with a Factory to widen it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/GKaszewski/k-core/pkg/embeddings"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/metrics"
)

var (
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 256
)

// Factory builds one model instance per worker.
type Factory func() (embeddings.Embedder, error)

// Config is the configuration options for the worker pool.
type Config struct {
	// Embedder is the shared model for a single-worker pool. Ignored when
	// Factory is set.
	Embedder embeddings.Embedder

	// Factory builds a model per worker. Required when Size is above one.
	Factory Factory

	// Size is the number of workers, and so of model instances (defaults to 1).
	Size uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

type result struct {
	vec []float32
	err error
}

type job struct {
	ctx      context.Context
	text     string
	enqueued time.Time
	result   chan result
}

type worker struct {
	id    uint
	mu    sync.Mutex
	model embeddings.Embedder
}

// Pool is an embeddings.Embedder that runs every call on a worker.
type Pool struct {
	queue   chan job
	workers []*worker
	wg      sync.WaitGroup
	logger  *slog.Logger

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

var _ embeddings.Embedder = (*Pool)(nil)

// NewPool builds the model instances and starts the workers.
func NewPool(c *Config) (*Pool, error) {
	if c.Size == 0 {
		c.Size = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.Size > uint(math.MaxInt32) {
		return nil, fmt.Errorf("Size %d exceeds max int32", c.Size)
	}
	if c.Factory == nil && c.Embedder == nil {
		return nil, errors.New("worker pool needs an Embedder or a Factory")
	}
	if c.Factory == nil && c.Size > 1 {
		return nil, errors.New("worker pool with more than one worker needs a Factory")
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		queue:   make(chan job, c.QueueSize),
		logger:  c.Logger,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	for i := range c.Size {
		model := c.Embedder
		if c.Factory != nil {
			m, err := c.Factory()
			if err != nil {
				p.closeModels()
				return nil, fmt.Errorf("building model for worker %d: %w", i, err)
			}
			model = m
		}
		p.workers = append(p.workers, &worker{id: i, model: model})
	}

	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go p.run(w)
	}

	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Embed queues text and waits for a worker to embed it. A cancelled ctx
// abandons the wait; a call already running on a worker runs to completion.
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	j := job{ctx: ctx, text: text, enqueued: time.Now(), result: make(chan result, 1)}

	select {
	case <-p.closing:
		return nil, embeddings.ErrPoolClosed
	default:
	}

	select {
	case p.queue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closing:
		return nil, embeddings.ErrPoolClosed
	}

	select {
	case r := <-j.result:
		return r.vec, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		select {
		case r := <-j.result:
			return r.vec, r.err
		default:
			return nil, embeddings.ErrPoolClosed
		}
	}
}

// Close stops the workers after their current call, fails queued jobs and
// closes every model.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closing)
		p.wg.Wait()

	drain:
		for {
			select {
			case j := <-p.queue:
				j.result <- result{err: embeddings.ErrPoolClosed}
			default:
				break drain
			}
		}
		close(p.done)

		err = p.closeModels()
	})
	return err
}

func (p *Pool) closeModels() error {
	var errs []error
	seen := make(map[embeddings.Embedder]bool)
	for _, w := range p.workers {
		if w.model == nil || seen[w.model] {
			continue
		}
		seen[w.model] = true
		w.mu.Lock()
		if err := w.model.Close(); err != nil {
			errs = append(errs, err)
		}
		w.mu.Unlock()
	}
	return errors.Join(errs...)
}

// run is the worker loop.
func (p *Pool) run(w *worker) {
	defer p.wg.Done()
	p.logger.Debug("embedding worker started", "worker_id", w.id)

	for {
		select {
		case <-p.closing:
			p.logger.Debug("embedding worker stopped", "worker_id", w.id)
			return
		case j := <-p.queue:
			j.result <- p.process(w, j)
		}
	}
}

func (p *Pool) process(w *worker, j job) result {
	metrics.ObserveQueueWait(time.Since(j.enqueued))
	if err := j.ctx.Err(); err != nil {
		return result{err: err}
	}

	metrics.EmbedStarted()
	defer metrics.EmbedFinished()

	w.mu.Lock()
	defer w.mu.Unlock()

	vec, err := w.model.Embed(context.WithoutCancel(j.ctx), j.text)
	if err != nil {
		p.logger.Warn("failed to generate embedding", "worker_id", w.id, "error", err)
		return result{err: err}
	}
	return result{vec: vec}
}
