package broker

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscription channel capacity used by the
// adapters when none is configured.
const DefaultBuffer = 64

// Stream is a Subscription fed by a producer. Adapters push payloads with
// Deliver and register a stop hook that tears down the transport side.
type Stream struct {
	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	once sync.Once
	stop func(*Stream) error
	err  error
}

var _ Subscription = (*Stream)(nil)

// NewStream creates a stream bound to ctx. When ctx is done the stream
// closes itself. stop may be nil.
func NewStream(ctx context.Context, buffer int, stop func() error) *Stream {
	if stop == nil {
		return NewStreamFunc(ctx, buffer, nil)
	}
	return NewStreamFunc(ctx, buffer, func(*Stream) error { return stop() })
}

// NewStreamFunc is NewStream for stop hooks that need the stream itself.
// The hook receives the stream, so callers never capture a variable that
// the context watcher could read before it is assigned.
func NewStreamFunc(ctx context.Context, buffer int, stop func(*Stream) error) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		out:    make(chan []byte, buffer),
		ctx:    sctx,
		cancel: cancel,
		stop:   stop,
	}
	go func() {
		<-sctx.Done()
		s.Close()
	}()
	return s
}

// Context is done once the stream is closing.
func (s *Stream) Context() context.Context {
	return s.ctx
}

// Go runs a producer. Close waits for it to return.
func (s *Stream) Go(produce func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		produce(s.ctx)
	}()
}

// Deliver hands msg to the subscriber. It blocks while the buffer is full
// until the subscriber reads, the stream closes, or ctx is done. Only a done
// ctx is reported as an error; a closed stream drops msg silently.
func (s *Stream) Deliver(ctx context.Context, msg []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}

	select {
	case s.out <- msg:
		return nil
	case <-s.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) Messages() <-chan []byte {
	return s.out
}

func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		if s.stop != nil {
			s.err = s.stop(s)
		}
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
	})
	return s.err
}
