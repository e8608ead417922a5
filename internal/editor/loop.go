package editor

import (
	"context"
	"sync"
)

// holder keeps the latest snapshot. Subscribers get a one-slot channel that
// always holds the newest state; older unread states are dropped.
type holder struct {
	mu   sync.Mutex
	cur  State
	subs map[chan State]struct{}
}

func (h *holder) get() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

func (h *holder) publish(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = s
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (h *holder) subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan State]struct{})
	}
	h.subs[ch] = struct{}{}
	ch <- h.cur
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// loop runs queued jobs one at a time on a single goroutine. Enqueue never
// blocks.
type loop struct {
	holder

	mu      sync.Mutex
	pending []func(context.Context)
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func newLoop(ctx context.Context, initial State) *loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.cur = initial
	go l.run()
	return l
}

func (l *loop) enqueue(fn func(context.Context)) {
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *loop) next() (func(context.Context), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			if l.ctx.Err() != nil {
				return
			}
			fn(l.ctx)
		}
	}
}

// flush waits until every job enqueued before the call has run.
func (l *loop) flush(ctx context.Context) error {
	ch := make(chan struct{})
	l.enqueue(func(context.Context) { close(ch) })
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// stop cancels the loop without waiting; a job in progress finishes but its
// results are not observed.
func (l *loop) stop() {
	l.mu.Lock()
	l.cancel()
	l.pending = nil
	l.mu.Unlock()
}
