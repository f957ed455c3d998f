package pubsub

import (
	"context"
	"sync"
	"time"
)

// LocalHub is an in-process Hub
type LocalHub struct {
	mu     sync.Mutex
	subs   map[string]map[*localSub]struct{}
	claims map[string]time.Time
	now    func() time.Time
	closed bool
}

var _ Hub = (*LocalHub)(nil)

// NewLocalHub creates an in-process hub
func NewLocalHub() *LocalHub {
	return &LocalHub{
		subs:   make(map[string]map[*localSub]struct{}),
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (h *LocalHub) Publish(ctx context.Context, topic string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for sub := range h.subs[topic] {
		sub.push(payload)
	}
	return nil
}

func (h *LocalHub) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	sub := newLocalSub(func(s *localSub) { h.remove(topic, s) })
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*localSub]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub, nil
}

func (h *LocalHub) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	if exp, ok := h.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	h.claims[key] = now.Add(ttl)

	for k, exp := range h.claims {
		if !now.Before(exp) {
			delete(h.claims, k)
		}
	}
	return true, nil
}

// Close ends every open subscription
func (h *LocalHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*localSub
	for _, subs := range h.subs {
		for s := range subs {
			all = append(all, s)
		}
	}
	h.subs = make(map[string]map[*localSub]struct{})
	h.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
	return nil
}

func (h *LocalHub) remove(topic string, s *localSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[topic], s)
	if len(h.subs[topic]) == 0 {
		delete(h.subs, topic)
	}
}

// localSub buffers without bound so a slow reader never blocks publishers
type localSub struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]byte
	done    bool
	out     chan []byte
	stop    chan struct{}
	once    sync.Once
	onClose func(*localSub)
}

func newLocalSub(onClose func(*localSub)) *localSub {
	s := &localSub{
		out:     make(chan []byte),
		stop:    make(chan struct{}),
		onClose: onClose,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

func (s *localSub) push(payload []byte) {
	s.mu.Lock()
	if !s.done {
		s.queue = append(s.queue, payload)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *localSub) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.done {
			s.cond.Wait()
		}
		if s.done {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.stop:
			return
		}
	}
}

func (s *localSub) C() <-chan []byte {
	return s.out
}

func (s *localSub) Close() error {
	s.onClose(s)
	s.shutdown()
	return nil
}

func (s *localSub) shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.done = true
		s.queue = nil
		s.cond.Signal()
		s.mu.Unlock()
		close(s.stop)
	})
}
