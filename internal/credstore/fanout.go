package credstore

import "sync"

// Fanout delivers a Change to every live subscription. Backends embed it to
// share release semantics.
type Fanout struct {
	mu   sync.Mutex
	subs map[*fanoutSub]struct{}
}

type fanoutSub struct {
	owner *Fanout

	mu     sync.Mutex
	fn     func(Change)
	active bool
}

// Add registers fn and returns its subscription.
func (f *Fanout) Add(fn func(Change)) Subscription {
	s := &fanoutSub{owner: f, fn: fn, active: true}

	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[*fanoutSub]struct{})
	}
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	return s
}

// live returns the number of live subscriptions.
func (f *Fanout) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish calls every live subscriber synchronously.
func (f *Fanout) Publish(c Change) {
	f.mu.Lock()
	subs := make([]*fanoutSub, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.deliver(c)
	}
}

// Reset drops every subscription.
func (f *Fanout) Reset() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()

	for s := range subs {
		s.deactivate()
	}
}

func (s *fanoutSub) deliver(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fn(c)
	}
}

func (s *fanoutSub) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *fanoutSub) Unsubscribe() {
	s.owner.mu.Lock()
	delete(s.owner.subs, s)
	s.owner.mu.Unlock()

	s.deactivate()
}
