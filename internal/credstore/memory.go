package credstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// Memory is a process-local slot shared by several MemoryContext views.
// Each view plays the part of one context: its writes notify every other
// view's subscribers, never its own.
type Memory struct {
	key string

	mu       sync.Mutex
	value    string
	present  bool
	contexts map[*MemoryContext]struct{}
}

func NewMemory(key string) *Memory {
	if key == "" {
		key = common.DefaultCredentialKey
	}
	return &Memory{key: key, contexts: make(map[*MemoryContext]struct{})}
}

// Context opens a new view on the slot.
func (m *Memory) Context() *MemoryContext {
	c := &MemoryContext{m: m}
	m.mu.Lock()
	m.contexts[c] = struct{}{}
	m.mu.Unlock()
	return c
}

// set stores the new state and notifies the other views. Like a browser
// storage event, nothing is published when the state does not change.
func (m *Memory) set(from *MemoryContext, value string, present bool) {
	m.mu.Lock()
	if m.present == present && m.value == value {
		m.mu.Unlock()
		return
	}
	m.value, m.present = value, present
	others := make([]*MemoryContext, 0, len(m.contexts))
	for c := range m.contexts {
		if c != from {
			others = append(others, c)
		}
	}
	m.mu.Unlock()

	change := Change{Key: m.key, Token: value, Present: present}
	for _, c := range others {
		c.subs.Publish(change)
	}
}

// MemoryContext is one view on a Memory slot. It implements Backend.
type MemoryContext struct {
	m    *Memory
	subs Fanout

	mu     sync.Mutex
	closed bool
}

var _ Backend = (*MemoryContext)(nil)

func (c *MemoryContext) Read(ctx context.Context) (string, error) {
	if c.isClosed() {
		return "", common.ErrStoreClosed
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if !c.m.present {
		return "", common.ErrCredentialAbsent
	}
	return c.m.value, nil
}

func (c *MemoryContext) Write(ctx context.Context, token string) error {
	if c.isClosed() {
		return common.ErrStoreClosed
	}
	c.m.set(c, token, true)
	return nil
}

func (c *MemoryContext) Clear(ctx context.Context) error {
	if c.isClosed() {
		return common.ErrStoreClosed
	}
	c.m.set(c, "", false)
	return nil
}

func (c *MemoryContext) Subscribe(fn func(Change)) (Subscription, error) {
	if c.isClosed() {
		return nil, common.ErrStoreClosed
	}
	return c.subs.Add(fn), nil
}

// Close detaches the view and drops its subscriptions.
func (c *MemoryContext) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.m.mu.Lock()
	delete(c.m.contexts, c)
	c.m.mu.Unlock()

	c.subs.Reset()
	return nil
}

func (c *MemoryContext) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
