// Package bus implements the cross-context change bus: the mechanism
// that keeps every open view of shared keyed state eventually
// consistent across "tabs".
//
// An Origin models one browser profile. It owns the backing Store and
// the set of open Contexts (tabs). The notification model mirrors the
// platform it replaces, and subscribers must use both channels:
//
//   - Key changes written through a Context are delivered to key
//     subscribers in every OTHER context on the same Origin. The
//     writing context is deliberately not notified; native storage
//     events never fire in the window that performed the write.
//   - Announce raises a named custom event in the announcing context
//     only, covering the same-tab updates the key channel misses.
//     Writers call it explicitly after writes that in-page components
//     must observe (login/logout, points changes).
//
// Delivery is synchronous and ordered by call order within a context.
// Across contexts the only guarantee is "eventually observed";
// consumers layer polling on top as a safety net. An Origin with two
// open Contexts doubles as the multi-tab test double.
package bus

import (
	"sync"

	"github.com/CapOVH/dasssb/internal/storage"
)

// KeyHandler observes a key change. present is false for deletions.
type KeyHandler func(value string, present bool)

// EventHandler observes a same-context custom event.
type EventHandler func()

// Origin is one shared storage profile and its open contexts.
type Origin struct {
	mu       sync.Mutex
	store    storage.Store
	contexts []*Context
}

func NewOrigin(store storage.Store) *Origin {
	return &Origin{store: store}
}

// OpenContext opens a new tab on this origin.
func (o *Origin) OpenContext() *Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := &Context{
		origin:    o,
		keySubs:   make(map[string][]KeyHandler),
		eventSubs: make(map[string][]EventHandler),
	}
	o.contexts = append(o.contexts, c)
	return c
}

// broadcast delivers a key change to every context except the writer.
// Handlers are collected under the lock and invoked outside it, so a
// handler may itself read or write the store.
func (o *Origin) broadcast(from *Context, key, value string, present bool) {
	o.mu.Lock()
	targets := append([]*Context(nil), o.contexts...)
	o.mu.Unlock()

	var handlers []KeyHandler
	for _, c := range targets {
		if c == from {
			continue
		}
		c.mu.Lock()
		handlers = append(handlers, c.keySubs[key]...)
		c.mu.Unlock()
	}

	for _, fn := range handlers {
		fn(value, present)
	}
}

func (o *Origin) detach(ctx *Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.contexts {
		if c == ctx {
			o.contexts = append(o.contexts[:i], o.contexts[i+1:]...)
			return
		}
	}
}

// Context is one tab's view of the origin: write-through storage access
// plus the two notification channels.
type Context struct {
	origin    *Origin
	mu        sync.Mutex
	keySubs   map[string][]KeyHandler
	eventSubs map[string][]EventHandler
	closed    bool
}

// Get reads straight through to the shared store.
func (c *Context) Get(key string) (string, bool) {
	return c.origin.store.Get(key)
}

// Set writes through to the shared store, then notifies key
// subscribers in all other contexts.
func (c *Context) Set(key, value string) {
	c.origin.store.Set(key, value)
	c.origin.broadcast(c, key, value, true)
}

// Delete removes the key and notifies other contexts with present=false.
func (c *Context) Delete(key string) {
	c.origin.store.Delete(key)
	c.origin.broadcast(c, key, "", false)
}

// Subscribe registers a handler for changes to one storage key made by
// OTHER contexts. Changes made through this context are not delivered.
func (c *Context) Subscribe(key string, fn KeyHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.keySubs[key] = append(c.keySubs[key], fn)
}

// On registers a handler for a named custom event raised in THIS
// context via Announce.
func (c *Context) On(event string, fn EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.eventSubs[event] = append(c.eventSubs[event], fn)
}

// Announce raises a custom event in this context only. Call it after
// any write whose same-tab observers would otherwise miss the change.
func (c *Context) Announce(event string) {
	c.mu.Lock()
	handlers := append([]EventHandler(nil), c.eventSubs[event]...)
	c.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

// Close detaches the context from its origin and drops all
// subscriptions. Pending notifications already in flight still run.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.keySubs = make(map[string][]KeyHandler)
	c.eventSubs = make(map[string][]EventHandler)
	c.mu.Unlock()
	c.origin.detach(c)
}
