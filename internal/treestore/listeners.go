package treestore

import (
	"context"
	"log"
	"sync"
)

type listener struct {
	id   uint64
	path string
	fn   ChangeFunc
	ctx  context.Context
}

// listenerRegistry tracks path subscriptions and dispatches change events to them.
type listenerRegistry struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]*listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{listeners: make(map[uint64]*listener)}
}

func (r *listenerRegistry) add(ctx context.Context, path string, fn ChangeFunc) {
	r.mu.Lock()
	r.nextID++
	l := &listener{id: r.nextID, path: path, fn: fn, ctx: ctx}
	r.listeners[l.id] = l
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.listeners, l.id)
		r.mu.Unlock()
	}()
}

func (r *listenerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// dispatch calls every listener whose path is related to one of the written
// paths. Each call runs on its own goroutine, so completion order is undefined.
func (r *listenerRegistry) dispatch(ev ChangeEvent) {
	r.mu.RLock()
	matched := make([]*listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		for _, p := range ev.Paths {
			if Related(l.path, p) {
				matched = append(matched, l)
				break
			}
		}
	}
	r.mu.RUnlock()

	for _, l := range matched {
		go invoke(l, ev)
	}
}

func invoke(l *listener, ev ChangeEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("treestore listener panic path=%s: %v", l.path, rec)
		}
	}()
	if l.ctx.Err() != nil {
		return
	}
	if err := l.fn(l.ctx, ev); err != nil {
		log.Printf("treestore listener error path=%s: %v", l.path, err)
	}
}
