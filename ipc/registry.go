package ipc

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

const listenPrefix = "Listen-"

// Registry maps topics to their subscriptions.
//
// A Registry is created once per process and handed to whoever needs it; there is
// no package-level instance. It is concurrency-safe. Subscription ids are never
// reused for the lifetime of the Registry, and a topic entry stays in place once
// created even when all its subscriptions are gone.
type Registry struct {
	mu     sync.RWMutex
	seq    atomic.Uint64
	topics map[string][]subscription
}

type subscription struct {
	id string
	fn cipc.MessageHandler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string][]subscription)}
}

// Subscribe registers fn for topic and returns the key that removes it again.
// Subscriptions on the same topic are independent and kept in registration order.
func (r *Registry) Subscribe(topic string, fn cipc.MessageHandler) cipc.ListenKey {
	if fn == nil {
		fn = func(any) {}
	}

	key := cipc.ListenKey{Key: topic, ID: listenPrefix + strconv.FormatUint(r.seq.Add(1), 10)}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics[topic] = append(r.topics[topic], subscription{id: key.ID, fn: fn})

	return key
}

// Unsubscribe removes the subscription identified by key. Unknown or already
// removed keys are ignored.
func (r *Registry) Unsubscribe(key cipc.ListenKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[key.Key]
	if !ok {
		return
	}

	r.topics[key.Key] = slices.DeleteFunc(subs, func(s subscription) bool { return s.id == key.ID })
}

// Count reports how many subscriptions topic currently has.
func (r *Registry) Count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.topics[topic])
}

// handlers returns a snapshot of the handlers for topic so callers can invoke
// them while subscriptions change underneath.
func (r *Registry) handlers(topic string) []cipc.MessageHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	if len(subs) == 0 {
		return nil
	}

	out := make([]cipc.MessageHandler, len(subs))
	for i, s := range subs {
		out[i] = s.fn
	}

	return out
}
