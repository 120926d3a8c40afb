// Package threadstore persists conversation threads between agent
// invocations. A thread holds the durable conversation state plus the
// checkpoint log of completed runs.
package threadstore

import (
	"context"
	"slices"
	"sync"

	"github.com/alphadose/haxmap"

	"github.com/HuyNguyen260398/bob/workflow"
)

// Thread is one persistent conversation.
type Thread struct {
	ID          string
	State       *workflow.State
	Checkpoints []workflow.Checkpoint
}

// UpdateFunc mutates a thread in place while the store holds its lock.
type UpdateFunc func(*Thread) error

// Store is the thread persistence contract. Update runs serialized per
// thread id so concurrent runs on the same thread never interleave; Get
// returns an isolated snapshot, with ok=false on an unknown id, never
// an error; Delete is idempotent.
type Store interface {
	Update(ctx context.Context, id string, fn UpdateFunc) error
	Get(ctx context.Context, id string) (Thread, bool)
	Delete(ctx context.Context, id string) error
}

type entry struct {
	mu     sync.Mutex
	thread Thread
}

// InMemory is a process-local store.
type InMemory struct {
	threads *haxmap.Map[string, *entry]
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{threads: haxmap.New[string, *entry]()}
}

// Update creates the thread on first use and applies fn under the
// thread's lock.
func (s *InMemory) Update(_ context.Context, id string, fn UpdateFunc) error {
	e, _ := s.threads.GetOrCompute(id, func() *entry {
		return &entry{thread: Thread{ID: id, State: workflow.NewState()}}
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.thread)
}

// Get returns a deep snapshot of the thread taken under its lock. The
// snapshot is independent of later updates, so readers never race with
// a concurrent run on the same thread.
func (s *InMemory) Get(_ context.Context, id string) (Thread, bool) {
	e, ok := s.threads.Get(id)
	if !ok {
		return Thread{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.thread
	snap.State = e.thread.State.Clone()
	snap.Checkpoints = slices.Clone(e.thread.Checkpoints)
	return snap, true
}

// Delete removes the thread. Deleting an unknown id is a no-op.
func (s *InMemory) Delete(_ context.Context, id string) error {
	s.threads.Del(id)
	return nil
}
