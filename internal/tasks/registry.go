package tasks

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/qazz92/oh-my-droid/internal/store"
)

// Registry keeps the in-memory set of tasks and mirrors it into a Store.
// Every accessor returns copies; callers never share a *Task with the
// registry.
type Registry struct {
	mu    sync.RWMutex
	store *store.Store
	tasks map[string]*Task
}

// OpenRegistry loads every valid task record from st. Malformed records are
// skipped.
func OpenRegistry(st *store.Store) (*Registry, error) {
	r := &Registry{
		store: st,
		tasks: make(map[string]*Task),
	}

	loaded, err := r.Persisted()
	if err != nil {
		return nil, err
	}
	for i := range loaded {
		t := loaded[i]
		r.tasks[t.ID] = &t
	}

	return r, nil
}

// Persisted scans the backing store. It sees records that are no longer held
// in memory, such as pruned tasks.
func (r *Registry) Persisted() ([]Task, error) {
	loaded, err := store.Scan(r.store, "", func(t *Task) error {
		return t.Validate()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return loaded, nil
}

// Dir returns the directory holding the task records.
func (r *Registry) Dir() string {
	return r.store.Root()
}

// Get returns a copy of the task with the given id.
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// All returns copies of every task, oldest first.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.clone())
	}
	sortTasks(out)
	return out
}

// Save stores t in memory and writes it to disk.
func (r *Registry) Save(t *Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.store.Put(t.ID, t); err != nil {
		return fmt.Errorf("failed to persist task %s: %w", t.ID, err)
	}

	r.mu.Lock()
	r.tasks[t.ID] = t.clone()
	r.mu.Unlock()
	return nil
}

// Track stores t in memory only.
func (r *Registry) Track(t *Task) {
	r.mu.Lock()
	r.tasks[t.ID] = t.clone()
	r.mu.Unlock()
}

// Forget drops a task from memory and leaves its record on disk.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

// Delete drops a task from memory and disk. It reports whether the task
// existed in either place.
func (r *Registry) Delete(id string) (bool, error) {
	r.mu.Lock()
	_, inMemory := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	onDisk, err := r.store.Delete(id)
	if err != nil {
		return inMemory, err
	}
	return inMemory || onDisk, nil
}

func sortTasks(list []*Task) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.Before(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func logRecordError(action, id string, err error) {
	log.Printf("warning: failed to %s task %s: %v", action, id, err)
}
