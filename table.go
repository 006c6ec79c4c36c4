package grove

import (
	"sync"
	"sync/atomic"
)

// descriptorTable is an ordered multi-map from key to descriptors. It is
// written during registration and read-only once frozen; frozen reads take
// no lock.
type descriptorTable struct {
	mu     sync.Mutex
	frozen atomic.Bool

	byKey map[Key][]*Descriptor
	order []Key
}

func newDescriptorTable() *descriptorTable {
	return &descriptorTable{byKey: make(map[Key][]*Descriptor)}
}

// add appends d to the registrations of its key.
func (t *descriptorTable) add(d Descriptor) (*Descriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen.Load() {
		return nil, frozenError("register " + d.Key.String())
	}

	existing := t.byKey[d.Key]
	if len(existing) == 0 {
		t.order = append(t.order, d.Key)
	}
	d.slot = len(existing)
	stored := &d
	t.byKey[d.Key] = append(existing, stored)
	return stored, nil
}

// freeze runs prepare over the table under the write lock and, if it
// succeeds, makes the table read-only.
func (t *descriptorTable) freeze(prepare func(byKey map[Key][]*Descriptor, order []Key) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen.Load() {
		return frozenError("build")
	}
	if prepare != nil {
		if err := prepare(t.byKey, t.order); err != nil {
			return err
		}
	}
	t.frozen.Store(true)
	return nil
}

func (t *descriptorTable) isFrozen() bool {
	return t.frozen.Load()
}

// lookup returns the descriptors of k in registration order. The returned
// slice must not be modified.
func (t *descriptorTable) lookup(k Key) []*Descriptor {
	if t.frozen.Load() {
		return t.byKey[k]
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byKey[k]
}

// keys returns every registered key in first-registration order.
func (t *descriptorTable) keys() []Key {
	if !t.frozen.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	out := make([]Key, len(t.order))
	copy(out, t.order)
	return out
}

// len returns the number of descriptors in the table.
func (t *descriptorTable) len() int {
	if !t.frozen.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	n := 0
	for _, ds := range t.byKey {
		n += len(ds)
	}
	return n
}
