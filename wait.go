package grove

import (
	"slices"
	"sync"
)

// call identifies one top-level resolve call. Nested resolutions made on
// its behalf share it. waiting and chain are guarded by waitGraph.mu.
type call struct {
	waiting *entry
	chain   []Key
}

// waitGraph records which call is blocked on which cache entry. Before a
// call blocks it follows the owners of the entries being waited on; if the
// path leads back to the call itself, the calls hold each other's entries
// and the wait would never end.
type waitGraph struct {
	mu sync.Mutex
}

// enter registers c as waiting on e, or returns a
// [*CircularDependencyError] when that wait would close a cycle. chain is
// the caller's resolution chain and ends with the key of e.
func (g *waitGraph) enter(c *call, chain []Key, e *entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := slices.Clone(chain)
	for owner := e.owner; owner != nil; {
		if owner == c {
			return &CircularDependencyError{Chain: closeCycle(path)}
		}
		next := owner.waiting
		if next == nil || next.isDone() {
			break
		}
		path = appendAfter(path, owner.chain)
		owner = next.owner
	}

	c.waiting = e
	c.chain = slices.Clone(chain)
	return nil
}

func (g *waitGraph) leave(c *call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.waiting = nil
	c.chain = nil
}

// appendAfter extends path with the part of chain that follows the last key
// of path.
func appendAfter(path, chain []Key) []Key {
	if len(path) == 0 {
		return append(path, chain...)
	}
	idx := slices.Index(chain, path[len(path)-1])
	return append(path, chain[idx+1:]...)
}

// closeCycle trims path so that it starts at the first occurrence of its
// last key.
func closeCycle(path []Key) []Key {
	if len(path) == 0 {
		return path
	}
	if idx := slices.Index(path, path[len(path)-1]); idx < len(path)-1 {
		return path[idx:]
	}
	return path
}
