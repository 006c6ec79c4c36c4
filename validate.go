package grove

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// validateGraph walks the constructor dependency graph depth-first and
// reports the first missing dependency or cycle. Factories are opaque and
// treated as leaves. With checkScopes, singletons that depend on scoped
// services are rejected too.
func validateGraph(byKey map[Key][]*Descriptor, order []Key, checkScopes bool) error {
	states := make(map[Key]visitState, len(order))
	for _, k := range order {
		if err := visitKey(byKey, k, states, nil, checkScopes); err != nil {
			return err
		}
	}
	return nil
}

func visitKey(byKey map[Key][]*Descriptor, k Key, states map[Key]visitState, stack []Key, checkScopes bool) error {
	switch states[k] {
	case visiting:
		chain := make([]Key, 0, len(stack)+1)
		for i, s := range stack {
			if s == k {
				chain = append(chain, stack[i:]...)
				break
			}
		}
		return &CircularDependencyError{Chain: append(chain, k)}
	case visited:
		return nil
	}

	states[k] = visiting
	stack = append(stack, k)

	for _, d := range byKey[k] {
		if d.Strategy != ConstructorStrategy {
			continue
		}
		for _, dep := range d.Dependencies {
			target := dep
			if _, ok := byKey[dep]; !ok {
				elem, isSlice := dep.elem()
				if !isSlice {
					return &MissingDependencyError{Dependency: dep, Requester: k}
				}
				if _, ok := byKey[elem]; !ok {
					continue
				}
				target = elem
			}

			if checkScopes && d.Lifetime == Singleton {
				for _, td := range byKey[target] {
					if td.Lifetime == Scoped {
						return &ScopeValidationError{Key: target}
					}
				}
			}

			if err := visitKey(byKey, target, states, stack, checkScopes); err != nil {
				return err
			}
		}
	}

	states[k] = visited
	return nil
}
