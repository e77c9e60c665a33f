package dag

import (
	"fmt"
	"sort"
)

// Reachable returns every node reachable from root by following dependency
// edges, root included. follow is consulted for each edge (from the
// dependent to its dependency); returning false prunes that edge. The
// result is sorted.
func (g *Graph) Reachable(root string, follow func(dependent, dependency string) bool) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[root]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", root)
	}

	seen := map[string]bool{root: true}
	queue := []*node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, id := range sortedKeys(n.deps) {
			if seen[id] {
				continue
			}
			if follow != nil && !follow(n.id, id) {
				continue
			}
			seen[id] = true
			queue = append(queue, n.deps[id])
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// TopoOrder orders the given subset so that every node comes after the
// nodes it depends on. Ties are broken by ID. Edges leaving the subset are
// ignored. The subset must be acyclic.
func (g *Graph) TopoOrder(ids []string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return nil, fmt.Errorf("node not found: %s", id)
		}
		in[id] = true
	}

	pending := make(map[string]int, len(in))
	var ready []string
	for id := range in {
		count := 0
		for dep := range g.nodes[id].deps {
			if in[dep] {
				count++
			}
		}
		pending[id] = count
		if count == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(in))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for dependent := range g.nodes[id].dependents {
			if !in[dependent] {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(in) {
		return nil, fmt.Errorf("subset contains a cycle")
	}
	return order, nil
}
