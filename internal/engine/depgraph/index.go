// Package depgraph implements the dependency index over project-relative file paths.
package depgraph

import "slices"

// Index is a read-only view over directed dependency edges. Edges may form cycles.
type Index struct {
	forward map[string][]string
	reverse map[string][]string
}

// New builds an index over the given edges. The map is not retained.
func New(edges map[string][]string) *Index {
	idx := &Index{
		forward: make(map[string][]string, len(edges)),
		reverse: make(map[string][]string),
	}
	for from, deps := range edges {
		idx.forward[from] = slices.Clone(deps)
		for _, to := range deps {
			if !slices.Contains(idx.reverse[to], from) {
				idx.reverse[to] = append(idx.reverse[to], from)
			}
		}
	}
	return idx
}

// Direct returns the direct dependencies of p.
func (i *Index) Direct(p string) []string {
	return slices.Clone(i.forward[p])
}

// Has reports whether p has outgoing edges recorded.
func (i *Index) Has(p string) bool {
	_, ok := i.forward[p]
	return ok
}

// AllDependencies returns every path p eventually depends on, in discovery order and without p.
func (i *Index) AllDependencies(p string) []string {
	return Closure(p, func(n string) []string { return i.forward[n] })
}

// AllDependents returns every path that eventually depends on p, in discovery order and without p.
func (i *Index) AllDependents(p string) []string {
	return Closure(p, func(n string) []string { return i.reverse[n] })
}

// Closure walks next from start with an explicit worklist and a visited set, so it terminates on
// cyclic graphs and never reports a node twice. start itself is never reported.
func Closure(start string, next func(string) []string) []string {
	visited := map[string]struct{}{start: {}}
	stack := slices.Clone(next(start))
	slices.Reverse(stack)

	var result []string
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[n]; seen {
			continue
		}
		visited[n] = struct{}{}
		result = append(result, n)

		children := next(n)
		for j := len(children) - 1; j >= 0; j-- {
			if _, seen := visited[children[j]]; !seen {
				stack = append(stack, children[j])
			}
		}
	}
	return result
}
