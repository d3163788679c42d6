package artifacts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrCycle = errors.New("library dependency cycle")

// Graph maps each contract to the libraries it links against.
type Graph map[string][]string

// BuildGraph collects the link dependencies of roots and, transitively, of their libraries.
func BuildGraph(src Source, roots ...string) (Graph, error) {
	g := make(Graph)
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := g[name]; ok {
			continue
		}
		a, err := src.Artifact(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		deps := a.LinkReferences.Libraries()
		g[name] = deps
		queue = append(queue, deps...)
	}
	return g, nil
}

// Order sorts the graph topologically: every library comes before the contracts linking it.
// Ties are broken by name so the order is deterministic.
func (g Graph) Order() ([]string, error) {
	indegree := make(map[string]int, len(g))
	dependents := make(map[string][]string)
	for name, deps := range g {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}
		for _, dep := range deps {
			if _, ok := indegree[dep]; !ok {
				indegree[dep] = 0
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	out := make([]string, 0, len(indegree))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		next := dependents[name]
		sort.Strings(next)
		for _, d := range next {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}
	if len(out) != len(indegree) {
		var stuck []string
		for name, n := range indegree {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return out, nil
}
