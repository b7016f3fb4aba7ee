// Package keyword builds a relevance graph over the story's keyword
// dictionary and spots which keywords are relevant to a piece of text. The
// graph is derived state: it is rebuilt from the dictionary on every query
// and never persisted.
package keyword

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoGraph is returned by Spot when depth >= 2 but no graph was supplied.
var ErrNoGraph = errors.New("a graph is required for depth >= 2")

// Graph is an undirected relevance graph. Nodes are keyword keys in their
// original casing; an edge joins two keys when one key appears, case
// insensitively, inside the other's description.
type Graph struct {
	nodes map[string]struct{}
	adj   map[string]map[string]struct{}
}

// BuildGraph derives a graph from the keyword dictionary. Every key becomes
// a node; for every pair of distinct keys A and B, an edge is added when the
// lower-cased description of A contains the lower-cased key of B (the scan
// runs both directions, so containment either way links the pair). Edge
// insertion is set-like, so the result is independent of map iteration
// order.
func BuildGraph(keywords map[string]string) *Graph {
	g := &Graph{
		nodes: make(map[string]struct{}, len(keywords)),
		adj:   make(map[string]map[string]struct{}, len(keywords)),
	}

	lowerKeys := make(map[string]string, len(keywords))   // key -> lower(key)
	lowerDescs := make(map[string]string, len(keywords))  // key -> lower(description)
	for key, desc := range keywords {
		g.nodes[key] = struct{}{}
		lowerKeys[key] = strings.ToLower(key)
		lowerDescs[key] = strings.ToLower(desc)
	}

	for key, desc := range lowerDescs {
		for other, otherLower := range lowerKeys {
			if key == other {
				continue
			}
			if strings.Contains(desc, otherLower) {
				g.addEdge(key, other)
			}
		}
	}

	return g
}

func (g *Graph) addEdge(a, b string) {
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]struct{})
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]struct{})
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

// HasNode reports whether key is a node of the graph.
func (g *Graph) HasNode(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// HasEdge reports whether keys a and b are linked.
func (g *Graph) HasEdge(a, b string) bool {
	_, ok := g.adj[a][b]
	return ok
}

// Neighbors returns the keys adjacent to key, sorted for deterministic
// output.
func (g *Graph) Neighbors(key string) []string {
	neighbors := make([]string, 0, len(g.adj[key]))
	for n := range g.adj[key] {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}

// Spot returns the set of keyword keys relevant to text. At depth 1 a key is
// relevant when it appears in text, case insensitively. At depth >= 2 the
// direct match set is expanded depth-1 times through graph neighbors; the
// set only grows and the keyword universe is finite, so expansion always
// terminates.
func Spot(text string, keywords map[string]string, depth int, g *Graph) (map[string]struct{}, error) {
	if depth >= 2 && g == nil {
		return nil, ErrNoGraph
	}

	found := make(map[string]struct{})
	textLower := strings.ToLower(text)

	for key := range keywords {
		if strings.Contains(textLower, strings.ToLower(key)) {
			found[key] = struct{}{}
		}
	}

	if depth >= 2 {
		related := make(map[string]struct{}, len(found))
		for key := range found {
			related[key] = struct{}{}
		}
		for i := 1; i < depth; i++ {
			fresh := make(map[string]struct{})
			for key := range related {
				for _, neighbor := range g.Neighbors(key) {
					fresh[neighbor] = struct{}{}
				}
			}
			for key := range fresh {
				related[key] = struct{}{}
			}
		}
		for key := range related {
			found[key] = struct{}{}
		}
	}

	return found, nil
}

// Filter returns the subset of keywords whose keys are in the spotted set.
func Filter(keywords map[string]string, spotted map[string]struct{}) map[string]string {
	filtered := make(map[string]string, len(spotted))
	for key := range spotted {
		if desc, ok := keywords[key]; ok {
			filtered[key] = desc
		}
	}
	return filtered
}
