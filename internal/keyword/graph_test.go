package keyword

import (
	"errors"
	"sort"
	"testing"
)

func spotKeys(t *testing.T, text string, keywords map[string]string, depth int, g *Graph) []string {
	t.Helper()
	spotted, err := Spot(text, keywords, depth, g)
	if err != nil {
		t.Fatalf("Spot: %v", err)
	}
	keys := make([]string, 0, len(spotted))
	for k := range spotted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildGraphContainmentEdges(t *testing.T) {
	keywords := map[string]string{
		"forest": "a dark wood",
		"brook":  "a stream near the forest",
	}

	g := BuildGraph(keywords)

	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d, want 2", g.NodeCount())
	}
	if !g.HasEdge("forest", "brook") || !g.HasEdge("brook", "forest") {
		t.Error("expected undirected edge forest—brook")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
}

func TestBuildGraphCaseInsensitive(t *testing.T) {
	keywords := map[string]string{
		"Eldershire": "a town with ancient secrets",
		"estate":     "an old mansion in ELDERSHIRE",
	}

	g := BuildGraph(keywords)

	if !g.HasEdge("estate", "Eldershire") {
		t.Error("expected edge despite case difference")
	}
	if !g.HasNode("Eldershire") {
		t.Error("node keys should keep their original casing")
	}
}

func TestBuildGraphNoSelfEdges(t *testing.T) {
	keywords := map[string]string{
		"mirror": "a mirror reflecting the mirror itself",
	}

	g := BuildGraph(keywords)
	if g.HasEdge("mirror", "mirror") {
		t.Error("self edges must not be created")
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0", g.EdgeCount())
	}
}

func TestGraphDeterminism(t *testing.T) {
	// Same dictionary assembled in different insertion orders must yield
	// identical node and edge sets.
	build := func(order []string) *Graph {
		descs := map[string]string{
			"Eldershire": "a town with ancient secrets and whispers",
			"estate":     "an old mansion in Eldershire, cloaked in mystery",
			"ballroom":   "a once-lavish room in the estate",
			"chandelier": "a tarnished fixture in the ballroom of the estate",
		}
		m := make(map[string]string)
		for _, k := range order {
			m[k] = descs[k]
		}
		return BuildGraph(m)
	}

	g1 := build([]string{"Eldershire", "estate", "ballroom", "chandelier"})
	g2 := build([]string{"chandelier", "ballroom", "estate", "Eldershire"})

	if g1.NodeCount() != g2.NodeCount() {
		t.Fatalf("node counts differ: %d vs %d", g1.NodeCount(), g2.NodeCount())
	}
	if g1.EdgeCount() != g2.EdgeCount() {
		t.Fatalf("edge counts differ: %d vs %d", g1.EdgeCount(), g2.EdgeCount())
	}
	for _, key := range []string{"Eldershire", "estate", "ballroom", "chandelier"} {
		if !equalStrings(g1.Neighbors(key), g2.Neighbors(key)) {
			t.Errorf("neighbors of %q differ: %v vs %v", key, g1.Neighbors(key), g2.Neighbors(key))
		}
	}
}

func TestSpotDepthOne(t *testing.T) {
	keywords := map[string]string{
		"forest": "a dark wood",
		"brook":  "a stream near the forest",
	}

	got := spotKeys(t, "You see a forest", keywords, 1, nil)
	if !equalStrings(got, []string{"forest"}) {
		t.Errorf("depth 1 spotted %v, want [forest]", got)
	}
}

func TestSpotDepthTwoExpandsThroughGraph(t *testing.T) {
	keywords := map[string]string{
		"forest": "a dark wood",
		"brook":  "a stream near the forest",
	}
	g := BuildGraph(keywords)

	// brook's description mentions forest, so depth 2 pulls brook in.
	got := spotKeys(t, "You see a forest", keywords, 2, g)
	if !equalStrings(got, []string{"brook", "forest"}) {
		t.Errorf("depth 2 spotted %v, want [brook forest]", got)
	}
}

func TestSpotDeeperChain(t *testing.T) {
	keywords := map[string]string{
		"ballroom":   "a grand room inside the estate",
		"estate":     "the Whitmore estate in Eldershire",
		"Eldershire": "a town of ancient secrets",
		"figure":     "a cloaked individual",
	}
	g := BuildGraph(keywords)

	depth2 := spotKeys(t, "You have arrived at the ballroom.", keywords, 2, g)
	if !equalStrings(depth2, []string{"ballroom", "estate"}) {
		t.Errorf("depth 2 spotted %v, want [ballroom estate]", depth2)
	}

	depth3 := spotKeys(t, "You have arrived at the ballroom.", keywords, 3, g)
	if !equalStrings(depth3, []string{"Eldershire", "ballroom", "estate"}) {
		t.Errorf("depth 3 spotted %v, want [Eldershire ballroom estate]", depth3)
	}
}

func TestSpotCaseInsensitiveMatching(t *testing.T) {
	keywords := map[string]string{"Forest": "a dark wood"}

	got := spotKeys(t, "deep in the FOREST", keywords, 1, nil)
	if !equalStrings(got, []string{"Forest"}) {
		t.Errorf("spotted %v, want [Forest] with original casing", got)
	}
}

func TestSpotRequiresGraphForDepthTwo(t *testing.T) {
	_, err := Spot("text", map[string]string{"a": "b"}, 2, nil)
	if !errors.Is(err, ErrNoGraph) {
		t.Fatalf("expected ErrNoGraph, got %v", err)
	}
}

func TestSpotNoMatches(t *testing.T) {
	keywords := map[string]string{"dragon": "a fire-breathing beast"}
	g := BuildGraph(keywords)

	got := spotKeys(t, "a quiet meadow", keywords, 2, g)
	if len(got) != 0 {
		t.Errorf("spotted %v, want empty set", got)
	}
}

func TestFilter(t *testing.T) {
	keywords := map[string]string{
		"forest": "a dark wood",
		"brook":  "a stream",
	}
	spotted := map[string]struct{}{
		"forest":  {},
		"unknown": {},
	}

	filtered := Filter(keywords, spotted)
	if len(filtered) != 1 || filtered["forest"] != "a dark wood" {
		t.Errorf("Filter = %v, want only forest", filtered)
	}
}
