package knowledge

import (
	"sort"
	"strings"
)

// Graph links items that share semantic tags. Nodes are the single source of
// truth for in-memory items; edges are always symmetric. Two auxiliary
// indexes bound search cost: semantic clusters keyed by an item's top tags,
// and an inverted tag index so edge-candidate lookup is sub-linear instead
// of a scan over every node.
type Graph struct {
	nodes    map[string]*Item
	edges    map[string]map[string]struct{}
	clusters map[string]map[string]struct{}
	tagIndex map[string]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Item),
		edges:    make(map[string]map[string]struct{}),
		clusters: make(map[string]map[string]struct{}),
		tagIndex: make(map[string]map[string]struct{}),
	}
}

// AddNode registers an item and indexes its tags. Re-adding an id replaces
// the node but keeps existing edges.
func (g *Graph) AddNode(it *Item) {
	if old, ok := g.nodes[it.ID]; ok {
		g.unindex(old)
	}
	g.nodes[it.ID] = it
	for _, tag := range it.SemanticTags {
		ids, ok := g.tagIndex[tag]
		if !ok {
			ids = make(map[string]struct{})
			g.tagIndex[tag] = ids
		}
		ids[it.ID] = struct{}{}
	}
	key := ClusterKey(it.SemanticTags)
	if key != "" {
		cluster, ok := g.clusters[key]
		if !ok {
			cluster = make(map[string]struct{})
			g.clusters[key] = cluster
		}
		cluster[it.ID] = struct{}{}
	}
}

// RemoveNode drops an item, its index entries, and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	it, ok := g.nodes[id]
	if !ok {
		return
	}
	g.unindex(it)
	for peer := range g.edges[id] {
		delete(g.edges[peer], id)
		if len(g.edges[peer]) == 0 {
			delete(g.edges, peer)
		}
	}
	delete(g.edges, id)
	delete(g.nodes, id)
}

func (g *Graph) unindex(it *Item) {
	for _, tag := range it.SemanticTags {
		delete(g.tagIndex[tag], it.ID)
		if len(g.tagIndex[tag]) == 0 {
			delete(g.tagIndex, tag)
		}
	}
	key := ClusterKey(it.SemanticTags)
	if key != "" {
		delete(g.clusters[key], it.ID)
		if len(g.clusters[key]) == 0 {
			delete(g.clusters, key)
		}
	}
}

// Node returns the item for an id, or nil.
func (g *Graph) Node(id string) *Item {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IDs returns all node ids. Order is unspecified.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// AddEdge inserts a symmetric edge between two nodes. Self-edges and edges
// to unknown nodes are ignored.
func (g *Graph) AddEdge(a, b string) {
	if a == b {
		return
	}
	if g.nodes[a] == nil || g.nodes[b] == nil {
		return
	}
	if g.edges[a] == nil {
		g.edges[a] = make(map[string]struct{})
	}
	if g.edges[b] == nil {
		g.edges[b] = make(map[string]struct{})
	}
	g.edges[a][b] = struct{}{}
	g.edges[b][a] = struct{}{}
}

// RemoveEdge deletes both directions of an edge.
func (g *Graph) RemoveEdge(a, b string) {
	delete(g.edges[a], b)
	delete(g.edges[b], a)
	if len(g.edges[a]) == 0 {
		delete(g.edges, a)
	}
	if len(g.edges[b]) == 0 {
		delete(g.edges, b)
	}
}

// Neighbors returns the ids connected to the given id.
func (g *Graph) Neighbors(id string) []string {
	peers := g.edges[id]
	if len(peers) == 0 {
		return nil
	}
	out := make([]string, 0, len(peers))
	for p := range peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasEdge reports whether a symmetric edge exists.
func (g *Graph) HasEdge(a, b string) bool {
	_, ok := g.edges[a][b]
	return ok
}

// EdgePairs returns each undirected edge exactly once as [2]string{low, high}.
func (g *Graph) EdgePairs() [][2]string {
	var pairs [][2]string
	for a, peers := range g.edges {
		for b := range peers {
			if a < b {
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	return pairs
}

// CandidatesSharingTags returns, via the inverted tag index, every node id
// sharing at least one of the given tags, with the shared-tag count.
func (g *Graph) CandidatesSharingTags(tags []string) map[string]int {
	counts := make(map[string]int)
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		for id := range g.tagIndex[tag] {
			counts[id]++
		}
	}
	return counts
}

// ClusterKey derives a cluster grouping key from the top-3 semantic tags.
func ClusterKey(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	top := make([]string, 0, 3)
	for _, t := range tags {
		if t == "" {
			continue
		}
		top = append(top, t)
		if len(top) == 3 {
			break
		}
	}
	sort.Strings(top)
	return strings.Join(top, "/")
}

// Cluster returns the node ids grouped under a cluster key.
func (g *Graph) Cluster(key string) []string {
	ids := g.clusters[key]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
