package graph

import (
	"fmt"
	"slices"
	"sync"
)

// Provider defines the interface for providers that can be added to the graph.
// This abstraction keeps the graph independent of the resolver's types.
type Provider interface {
	// GraphKey returns the key the provider is registered under
	GraphKey() NodeKey

	// GraphDependencies returns the keys the provider needs, in order
	GraphDependencies() []NodeKey

	// GraphMulti reports whether the provider is a multi provider
	GraphMulti() bool
}

// DependencyGraph manages the dependency relationships between providers.
// It provides cycle detection, topological sorting, and dependency analysis.
// Iteration follows the order in which nodes were first seen.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
	edges map[NodeKey][]NodeKey // node -> its dependencies
	order []NodeKey
}

// NodeKey uniquely identifies a node in the graph
type NodeKey struct {
	ID   int
	Name string
}

// Node represents a key in the dependency graph
type Node struct {
	Key      NodeKey
	Provider Provider // nil when the key is only depended upon

	// Graph metadata
	InDegree  int // number of dependents
	OutDegree int // number of dependencies
	Depth     int // longest dependency chain below the node

	// Dependency information
	Dependencies []NodeKey // keys this node depends on
	Dependents   []NodeKey // keys that depend on this node
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[NodeKey]*Node),
		edges: make(map[NodeKey][]NodeKey),
	}
}

// AddProvider adds a provider and its dependency edges. A provider that would
// close a cycle is rejected with a CycleError and the graph is
// left unchanged.
func (g *DependencyGraph) AddProvider(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	nodeKey := provider.GraphKey()
	dependencies := slices.Clone(provider.GraphDependencies())

	// Remember state for rollback
	previous, existed := g.nodes[nodeKey]
	var previousProvider Provider
	if existed {
		previousProvider = previous.Provider
	}
	previousEdges, hadEdges := g.edges[nodeKey]
	orderLen := len(g.order)

	node := g.ensureNode(nodeKey)
	node.Provider = provider
	for _, dep := range dependencies {
		g.ensureNode(dep)
	}
	g.edges[nodeKey] = dependencies

	if path := g.cycleFrom(nodeKey); path != nil {
		if hadEdges {
			g.edges[nodeKey] = previousEdges
		} else {
			delete(g.edges, nodeKey)
		}
		for _, k := range g.order[orderLen:] {
			delete(g.nodes, k)
		}
		g.order = g.order[:orderLen]
		if existed {
			previous.Provider = previousProvider
		}
		g.updateDegrees()
		return CycleError{Node: nodeKey, Path: path}
	}

	g.updateDegrees()
	return nil
}

func (g *DependencyGraph) ensureNode(key NodeKey) *Node {
	node, exists := g.nodes[key]
	if !exists {
		node = &Node{Key: key}
		g.nodes[key] = node
		g.order = append(g.order, key)
	}
	return node
}

// updateDegrees recalculates in/out degrees for all nodes
func (g *DependencyGraph) updateDegrees() {
	for _, node := range g.nodes {
		node.InDegree = 0
		node.OutDegree = 0
		node.Dependencies = nil
		node.Dependents = nil
	}

	for _, from := range g.order {
		tos := g.edges[from]
		fromNode := g.nodes[from]
		fromNode.OutDegree = len(tos)
		fromNode.Dependencies = slices.Clone(tos)

		for _, to := range tos {
			if toNode, exists := g.nodes[to]; exists {
				toNode.InDegree++
				toNode.Dependents = append(toNode.Dependents, from)
			}
		}
	}
}

// TopologicalSort returns nodes in dependency order (dependencies first)
func (g *DependencyGraph) TopologicalSort() ([]*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over remaining dependency counts
	remaining := make(map[NodeKey]int, len(g.nodes))
	queue := make([]NodeKey, 0)
	for _, key := range g.order {
		remaining[key] = len(g.edges[key])
		if remaining[key] == 0 {
			queue = append(queue, key)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.nodes[current]
		result = append(result, node)

		for _, dependent := range node.Dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("circular dependency detected: graph contains %d nodes but only %d could be sorted",
			len(g.nodes), len(result))
	}

	return result, nil
}

// DetectCycles checks if the graph contains any cycles
func (g *DependencyGraph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, key := range g.order {
		if path := g.cycleFrom(key); path != nil {
			return CycleError{Node: key, Path: path}
		}
	}
	return nil
}

// cycleFrom returns the nodes of a cycle reachable from start, beginning
// with the first repeated node, or nil.
func (g *DependencyGraph) cycleFrom(start NodeKey) []NodeKey {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[NodeKey]int)
	var stack []NodeKey
	var cycle []NodeKey

	var visit func(key NodeKey) bool
	visit = func(key NodeKey) bool {
		switch state[key] {
		case visiting:
			idx := slices.Index(stack, key)
			cycle = slices.Clone(stack[idx:])
			return true
		case done:
			return false
		}

		state[key] = visiting
		stack = append(stack, key)
		for _, dep := range g.edges[key] {
			if visit(dep) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[key] = done
		return false
	}

	if visit(start) {
		return cycle
	}
	return nil
}

// GetDependencies returns the direct dependencies of a node
func (g *DependencyGraph) GetDependencies(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[key]; exists {
		return slices.Clone(node.Dependencies)
	}
	return nil
}

// GetDependents returns the nodes that depend on the given node
func (g *DependencyGraph) GetDependents(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[key]; exists {
		return slices.Clone(node.Dependents)
	}
	return nil
}

// GetTransitiveDependencies returns all dependencies (direct and indirect)
func (g *DependencyGraph) GetTransitiveDependencies(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[NodeKey]bool{key: true}
	result := make([]NodeKey, 0)

	var collect func(current NodeKey)
	collect = func(current NodeKey) {
		for _, dep := range g.edges[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				collect(dep)
			}
		}
	}

	collect(key)
	return result
}

// GetNode returns the node for a given key
func (g *DependencyGraph) GetNode(key NodeKey) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[key]
}

// HasNode checks if a node exists in the graph
func (g *DependencyGraph) HasNode(key NodeKey) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.nodes[key]
	return exists
}

// Nodes returns all nodes in first-seen order
func (g *DependencyGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodesLocked()
}

func (g *DependencyGraph) nodesLocked() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, key := range g.order {
		nodes[i] = g.nodes[key]
	}
	return nodes
}

// Size returns the number of nodes in the graph
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IsAcyclic returns true if the graph has no cycles
func (g *DependencyGraph) IsAcyclic() bool {
	return g.DetectCycles() == nil
}

// GetRoots returns all nodes nothing depends on
func (g *DependencyGraph) GetRoots() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roots := make([]*Node, 0)
	for _, node := range g.nodesLocked() {
		if node.InDegree == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}

// GetLeaves returns all nodes without dependencies
func (g *DependencyGraph) GetLeaves() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	leaves := make([]*Node, 0)
	for _, node := range g.nodesLocked() {
		if node.OutDegree == 0 {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// CalculateDepths assigns depth levels to nodes based on their dependencies.
// Nodes without dependencies have depth 0. Depths are only meaningful for
// acyclic graphs; nodes that reach no dependency-free node keep -1.
func (g *DependencyGraph) CalculateDepths() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, node := range g.nodes {
		node.Depth = -1
	}

	queue := make([]*Node, 0)
	for _, node := range g.nodesLocked() {
		if len(node.Dependencies) == 0 {
			node.Depth = 0
			queue = append(queue, node)
		}
	}

	// BFS to assign depths, bounded by the node count so cycles terminate
	limit := len(g.nodes)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, depKey := range current.Dependents {
			dep := g.nodes[depKey]
			newDepth := current.Depth + 1
			if dep.Depth < newDepth && newDepth <= limit {
				dep.Depth = newDepth
				queue = append(queue, dep)
			}
		}
	}
}

// String returns a string representation of the node key
func (k NodeKey) String() string {
	if k.Name == "" {
		return fmt.Sprintf("#%d", k.ID)
	}
	return k.Name
}

// String returns a string representation of the node
func (n *Node) String() string {
	return fmt.Sprintf("Node{%s, in:%d, out:%d, depth:%d}",
		n.Key.String(), n.InDegree, n.OutDegree, n.Depth)
}
