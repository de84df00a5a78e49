package graph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer) WriteDOT(w io.Writer) error {
	nodes := v.graph.Nodes()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for _, node := range nodes {
		fmt.Fprintf(&b, "  n%d [label=%s, fillcolor=\"%s\", style=filled];\n",
			node.Key.ID, strconv.Quote(v.formatNodeLabel(node)), v.getNodeColor(node))
	}

	for _, node := range nodes {
		for _, dep := range node.Dependencies {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", node.Key.ID, dep.ID)
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a text representation of the graph grouped by depth
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	sorted, err := v.graph.TopologicalSort()
	if err != nil {
		fmt.Fprintf(&b, "Warning: Graph contains cycles - %v\n\n", err)
		sorted = v.graph.Nodes()
	}

	v.graph.CalculateDepths()
	depthGroups := make(map[int][]*Node)
	maxDepth := 0
	var cycleNodes []*Node

	for _, node := range sorted {
		if node.Depth < 0 {
			cycleNodes = append(cycleNodes, node)
			continue
		}
		depthGroups[node.Depth] = append(depthGroups[node.Depth], node)
		maxDepth = max(maxDepth, node.Depth)
	}

	for depth := 0; depth <= maxDepth; depth++ {
		if nodes, exists := depthGroups[depth]; exists {
			fmt.Fprintf(&b, "Level %d:\n", depth)
			b.WriteString("--------\n")
			for _, node := range nodes {
				v.writeNodeDetails(&b, node, "  ")
			}
			b.WriteString("\n")
		}
	}

	if len(cycleNodes) > 0 {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, node := range cycleNodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	v.writeStatistics(&b)

	_, err = io.WriteString(w, b.String())
	return err
}

// WriteAdjacencyList writes the graph as an adjacency list
func (v *Visualizer) WriteAdjacencyList(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Adjacency List:\n")
	b.WriteString("===============\n\n")

	for _, node := range v.graph.Nodes() {
		fmt.Fprintf(&b, "%s -> [%s]\n", node.Key.String(), joinKeys(node.Dependencies))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatNodeLabel creates a label for a node
func (v *Visualizer) formatNodeLabel(node *Node) string {
	label := node.Key.String()
	if node.Provider != nil && node.Provider.GraphMulti() {
		label += " (multi)"
	}
	return label
}

// getNodeColor determines the color for a node based on its properties
func (v *Visualizer) getNodeColor(node *Node) string {
	switch {
	case node.Provider == nil:
		return "lightgray" // Missing provider
	case node.Provider.GraphMulti():
		return "lightgreen"
	default:
		return "lightblue"
	}
}

// writeNodeDetails writes detailed information about a node
func (v *Visualizer) writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, node.Key.String())

	switch {
	case node.Provider == nil:
		fmt.Fprintf(b, "%s  Provider: missing\n", indent)
	case node.Provider.GraphMulti():
		fmt.Fprintf(b, "%s  Provider: multi\n", indent)
	}

	if deps := v.graph.GetDependencies(node.Key); len(deps) > 0 {
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, joinKeys(deps))
	}
	if dependents := v.graph.GetDependents(node.Key); len(dependents) > 0 {
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, joinKeys(dependents))
	}
}

// writeStatistics writes graph statistics
func (v *Visualizer) writeStatistics(b *strings.Builder) {
	nodes := v.graph.Nodes()

	edges := 0
	missing := 0
	var mostDeps, mostDependents *Node
	for _, node := range nodes {
		edges += node.OutDegree
		if node.Provider == nil {
			missing++
		}
		if node.OutDegree > 0 && (mostDeps == nil || node.OutDegree > mostDeps.OutDegree) {
			mostDeps = node
		}
		if node.InDegree > 0 && (mostDependents == nil || node.InDegree > mostDependents.InDegree) {
			mostDependents = node
		}
	}

	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total nodes: %d\n", v.graph.Size())
	fmt.Fprintf(b, "  Total edges: %d\n", edges)
	fmt.Fprintf(b, "  Missing providers: %d\n", missing)
	fmt.Fprintf(b, "  Root nodes (no dependents): %d\n", len(v.graph.GetRoots()))
	fmt.Fprintf(b, "  Leaf nodes (no dependencies): %d\n", len(v.graph.GetLeaves()))

	if v.graph.IsAcyclic() {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	} else {
		b.WriteString("  Cycles: DETECTED (graph contains circular dependencies)\n")
	}

	if mostDeps != nil {
		fmt.Fprintf(b, "  Most dependencies: %s (%d)\n", mostDeps.Key.String(), mostDeps.OutDegree)
	}
	if mostDependents != nil {
		fmt.Fprintf(b, "  Most dependents: %s (%d)\n", mostDependents.Key.String(), mostDependents.InDegree)
	}
}

func joinKeys(keys []NodeKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
