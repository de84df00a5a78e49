package graph

import "strings"

// CycleError reports a dependency cycle. Path starts at the first node of
// the cycle; the edge back to Path[0] is implied.
type CycleError struct {
	Node NodeKey
	Path []NodeKey
}

func (e CycleError) Error() string {
	path := e.Path
	if len(path) == 0 {
		path = []NodeKey{e.Node}
	}

	names := make([]string, 0, len(path)+1)
	for _, k := range path {
		names = append(names, k.String())
	}
	names = append(names, path[0].String()+" (cycle)")
	return "dependency cycle: " + strings.Join(names, " -> ")
}
