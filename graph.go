package refdi

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/junioryono/refdi/internal/graph"
)

// graphProvider adapts a ResolvedProvider to the graph package.
type graphProvider struct {
	provider *ResolvedProvider
	deps     []graph.NodeKey
}

func (p *graphProvider) GraphKey() graph.NodeKey            { return nodeKey(p.provider.Key) }
func (p *graphProvider) GraphDependencies() []graph.NodeKey { return p.deps }
func (p *graphProvider) GraphMulti() bool                   { return p.provider.Multi }

func nodeKey(k *Key) graph.NodeKey {
	return graph.NodeKey{ID: k.ID, Name: k.DisplayName()}
}

// graphEdges lists the keys p's factories depend on within one injector.
// SkipSelf dependencies and the injector itself are satisfied elsewhere and
// are left out.
func graphEdges(p *ResolvedProvider) []graph.NodeKey {
	seen := make(map[*Key]bool)
	var deps []graph.NodeKey
	for _, f := range p.Factories {
		for _, d := range f.Dependencies {
			if d.LowerBound == VisibilitySkipSelf || d.Key.Token == injectorType || seen[d.Key] {
				continue
			}
			seen[d.Key] = true
			deps = append(deps, nodeKey(d.Key))
		}
	}
	return deps
}

// buildGraph creates the dependency graph of providers. keys maps node keys
// back to provider keys for error reporting.
func buildGraph(providers []*ResolvedProvider) (*graph.DependencyGraph, map[graph.NodeKey]*Key, error) {
	g := graph.NewDependencyGraph()
	keys := make(map[graph.NodeKey]*Key)

	for _, p := range providers {
		if p == nil || p.Key == nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrProviderNotResolvable, p)
		}
		keys[nodeKey(p.Key)] = p.Key
		for _, f := range p.Factories {
			for _, d := range f.Dependencies {
				keys[nodeKey(d.Key)] = d.Key
			}
		}
	}

	for _, p := range providers {
		if err := g.AddProvider(&graphProvider{provider: p, deps: graphEdges(p)}); err != nil {
			return nil, nil, cyclicError(err, keys)
		}
	}

	return g, keys, nil
}

func cyclicError(err error, keys map[graph.NodeKey]*Key) error {
	var cycle graph.CycleError
	if !errors.As(err, &cycle) {
		return err
	}

	path := make([]*Key, 0, len(cycle.Path)+1)
	for _, n := range cycle.Path {
		path = append(path, keys[n])
	}
	if len(path) > 0 {
		path = append(path, path[0])
	}
	return CyclicDependencyError{Path: path}
}

// CheckGraph reports a CyclicDependencyError when the providers of one
// injector depend on each other in a cycle. Missing dependencies are not an
// error since a parent injector may supply them.
func CheckGraph(providers []*ResolvedProvider) error {
	_, _, err := buildGraph(providers)
	return err
}

// TopologicalOrder returns the keys of providers with every key after the
// keys it depends on.
func TopologicalOrder(providers []*ResolvedProvider) ([]*Key, error) {
	g, keys, err := buildGraph(providers)
	if err != nil {
		return nil, err
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	order := make([]*Key, 0, len(providers))
	for _, node := range sorted {
		if node.Provider == nil {
			continue
		}
		order = append(order, keys[node.Key])
	}
	return order, nil
}

// WriteDOT writes the dependency graph of providers in Graphviz DOT format.
func WriteDOT(w io.Writer, providers []*ResolvedProvider) error {
	g, _, err := buildGraph(providers)
	if err != nil {
		return err
	}
	return graph.NewVisualizer(g).WriteDOT(w)
}

// WriteText writes a human readable summary of the dependency graph.
func WriteText(w io.Writer, providers []*ResolvedProvider) error {
	g, _, err := buildGraph(providers)
	if err != nil {
		return err
	}
	return graph.NewVisualizer(g).WriteText(w)
}

// graphKey finds the node for token among the keys of g. A token no provider
// has or needs within g is a NoProviderError.
func graphKey(g *graph.DependencyGraph, keys map[graph.NodeKey]*Key, token any) (graph.NodeKey, error) {
	if k, ok := token.(*Key); ok && k != nil {
		token = k.Token
	}
	token = ResolveForwardRef(token)
	if token == nil {
		return graph.NodeKey{}, InvalidTokenError{Token: token, Cause: ErrTokenNil}
	}
	if !reflect.ValueOf(token).Comparable() {
		return graph.NodeKey{}, InvalidTokenError{Token: token, Cause: ErrTokenNotComparable}
	}

	for n, k := range keys {
		if k.Token == token && g.HasNode(n) {
			return n, nil
		}
	}
	missing := &Key{Token: token}
	return graph.NodeKey{}, NoProviderError{Key: missing, Path: []*Key{missing}}
}

// Focus returns the provider for token followed by every provider it needs,
// directly or indirectly, in their original order.
func Focus(providers []*ResolvedProvider, token any) ([]*ResolvedProvider, error) {
	g, keys, err := buildGraph(providers)
	if err != nil {
		return nil, err
	}
	n, err := graphKey(g, keys, token)
	if err != nil {
		return nil, err
	}

	keep := map[graph.NodeKey]bool{n: true}
	for _, dep := range g.GetTransitiveDependencies(n) {
		keep[dep] = true
	}

	focused := make([]*ResolvedProvider, 0, len(keep))
	for _, p := range providers {
		if keep[nodeKey(p.Key)] {
			focused = append(focused, p)
		}
	}
	return focused, nil
}

// Dependents returns the keys of the providers that depend directly on token.
func Dependents(providers []*ResolvedProvider, token any) ([]*Key, error) {
	g, keys, err := buildGraph(providers)
	if err != nil {
		return nil, err
	}
	n, err := graphKey(g, keys, token)
	if err != nil {
		return nil, err
	}

	var dependents []*Key
	for _, d := range g.GetDependents(n) {
		dependents = append(dependents, keys[d])
	}
	return dependents, nil
}
