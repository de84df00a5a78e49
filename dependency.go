package refdi

import (
	"fmt"
	"strings"
)

// Visibility bounds where in an injector hierarchy a dependency may be
// satisfied.
type Visibility int

const (
	// VisibilityNone places no bound on the lookup.
	VisibilityNone Visibility = iota
	// VisibilitySelf only consults the requesting injector.
	VisibilitySelf
	// VisibilityHost stops at the nearest host injector.
	VisibilityHost
	// VisibilitySkipSelf starts at the requesting injector's parent.
	VisibilitySkipSelf
)

func (v Visibility) String() string {
	switch v {
	case VisibilityNone:
		return "none"
	case VisibilitySelf:
		return "self"
	case VisibilityHost:
		return "host"
	case VisibilitySkipSelf:
		return "skipself"
	default:
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
}

// Dependency is one resolved parameter of a factory.
type Dependency struct {
	Key      *Key
	Optional bool

	// UpperBound is VisibilityNone, VisibilitySelf or VisibilityHost.
	UpperBound Visibility

	// LowerBound is VisibilityNone or VisibilitySkipSelf.
	LowerBound Visibility

	// Properties holds the generic dependency annotations of the parameter,
	// in declaration order.
	Properties []Annotation
}

func (d *Dependency) String() string {
	var b strings.Builder
	b.WriteString(d.Key.DisplayName())

	var flags []string
	if d.Optional {
		flags = append(flags, "optional")
	}
	if d.UpperBound != VisibilityNone {
		flags = append(flags, d.UpperBound.String())
	}
	if d.LowerBound != VisibilityNone {
		flags = append(flags, d.LowerBound.String())
	}
	for _, p := range d.Properties {
		flags = append(flags, p.String())
	}
	if len(flags) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(flags, " "))
		b.WriteString("]")
	}
	return b.String()
}

// ResolvedFactory is a factory together with the dependencies it must be
// called with.
type ResolvedFactory struct {
	Factory      FactoryFunc
	Dependencies []*Dependency

	// borrowed is set for aliases and values, whose results are not owned
	// by the injector that produces them.
	borrowed bool
}

// ResolvedProvider is the merged result of every declaration for one key.
// Factories has more than one entry only for multi providers.
type ResolvedProvider struct {
	Key       *Key
	Factories []*ResolvedFactory
	Multi     bool
}

// Factory returns the first resolved factory.
func (p *ResolvedProvider) Factory() *ResolvedFactory {
	if p == nil || len(p.Factories) == 0 {
		return nil
	}
	return p.Factories[0]
}

func (p *ResolvedProvider) String() string {
	if p == nil {
		return "ResolvedProvider(<nil>)"
	}
	kind := "regular"
	if p.Multi {
		kind = "multi"
	}
	return fmt.Sprintf("ResolvedProvider(%s, %s, %d factories)", p.Key.DisplayName(), kind, len(p.Factories))
}
