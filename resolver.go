package refdi

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// Resolver turns provider declarations into resolved providers. It holds its
// collaborators and no other state, so one Resolver may be shared by
// concurrent resolutions.
type Resolver struct {
	reflector Reflector
	keys      *KeyRegistry
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option interface {
	applyOption(*Resolver)
}

type optionFunc func(*Resolver)

func (f optionFunc) applyOption(r *Resolver) {
	f(r)
}

// WithReflector sets the reflector used to inspect constructors and
// factories. The default is DefaultReflector().
func WithReflector(reflector Reflector) Option {
	return optionFunc(func(r *Resolver) {
		if reflector != nil {
			r.reflector = reflector
		}
	})
}

// WithKeyRegistry sets the registry that maps tokens to keys. The default is
// DefaultKeys().
func WithKeyRegistry(keys *KeyRegistry) Option {
	return optionFunc(func(r *Resolver) {
		if keys != nil {
			r.keys = keys
		}
	})
}

// WithLogger sets the logger for debug output. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	})
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		reflector: DefaultReflector(),
		keys:      DefaultKeys(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyOption(r)
		}
	}
	return r
}

// Keys returns the resolver's key registry.
func (r *Resolver) Keys() *KeyRegistry {
	return r.keys
}

// Reflector returns the resolver's reflector.
func (r *Resolver) Reflector() Reflector {
	return r.reflector
}

// Normalize flattens declarations into providers, depth first and in order.
// A declaration is a reflect.Type (a class bound to itself), a *Provider, or
// a []any or []*Provider of declarations nested to any depth.
func Normalize(declarations ...any) ([]*Provider, error) {
	return normalize(declarations, make([]*Provider, 0, len(declarations)))
}

func normalize(declarations []any, out []*Provider) ([]*Provider, error) {
	var err error
	for _, d := range declarations {
		switch v := d.(type) {
		case reflect.Type:
			out = append(out, selfClass(v))
		case *Provider:
			if v == nil {
				return nil, InvalidProviderError{Value: d}
			}
			out = append(out, v)
		case []any:
			if out, err = normalize(v, out); err != nil {
				return nil, err
			}
		case []*Provider:
			for _, p := range v {
				if p == nil {
					return nil, InvalidProviderError{Value: p}
				}
				out = append(out, p)
			}
		case *ProviderBuilder:
			if v == nil {
				return nil, InvalidProviderError{Value: d}
			}
			return nil, InvalidProviderError{Value: v.Token, Builder: true}
		default:
			return nil, InvalidProviderError{Value: d}
		}
	}
	return out, nil
}

// ResolveAll normalizes, resolves and merges declarations. The result holds
// one provider per key, in first-declaration order. Any error aborts the
// whole batch.
func (r *Resolver) ResolveAll(declarations ...any) ([]*ResolvedProvider, error) {
	providers, err := Normalize(declarations...)
	if err != nil {
		return nil, err
	}

	resolved := make([]*ResolvedProvider, 0, len(providers))
	for _, p := range providers {
		rp, err := r.ResolveProvider(p)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rp)
	}

	merged, err := MergeResolvedProviders(resolved, nil)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved providers",
		"declarations", len(providers),
		"keys", merged.Len())

	return merged.Values(), nil
}

// ResolveProvider resolves a single declaration.
func (r *Resolver) ResolveProvider(p *Provider) (*ResolvedProvider, error) {
	if p == nil {
		return nil, InvalidProviderError{Value: p}
	}

	key, err := r.keys.Get(p.Token)
	if err != nil {
		return nil, err
	}

	factory, err := r.ResolveFactory(p)
	if err != nil {
		return nil, err
	}

	return &ResolvedProvider{
		Key:       key,
		Factories: []*ResolvedFactory{factory},
		Multi:     p.Multi,
	}, nil
}

// ResolveFactory resolves the binding of p into a factory and its
// dependencies.
func (r *Resolver) ResolveFactory(p *Provider) (*ResolvedFactory, error) {
	if p == nil {
		return nil, InvalidProviderError{Value: p}
	}

	switch b := p.Binding.(type) {
	case ClassBinding:
		return r.resolveClass(b)

	case ExistingBinding:
		key, err := r.keys.Get(b.Token)
		if err != nil {
			return nil, err
		}
		return &ResolvedFactory{
			Factory:      identity,
			Dependencies: []*Dependency{{Key: key}},
			borrowed:     true,
		}, nil

	case FactoryBinding:
		factory, err := r.adapt(b.Func)
		if err != nil {
			return nil, err
		}
		deps, err := r.ConstructDependencies(b.Func, b.Deps)
		if err != nil {
			return nil, err
		}
		return &ResolvedFactory{Factory: factory, Dependencies: deps}, nil

	case ValueBinding:
		return valueFactory(b.Value), nil

	case nil:
		return valueFactory(nil), nil

	default:
		return nil, InvalidProviderError{Value: p}
	}
}

func (r *Resolver) resolveClass(b ClassBinding) (*ResolvedFactory, error) {
	t, ok := ResolveForwardRef(b.Class).(reflect.Type)
	if !ok {
		return nil, ReflectionError{Target: b.Class, Operation: "factory", Cause: ErrNotAType}
	}

	factory, err := r.reflector.Factory(t)
	if err != nil {
		return nil, wrapReflection(t, "factory", err)
	}

	deps, err := r.dependenciesFor(t)
	if err != nil {
		return nil, err
	}

	return &ResolvedFactory{Factory: factory, Dependencies: deps}, nil
}

func (r *Resolver) adapt(fn any) (FactoryFunc, error) {
	if a, ok := r.reflector.(FuncAdapter); ok {
		return a.Adapt(fn)
	}
	return FuncFactory(fn)
}

func identity(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: want 1, got %d", ErrArgumentCount, len(args))
	}
	return args[0], nil
}

func valueFactory(value any) *ResolvedFactory {
	return &ResolvedFactory{
		Factory: func(...any) (any, error) {
			return value, nil
		},
		Dependencies: []*Dependency{},
		borrowed:     true,
	}
}

// ConstructDependencies returns the dependencies of target. When explicit is
// nil they are derived from target's parameters. Otherwise each entry is
// converted on its own: a Param is used as is, an Annotation or []Annotation
// becomes an annotation list, and any other value is a bare token.
func (r *Resolver) ConstructDependencies(target any, explicit []any) ([]*Dependency, error) {
	if explicit == nil {
		return r.dependenciesFor(target)
	}

	params := make([]Param, len(explicit))
	for i, d := range explicit {
		params[i] = toParam(d)
	}

	deps := make([]*Dependency, len(params))
	for i, p := range params {
		dep, err := r.ExtractDependency(target, p, params)
		if err != nil {
			return nil, err
		}
		deps[i] = dep
	}
	return deps, nil
}

func toParam(d any) Param {
	switch v := d.(type) {
	case Param:
		return v
	case []Annotation:
		return Annotated(v...)
	case Annotation:
		return Annotated(v)
	default:
		return Bare(v)
	}
}

// dependenciesFor derives dependencies from the reflector. Unknown parameters
// mean no dependencies; a parameter with no metadata at all is an error.
func (r *Resolver) dependenciesFor(target any) ([]*Dependency, error) {
	params, err := r.reflector.Parameters(target)
	if err != nil {
		return nil, wrapReflection(target, "parameters", err)
	}
	if params == nil {
		return []*Dependency{}, nil
	}

	for _, p := range params {
		if p.IsBlank() {
			return nil, NoAnnotationError{Target: target, Params: params}
		}
	}

	deps := make([]*Dependency, len(params))
	for i, p := range params {
		dep, err := r.ExtractDependency(target, p, params)
		if err != nil {
			return nil, err
		}
		deps[i] = dep
	}
	return deps, nil
}

// ExtractDependency turns the metadata of one parameter of target into a
// Dependency. all is the metadata of every parameter and only serves
// diagnostics.
func (r *Resolver) ExtractDependency(target any, param Param, all []Param) (*Dependency, error) {
	dep := &Dependency{}
	var token any

	if !param.IsList() {
		switch a := param.Token().(type) {
		case InjectAnnotation:
			token = a.Token
		case TypeAnnotation:
			token = a.Type
		case DependencyAnnotation:
			token = a.Token
			if token == nil {
				token = a
			}
			dep.Properties = append(dep.Properties, a)
		default:
			token = a
		}
	} else {
		for _, a := range param.list {
			switch a := a.(type) {
			case TypeAnnotation:
				token = a.Type
			case InjectAnnotation:
				token = a.Token
			case OptionalAnnotation:
				dep.Optional = true
			case SelfAnnotation:
				dep.UpperBound = VisibilitySelf
			case HostAnnotation:
				dep.UpperBound = VisibilityHost
			case SkipSelfAnnotation:
				dep.LowerBound = VisibilitySkipSelf
			case DependencyAnnotation:
				if a.Token != nil {
					token = a.Token
				}
				dep.Properties = append(dep.Properties, a)
			}
		}
	}

	token = ResolveForwardRef(token)
	if token == nil {
		return nil, NoAnnotationError{Target: target, Params: all}
	}

	key, err := r.keys.Get(token)
	if err != nil {
		return nil, err
	}
	dep.Key = key
	return dep, nil
}

func wrapReflection(target any, operation string, err error) error {
	var re ReflectionError
	if errors.As(err, &re) {
		return err
	}
	return ReflectionError{Target: target, Operation: operation, Cause: err}
}
