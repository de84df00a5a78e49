package refdi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInjectorClosed = errors.New("injector has been closed")
	ErrResolvedType   = errors.New("resolved value has the wrong type")
)

var injectorType = TypeOf[*Injector]()

// Injector creates and caches instances from resolved providers. Injectors
// form a tree: a lookup that misses in a child continues in its parent,
// subject to the dependency's visibility bounds.
//
// Dependencies of a provider are looked up from the injector that holds the
// provider. Instances are created lazily and at most once per injector.
//
// An Injector is safe for concurrent use. No lock is held while a factory
// runs, so factories may inject *Injector and look up other tokens through
// it. Concurrent lookups of the same key wait for the first one to finish;
// lookups that would wait on each other in a cycle fail with a
// CyclicDependencyError.
type Injector struct {
	id       string
	parent   *Injector
	host     bool
	resolver *Resolver
	logger   *slog.Logger

	providers *ProviderMap

	mu          sync.Mutex
	instances   map[*Key]any
	creating    map[*Key]*pending
	disposables []DisposableWithContext
	closed      bool
}

// InjectorOption configures an Injector.
type InjectorOption interface {
	applyInjectorOption(*injectorOptions)
}

type injectorOptions struct {
	parent   *Injector
	host     bool
	resolver *Resolver
	logger   *slog.Logger
}

type injectorOptionFunc func(*injectorOptions)

func (f injectorOptionFunc) applyInjectorOption(opts *injectorOptions) {
	f(opts)
}

// WithParent makes the injector a child of parent.
func WithParent(parent *Injector) InjectorOption {
	return injectorOptionFunc(func(opts *injectorOptions) {
		opts.parent = parent
	})
}

// AsHost marks the injector as a host boundary for Host dependencies.
func AsHost() InjectorOption {
	return injectorOptionFunc(func(opts *injectorOptions) {
		opts.host = true
	})
}

// WithResolver sets the resolver used by ResolveAndCreate and by child
// injectors. Children inherit their parent's resolver by default.
func WithResolver(r *Resolver) InjectorOption {
	return injectorOptionFunc(func(opts *injectorOptions) {
		opts.resolver = r
	})
}

// WithInjectorLogger sets the logger for debug output. Children inherit
// their parent's logger by default.
func WithInjectorLogger(logger *slog.Logger) InjectorOption {
	return injectorOptionFunc(func(opts *injectorOptions) {
		opts.logger = logger
	})
}

func buildInjectorOptions(opts []InjectorOption) *injectorOptions {
	options := &injectorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyInjectorOption(options)
		}
	}

	if options.parent != nil {
		if options.resolver == nil {
			options.resolver = options.parent.resolver
		}
		if options.logger == nil {
			options.logger = options.parent.logger
		}
	}
	if options.resolver == nil {
		options.resolver = DefaultResolver()
	}
	if options.logger == nil {
		options.logger = options.resolver.logger
	}
	return options
}

// NewInjector creates an injector from resolved providers.
func NewInjector(providers []*ResolvedProvider, opts ...InjectorOption) (*Injector, error) {
	return newInjector(providers, buildInjectorOptions(opts))
}

func newInjector(providers []*ResolvedProvider, options *injectorOptions) (*Injector, error) {
	if options.parent != nil && options.parent.isClosed() {
		return nil, ErrInjectorClosed
	}

	merged, err := MergeResolvedProviders(providers, nil)
	if err != nil {
		return nil, err
	}

	inj := &Injector{
		id:        uuid.NewString(),
		parent:    options.parent,
		host:      options.host,
		resolver:  options.resolver,
		logger:    options.logger,
		providers: merged,
		instances: make(map[*Key]any),
		creating:  make(map[*Key]*pending),
	}

	inj.logger.Debug("injector created",
		"injector", inj.id,
		"providers", merged.Len(),
		"child", inj.parent != nil)

	return inj, nil
}

// ResolveAndCreate resolves declarations and creates an injector from them.
//
//	inj, err := refdi.ResolveAndCreate([]any{
//		refdi.TypeOf[*Engine](),
//		refdi.Class(refdi.TypeOf[*Car](), refdi.TypeOf[*Car]()),
//	})
func ResolveAndCreate(declarations []any, opts ...InjectorOption) (*Injector, error) {
	options := buildInjectorOptions(opts)

	providers, err := options.resolver.ResolveAll(declarations...)
	if err != nil {
		return nil, err
	}
	return newInjector(providers, options)
}

// ResolveAndCreateChild resolves declarations and creates a child injector.
func (i *Injector) ResolveAndCreateChild(declarations ...any) (*Injector, error) {
	providers, err := i.resolver.ResolveAll(declarations...)
	if err != nil {
		return nil, err
	}
	return i.CreateChildFromResolved(providers)
}

// CreateChildFromResolved creates a child injector from resolved providers.
func (i *Injector) CreateChildFromResolved(providers []*ResolvedProvider, opts ...InjectorOption) (*Injector, error) {
	opts = append([]InjectorOption{WithParent(i)}, opts...)
	return NewInjector(providers, opts...)
}

func (i *Injector) isClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// ID returns the injector's unique identifier.
func (i *Injector) ID() string {
	return i.id
}

// Parent returns the parent injector, or nil for a root injector.
func (i *Injector) Parent() *Injector {
	return i.parent
}

// IsHost reports whether the injector was created with AsHost.
func (i *Injector) IsHost() bool {
	return i.host
}

// Resolver returns the resolver the injector uses for declarations.
func (i *Injector) Resolver() *Resolver {
	return i.resolver
}

// Providers returns the injector's own providers in declaration order.
func (i *Injector) Providers() []*ResolvedProvider {
	return i.providers.Values()
}

// Get returns the instance for token, creating it if needed. Multi providers
// yield a []any in declaration order.
func (i *Injector) Get(token any) (any, error) {
	return i.get(token, false)
}

// GetOptional is like Get but returns nil when no provider exists.
func (i *Injector) GetOptional(token any) (any, error) {
	return i.get(token, true)
}

func (i *Injector) get(token any, optional bool) (any, error) {
	key, err := i.resolver.keys.Get(token)
	if err != nil {
		return nil, err
	}
	if err := i.checkOpen(); err != nil {
		return nil, err
	}

	return i.resolveDependency(&Dependency{Key: key, Optional: optional}, &resolution{})
}

// checkOpen fails when the injector or one of its ancestors is closed.
func (i *Injector) checkOpen() error {
	for cur := i; cur != nil; cur = cur.parent {
		if cur.isClosed() {
			return ErrInjectorClosed
		}
	}
	return nil
}

// Instantiate resolves p and creates a new instance from it in the context of
// the injector. The instance is not cached.
func (i *Injector) Instantiate(p *Provider) (any, error) {
	rp, err := i.resolver.ResolveProvider(p)
	if err != nil {
		return nil, err
	}
	return i.InstantiateResolved(rp)
}

// InstantiateResolved creates a new, uncached instance from p. Its
// dependencies are looked up like any other, so p may depend on the
// injector's own provider for the same key.
func (i *Injector) InstantiateResolved(p *ResolvedProvider) (any, error) {
	if p == nil {
		return nil, InvalidProviderError{Value: p}
	}
	if err := i.checkOpen(); err != nil {
		return nil, err
	}

	// The frame has no injector so it only shows up in error paths.
	res := &resolution{}
	res.push(nil, p.Key)
	defer res.pop()

	return i.instantiate(p, res)
}

// resolution tracks one top-level lookup: the keys it is constructing and
// the instance it is waiting for, if any.
type resolution struct {
	path    []frame
	waiting *pending
}

type frame struct {
	inj *Injector
	key *Key
}

// pending is an instance under construction. done is closed once v and err
// are set.
type pending struct {
	owner *resolution
	done  chan struct{}
	v     any
	err   error
}

// waitMu guards resolution.waiting across all injectors.
var waitMu sync.Mutex

// wait blocks until pd is finished. It fails instead when the owner of pd is,
// through a chain of waits, waiting for r.
func (r *resolution) wait(pd *pending, key *Key) (any, error) {
	waitMu.Lock()
	for owner := pd.owner; owner != nil; {
		if owner == r {
			waitMu.Unlock()
			return nil, CyclicDependencyError{Path: r.keys(key)}
		}
		next := owner.waiting
		if next == nil || next.finished() {
			break
		}
		owner = next.owner
	}
	r.waiting = pd
	waitMu.Unlock()

	<-pd.done

	waitMu.Lock()
	r.waiting = nil
	waitMu.Unlock()

	return pd.v, pd.err
}

func (pd *pending) finished() bool {
	select {
	case <-pd.done:
		return true
	default:
		return false
	}
}

func (r *resolution) push(inj *Injector, key *Key) {
	r.path = append(r.path, frame{inj: inj, key: key})
}

func (r *resolution) pop() {
	r.path = r.path[:len(r.path)-1]
}

func (r *resolution) constructing(inj *Injector, key *Key) bool {
	for _, f := range r.path {
		if f.inj == inj && f.key == key {
			return true
		}
	}
	return false
}

func (r *resolution) keys(extra ...*Key) []*Key {
	keys := make([]*Key, 0, len(r.path)+len(extra))
	for _, f := range r.path {
		keys = append(keys, f.key)
	}
	return append(keys, extra...)
}

// resolveDependency walks the injector tree within the dependency's bounds.
func (i *Injector) resolveDependency(dep *Dependency, res *resolution) (any, error) {
	start := i
	if dep.LowerBound == VisibilitySkipSelf {
		start = i.parent
	}

	if dep.Key.Token == injectorType && start != nil {
		return start, nil
	}

	for inj := start; inj != nil; inj = inj.parent {
		if p, ok := inj.providers.Get(dep.Key); ok {
			return inj.instance(p, res)
		}

		if dep.UpperBound == VisibilitySelf {
			break
		}
		if dep.UpperBound == VisibilityHost && inj.host {
			break
		}
	}

	if dep.Optional {
		return nil, nil
	}
	return nil, NoProviderError{Key: dep.Key, Path: res.keys(dep.Key)}
}

// instance returns the cached instance for p, creating it if needed.
func (i *Injector) instance(p *ResolvedProvider, res *resolution) (any, error) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil, ErrInjectorClosed
	}
	if v, ok := i.instances[p.Key]; ok {
		i.mu.Unlock()
		return v, nil
	}
	if res.constructing(i, p.Key) {
		i.mu.Unlock()
		return nil, CyclicDependencyError{Path: res.keys(p.Key)}
	}
	if pd, ok := i.creating[p.Key]; ok {
		i.mu.Unlock()
		return res.wait(pd, p.Key)
	}
	pd := &pending{owner: res, done: make(chan struct{})}
	i.creating[p.Key] = pd
	i.mu.Unlock()

	res.push(i, p.Key)
	v, err := i.instantiate(p, res)
	res.pop()

	i.mu.Lock()
	delete(i.creating, p.Key)
	if err == nil {
		i.instances[p.Key] = v
	}
	i.mu.Unlock()

	pd.v, pd.err = v, err
	close(pd.done)

	if err != nil {
		return nil, err
	}

	i.logger.Debug("instance created",
		"injector", i.id,
		"key", p.Key.DisplayName())

	return v, nil
}

func (i *Injector) instantiate(p *ResolvedProvider, res *resolution) (any, error) {
	if len(p.Factories) == 0 {
		return nil, InstantiationError{Key: p.Key, Path: res.keys(), Cause: ErrProviderNotResolvable}
	}

	if !p.Multi {
		return i.call(p.Key, p.Factories[0], res)
	}

	values := make([]any, len(p.Factories))
	for j, f := range p.Factories {
		v, err := i.call(p.Key, f, res)
		if err != nil {
			return nil, err
		}
		values[j] = v
	}
	return values, nil
}

func (i *Injector) call(key *Key, f *ResolvedFactory, res *resolution) (any, error) {
	args := make([]any, len(f.Dependencies))
	for j, dep := range f.Dependencies {
		v, err := i.resolveDependency(dep, res)
		if err != nil {
			return nil, err
		}
		args[j] = v
	}

	v, err := safeCall(f.Factory, args)
	if err != nil {
		return nil, InstantiationError{Key: key, Path: res.keys(), Cause: err}
	}

	if !f.borrowed {
		if d, ok := asDisposable(v); ok {
			return v, i.track(d)
		}
	}
	return v, nil
}

// track registers d for disposal. An injector closed while d was being
// created disposes it right away.
func (i *Injector) track(d DisposableWithContext) error {
	i.mu.Lock()
	if !i.closed {
		i.disposables = append(i.disposables, d)
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	return errors.Join(ErrInjectorClosed, d.Close(context.Background()))
}

func safeCall(factory FactoryFunc, args []any) (v any, err error) {
	if factory == nil {
		return nil, ErrProviderNotResolvable
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("factory panicked: %w", e)
			} else {
				err = fmt.Errorf("factory panicked: %v", r)
			}
		}
	}()

	return factory(args...)
}

// Close closes, in reverse creation order, every instance the injector
// constructed that implements Disposable or DisposableWithContext. Values and
// aliases are not closed. Close is idempotent; later lookups fail with
// ErrInjectorClosed.
func (i *Injector) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	toDispose := i.disposables
	i.disposables = nil
	i.mu.Unlock()

	ctx := context.Background()
	var errs []error

	// Dispose in reverse order (LIFO)
	for j := len(toDispose) - 1; j >= 0; j-- {
		if err := toDispose[j].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	i.logger.Debug("injector closed", "injector", i.id, "disposed", len(toDispose))
	return errors.Join(errs...)
}

func (i *Injector) String() string {
	keys := i.providers.Keys()
	names := make([]string, len(keys))
	for j, k := range keys {
		names[j] = k.DisplayName()
	}
	return "Injector(providers: [" + strings.Join(names, ", ") + "])"
}

// Resolve returns the instance for the type T.
//
//	car, err := refdi.Resolve[*Car](inj)
func Resolve[T any](inj *Injector) (T, error) {
	return ResolveToken[T](inj, TypeOf[T]())
}

// ResolveToken returns the instance for token as a T. A nil instance yields
// the zero T.
func ResolveToken[T any](inj *Injector, token any) (T, error) {
	var zero T
	if inj == nil {
		return zero, ErrInjectorNil
	}

	v, err := inj.Get(token)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %s", ErrResolvedType, formatToken(token), v, formatType(TypeOf[T]()))
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](inj *Injector) T {
	v, err := Resolve[T](inj)
	if err != nil {
		panic(err)
	}
	return v
}
