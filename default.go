package refdi

import "sync/atomic"

var (
	// defaultResolver holds the Resolver used by the package-level functions.
	defaultResolver atomic.Pointer[Resolver]
)

func init() {
	defaultResolver.Store(NewResolver())
}

// SetDefaultResolver sets the Resolver used by the package-level functions.
// This is similar to slog.SetDefault.
//
// Passing nil restores a resolver built from DefaultReflector and
// DefaultKeys.
func SetDefaultResolver(r *Resolver) {
	if r == nil {
		r = NewResolver()
	}
	defaultResolver.Store(r)
}

// DefaultResolver returns the Resolver used by the package-level functions.
func DefaultResolver() *Resolver {
	return defaultResolver.Load()
}

// ResolveAll resolves declarations with the default resolver.
func ResolveAll(declarations ...any) ([]*ResolvedProvider, error) {
	return DefaultResolver().ResolveAll(declarations...)
}

// ResolveProvider resolves one declaration with the default resolver.
func ResolveProvider(p *Provider) (*ResolvedProvider, error) {
	return DefaultResolver().ResolveProvider(p)
}

// ResolveFactory resolves the binding of p with the default resolver.
func ResolveFactory(p *Provider) (*ResolvedFactory, error) {
	return DefaultResolver().ResolveFactory(p)
}
