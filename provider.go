package refdi

import (
	"fmt"
	"reflect"
)

// Binding describes how a provider produces its value. The set of
// implementations is closed: ClassBinding, ValueBinding, FactoryBinding and
// ExistingBinding.
type Binding interface {
	binding()
	String() string
}

var (
	_ Binding = ClassBinding{}
	_ Binding = ValueBinding{}
	_ Binding = FactoryBinding{}
	_ Binding = ExistingBinding{}
)

// ClassBinding constructs a type. Class is a reflect.Type or a *ForwardRef
// that resolves to one.
type ClassBinding struct {
	Class any
}

// ValueBinding returns a fixed value.
type ValueBinding struct {
	Value any
}

// FactoryBinding calls a function. Deps, when non-nil, replaces the
// dependencies derived from the function's parameters; each entry is a
// token, an Annotation, a []Annotation or a Param.
type FactoryBinding struct {
	Func any
	Deps []any
}

// ExistingBinding aliases another token.
type ExistingBinding struct {
	Token any
}

func (ClassBinding) binding()    {}
func (ValueBinding) binding()    {}
func (FactoryBinding) binding()  {}
func (ExistingBinding) binding() {}

func (b ClassBinding) String() string    { return "useClass: " + formatToken(b.Class) }
func (b ValueBinding) String() string    { return fmt.Sprintf("useValue: %v", b.Value) }
func (b FactoryBinding) String() string  { return "useFactory: " + formatToken(b.Func) }
func (b ExistingBinding) String() string { return "useExisting: " + formatToken(b.Token) }

// Provider is a single provider declaration.
type Provider struct {
	// Token is what the provider is registered under.
	Token any

	// Binding produces the value. A nil Binding provides a nil value.
	Binding Binding

	// Multi marks the provider as one contribution to a collection.
	Multi bool
}

func (p *Provider) String() string {
	if p == nil {
		return "Provider(<nil>)"
	}
	multi := ""
	if p.Multi {
		multi = ", multi"
	}
	binding := "useValue: <nil>"
	if p.Binding != nil {
		binding = p.Binding.String()
	}
	return fmt.Sprintf("Provider(%s, %s%s)", formatToken(p.Token), binding, multi)
}

// ProviderOption configures a provider declaration.
type ProviderOption interface {
	applyProviderOption(*providerOptions)
}

type providerOptions struct {
	multi   bool
	deps    []any
	hasDeps bool
}

type providerOptionFunc func(*providerOptions)

func (f providerOptionFunc) applyProviderOption(opts *providerOptions) {
	f(opts)
}

// Multi marks the provider as a contribution to a multi provider.
func Multi() ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		opts.multi = true
	})
}

// Deps sets the explicit dependency list of a factory provider. Calling Deps
// with no arguments declares a factory with no dependencies, which skips
// parameter introspection entirely.
func Deps(deps ...any) ProviderOption {
	return providerOptionFunc(func(opts *providerOptions) {
		if deps == nil {
			deps = []any{}
		}
		opts.deps = deps
		opts.hasDeps = true
	})
}

// Provide creates a provider for token with the given binding.
func Provide(token any, b Binding, opts ...ProviderOption) *Provider {
	options := &providerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyProviderOption(options)
		}
	}

	if fb, ok := b.(FactoryBinding); ok && options.hasDeps {
		fb.Deps = options.deps
		b = fb
	}

	return &Provider{Token: token, Binding: b, Multi: options.multi}
}

// Class binds token to a type that the reflector knows how to construct.
//
//	refdi.Class(refdi.TypeOf[Logger](), refdi.TypeOf[*ConsoleLogger]())
func Class(token any, class any, opts ...ProviderOption) *Provider {
	return Provide(token, ClassBinding{Class: class}, opts...)
}

// Value binds token to value.
func Value(token any, value any, opts ...ProviderOption) *Provider {
	return Provide(token, ValueBinding{Value: value}, opts...)
}

// Factory binds token to the result of calling fn.
//
//	refdi.Factory(Greeting, func(name string) string { return "Hello " + name },
//		refdi.Deps(UserName))
func Factory(token any, fn any, opts ...ProviderOption) *Provider {
	return Provide(token, FactoryBinding{Func: fn}, opts...)
}

// Existing binds token to whatever target is bound to.
func Existing(token any, target any, opts ...ProviderOption) *Provider {
	return Provide(token, ExistingBinding{Token: target}, opts...)
}

// selfClass is the provider a bare type declaration stands for.
func selfClass(t reflect.Type) *Provider {
	return Class(t, t)
}

// ProviderBuilder is the fluent form of provider declaration.
//
// Deprecated: use Class, Value, Factory or Existing. A builder passed to
// Normalize without being finished is rejected with InvalidProviderError.
type ProviderBuilder struct {
	Token any
}

// Bind starts a fluent provider declaration.
//
// Deprecated: use Class, Value, Factory or Existing.
func Bind(token any) *ProviderBuilder {
	return &ProviderBuilder{Token: token}
}

// ToClass finishes the declaration with a class binding.
func (b *ProviderBuilder) ToClass(class any) *Provider {
	return Class(b.Token, class)
}

// ToValue finishes the declaration with a value binding.
func (b *ProviderBuilder) ToValue(value any) *Provider {
	return Value(b.Token, value)
}

// ToAlias finishes the declaration with an existing binding.
func (b *ProviderBuilder) ToAlias(target any) *Provider {
	return Existing(b.Token, target)
}

// ToFactory finishes the declaration with a factory binding.
func (b *ProviderBuilder) ToFactory(fn any, deps ...any) *Provider {
	if deps == nil {
		return Factory(b.Token, fn)
	}
	return Factory(b.Token, fn, Deps(deps...))
}
