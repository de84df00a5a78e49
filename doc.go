// Package refdi provides a hierarchical, reflection driven dependency injector
// for Go applications. Providers are declared as data, resolved once into a
// normalized form, and instantiated lazily by a tree of injectors.
//
// # Overview
//
// refdi separates declaring providers from building instances:
//   - Declarations are *Provider values or bare reflect.Type values, possibly nested in slices
//   - A Resolver turns declarations into ResolvedProvider values keyed by *Key
//   - An Injector owns resolved providers and caches one instance per key
//   - Child injectors see their parents' providers and may shadow them
//   - Multi providers collect several values under one token
//   - Every injector is safe for concurrent use
//
// # Basic Usage
//
// Declare providers, create an injector and resolve:
//
//	inj, err := refdi.ResolveAndCreate([]any{
//	    refdi.Value("dsn", "postgres://localhost/app"),
//	    refdi.Factory(refdi.TypeOf[*Database](), NewDatabase, refdi.Deps("dsn")),
//	    refdi.TypeOf[*UserService](),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inj.Close()
//
//	users, err := refdi.Resolve[*UserService](inj)
//
// # Tokens
//
// Any comparable value can be a token. Types are tokens too, so
// refdi.TypeOf[*Database]() names the *Database provider. Use NewOpaqueToken
// for tokens that cannot collide:
//
//	var Plugins = refdi.NewOpaqueToken("plugins")
//
// # Bindings
//
// A provider binds its token to one of:
//
//   - Class: a type built by its registered constructor or by filling tagged struct fields
//   - Value: a fixed value
//   - Factory: a function called with the provider's dependencies
//   - Existing: an alias for another token
//
// # Dependencies
//
// Function parameters are described by their types. Explicit dependencies
// override that:
//
//	refdi.Factory("report", NewReport,
//	    refdi.Deps("dsn", []refdi.Annotation{refdi.Inject("cache"), refdi.Optional()}))
//
// Struct types declare their dependencies with inject tags:
//
//	type UserService struct {
//	    DB     *Database `inject:""`
//	    Cache  Cache     `inject:"optional"`
//	    Parent *Config   `inject:"skipself"`
//	    Region string    `inject:"token=region,host"`
//	}
//
// Tags accept token=<name>, optional, self, host, skipself and arbitrary
// key=value attributes. A tag of "-" skips the field.
//
// # Visibility
//
// Self limits lookup to the requesting injector. SkipSelf starts lookup at its
// parent. Host stops at the nearest injector created with AsHost. Optional
// dependencies resolve to nil when no provider is visible.
//
// # Child Injectors
//
// Child injectors are cheap. Create one per request and close it when done:
//
//	child, err := root.ResolveAndCreateChild(refdi.Value(RequestID, id))
//	defer child.Close()
//
// Dependencies are always looked up from the injector that owns the provider,
// so a root singleton never sees request-level providers.
//
// # Disposal
//
// Close releases instances the injector constructed that implement Disposable
// or DisposableWithContext, newest first. Values and aliases belong to their
// caller and are never closed.
//
// # Error Handling
//
// refdi provides detailed error types for different failure scenarios:
//   - NoProviderError: No visible provider for a token
//   - CyclicDependencyError: A key depends on itself
//   - InstantiationError: A factory returned an error or panicked
//   - NoAnnotationError: A parameter has neither a usable type nor a token
//   - MixingMultiProvidersWithRegularProvidersError: A token is both multi and regular
//
// # Graph Inspection
//
// CheckGraph, TopologicalOrder, WriteDOT and WriteText analyze the providers
// of one injector without instantiating anything.
package refdi
