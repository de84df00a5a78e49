package refdi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/refdi/internal/reflection"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Token errors.
	ErrTokenNil           = errors.New("token must be defined")
	ErrTokenNotComparable = errors.New("token must be comparable")

	// Binding errors.
	ErrNotAType        = errors.New("class binding requires a reflect.Type")
	ErrNoConstructor   = errors.New("no constructor available")
	ErrConstructorType = errors.New("constructor does not produce the registered type")

	// Reflection errors, shared with the analyzer.
	ErrNotAFunction   = reflection.ErrNotAFunction
	ErrNotAStruct     = reflection.ErrNotAStruct
	ErrTooManyReturns = reflection.ErrTooManyReturns
	ErrArgumentCount  = reflection.ErrArgumentCount
	ErrArgumentType   = reflection.ErrArgumentType

	// Injector errors.
	ErrInjectorNil           = errors.New("injector cannot be nil")
	ErrInjectorNotInContext  = errors.New("no injector found in context")
	ErrProviderNotResolvable = errors.New("provider has no factories")
)

var (
	_ error = InvalidProviderError{}
	_ error = NoAnnotationError{}
	_ error = MixingMultiProvidersWithRegularProvidersError{}
	_ error = InvalidTokenError{}
	_ error = ReflectionError{}
	_ error = NoProviderError{}
	_ error = CyclicDependencyError{}
	_ error = InstantiationError{}
)

// ========================================
// Resolution Errors
// ========================================

// InvalidProviderError indicates a declaration that is not a reflect.Type,
// a *Provider or a nested list of those. Value carries the offending value,
// or the token of an unfinished ProviderBuilder.
type InvalidProviderError struct {
	Value   any
	Builder bool
}

func (e InvalidProviderError) Error() string {
	if e.Builder {
		return fmt.Sprintf("invalid provider - got an unfinished builder for %s (call ToClass, ToValue, ToAlias or ToFactory)", formatToken(e.Value))
	}
	return fmt.Sprintf("invalid provider - only instances of *Provider and reflect.Type are allowed, got: %s", formatToken(e.Value))
}

// NoAnnotationError indicates that a constructor or factory parameter has no
// usable type and no inject annotation.
type NoAnnotationError struct {
	Target any
	Params []Param
}

func (e NoAnnotationError) Error() string {
	signature := make([]string, len(e.Params))
	for i, p := range e.Params {
		signature[i] = p.String()
	}

	name := formatToken(e.Target)
	return fmt.Sprintf("cannot resolve all parameters for '%s'(%s). "+
		"Make sure that all the parameters have a concrete type or an inject annotation "+
		"and that '%s' is registered with the reflector.",
		name, strings.Join(signature, ", "), name)
}

// MixingMultiProvidersWithRegularProvidersError indicates that one key was
// registered both as a multi provider and as a regular provider.
type MixingMultiProvidersWithRegularProvidersError struct {
	Existing *ResolvedProvider
	Incoming *ResolvedProvider
}

func (e MixingMultiProvidersWithRegularProvidersError) Error() string {
	return fmt.Sprintf("cannot mix multi providers and regular providers, got: %s %s",
		e.Existing, e.Incoming)
}

// InvalidTokenError indicates a token that cannot be turned into a Key.
type InvalidTokenError struct {
	Token any
	Cause error
}

func (e InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token %s: %v", formatToken(e.Token), e.Cause)
}

func (e InvalidTokenError) Unwrap() error {
	return e.Cause
}

// ReflectionError wraps failures of the reflection collaborator.
type ReflectionError struct {
	Target    any
	Operation string // "parameters", "factory", "annotate", "register", "adapt"
	Cause     error
}

func (e ReflectionError) Error() string {
	return fmt.Sprintf("reflection %s failed for %s: %v", e.Operation, formatToken(e.Target), e.Cause)
}

func (e ReflectionError) Unwrap() error {
	return e.Cause
}

// ========================================
// Injector Errors
// ========================================

// NoProviderError indicates that no injector in the visible chain has a
// provider for Key. Path lists the keys being constructed, outermost first.
type NoProviderError struct {
	Key  *Key
	Path []*Key
}

func (e NoProviderError) Error() string {
	if len(e.Path) <= 1 {
		return fmt.Sprintf("no provider for %s!", e.Key.DisplayName())
	}
	return fmt.Sprintf("no provider for %s! (%s)", e.Key.DisplayName(), formatPath(e.Path))
}

// CyclicDependencyError indicates that constructing a key required itself.
type CyclicDependencyError struct {
	Path []*Key
}

func (e CyclicDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("cannot instantiate cyclic dependency! (")
	b.WriteString(formatPath(e.Path))
	b.WriteString(")\n\nTo resolve this:\n")
	b.WriteString("  • Use ForwardRefTo for tokens that are declared later\n")
	b.WriteString("  • Mark one side Optional or SkipSelf\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")
	return b.String()
}

// InstantiationError wraps an error returned (or a panic raised) by a factory.
type InstantiationError struct {
	Key   *Key
	Path  []*Key
	Cause error
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("error during instantiation of %s! (%s): %v",
		e.Key.DisplayName(), formatPath(e.Path), e.Cause)
}

func (e InstantiationError) Unwrap() error {
	return e.Cause
}

// IsNoProvider reports whether err is, or wraps, a NoProviderError.
func IsNoProvider(err error) bool {
	var target NoProviderError
	return errors.As(err, &target)
}

// IsCyclic reports whether err is, or wraps, a CyclicDependencyError.
func IsCyclic(err error) bool {
	var target CyclicDependencyError
	return errors.As(err, &target)
}

// IsMixingMultiProviders reports whether err is, or wraps, a
// MixingMultiProvidersWithRegularProvidersError.
func IsMixingMultiProviders(err error) bool {
	var target MixingMultiProvidersWithRegularProvidersError
	return errors.As(err, &target)
}

// formatPath renders keys as "A -> B -> C".
func formatPath(path []*Key) string {
	names := make([]string, len(path))
	for i, k := range path {
		names[i] = k.DisplayName()
	}
	return strings.Join(names, " -> ")
}

// formatToken renders a token for diagnostics.
func formatToken(token any) string {
	switch t := token.(type) {
	case nil:
		return "<nil>"
	case reflect.Type:
		return formatType(t)
	case *Key:
		return t.DisplayName()
	case *ForwardRef:
		return "ForwardRef"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}

	v := reflect.ValueOf(token)
	if v.Kind() == reflect.Func {
		return formatType(v.Type())
	}
	return fmt.Sprintf("%v", token)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Map:
		key := t.Key()
		elem := t.Elem()
		keyStr := key.Name()
		if keyStr == "" {
			keyStr = key.String()
		}
		elemStr := elem.Name()
		if elemStr == "" {
			elemStr = elem.String()
		}
		return "map[" + keyStr + "]" + elemStr
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
