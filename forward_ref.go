package refdi

import "sync"

// ForwardRef is a lazily evaluated token. It lets a declaration refer to a
// token whose value is not available yet, for example a package variable
// initialized later or a type registered after the declaring code runs.
//
// The callback runs at most once, the first time the reference is resolved.
type ForwardRef struct {
	once  sync.Once
	fn    func() any
	value any
}

// ForwardRefTo wraps fn in a ForwardRef.
//
//	refdi.Existing(Alias, refdi.ForwardRefTo(func() any { return Target }))
func ForwardRefTo(fn func() any) *ForwardRef {
	return &ForwardRef{fn: fn}
}

// Resolve forces the reference and returns its value.
func (r *ForwardRef) Resolve() any {
	r.once.Do(func() {
		if r.fn != nil {
			r.value = r.fn()
		}
		r.fn = nil
	})
	return r.value
}

// ResolveForwardRef returns the value behind token when it is a *ForwardRef
// and token itself otherwise.
func ResolveForwardRef(token any) any {
	if r, ok := token.(*ForwardRef); ok {
		if r == nil {
			return nil
		}
		return r.Resolve()
	}
	return token
}
