package refdi

import "context"

// injectorContextKey is the key for storing an injector in a context.
type injectorContextKey struct{}

// WithInjector returns a context carrying inj.
func WithInjector(ctx context.Context, inj *Injector) context.Context {
	return context.WithValue(ctx, injectorContextKey{}, inj)
}

// FromContext gets the injector stored by WithInjector.
func FromContext(ctx context.Context) (*Injector, error) {
	inj, ok := ctx.Value(injectorContextKey{}).(*Injector)
	if !ok || inj == nil {
		return nil, ErrInjectorNotInContext
	}

	if inj.isClosed() {
		return nil, ErrInjectorClosed
	}

	return inj, nil
}
