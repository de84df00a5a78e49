// Package chi provides refdi integration for the Chi router.
//
// The middleware creates a child injector for every request, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := refdi.ResolveAndCreate(appProviders)
//
//	r := chi.NewRouter()
//	r.Use(refdichi.InjectorMiddleware(root,
//	    refdichi.WithRequestProviders(func(*http.Request) []any {
//	        return []any{refdi.TypeOf[*UserController]()}
//	    }),
//	))
//
//	r.Get("/users/{id}", refdichi.Handle((*UserController).GetByID))
package chi

import (
	"log/slog"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/junioryono/refdi"
)

var (
	requestType      = refdi.TypeOf[*http.Request]()
	routeContextType = refdi.TypeOf[*chirouter.Context]()
)

// Config holds the configuration for the injector middleware.
type Config struct {
	// ErrorHandler is called when the request injector cannot be created.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// CloseErrorHandler is called when closing the request injector fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// RequestProviders returns extra declarations for the request injector.
	RequestProviders func(*http.Request) []any

	// Middlewares run after the request injector is created.
	Middlewares []func(*refdi.Injector, *http.Request) error
}

// Option configures the injector middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for injector creation failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithCloseErrorHandler sets the error handler for injector close failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithRequestProviders declares providers that live in the request injector.
// Providers that depend on the request belong here, since root providers
// never see request level tokens.
func WithRequestProviders(fn func(*http.Request) []any) Option {
	return func(c *Config) {
		c.RequestProviders = fn
	}
}

// WithMiddleware adds a function that runs after injector creation.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*refdi.Injector, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request injector", "error", err)
		},
	}
}

// InjectorMiddleware creates a Chi middleware that creates a child of root
// for each request. The child provides the *http.Request and the
// *chi.Context of the route, is attached to the request context, and is
// closed when the request completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(refdichi.InjectorMiddleware(root))
func InjectorMiddleware(root *refdi.Injector, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decls := []any{
				// r is replaced below; the factory returns the final request.
				refdi.Factory(requestType, func() *http.Request { return r }),
			}
			if rctx := chirouter.RouteContext(r.Context()); rctx != nil {
				decls = append(decls, refdi.Value(routeContextType, rctx))
			}
			if cfg.RequestProviders != nil {
				decls = append(decls, cfg.RequestProviders(r)...)
			}

			inj, err := root.ResolveAndCreateChild(decls...)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			defer func() {
				if err := inj.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			r = r.WithContext(refdi.WithInjector(r.Context(), inj))

			for _, mw := range cfg.Middlewares {
				if err := mw(inj, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// InjectorErrorHandler is called when the request has no injector.
	InjectorErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithInjectorErrorHandler sets the error handler for requests without an
// injector.
func WithInjectorErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.InjectorErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		InjectorErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get injector from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the injector attached to the request context.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", refdichi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		inj, err := refdi.FromContext(r.Context())
		if err != nil {
			cfg.InjectorErrorHandler(w, r, err)
			return
		}

		controller, err := refdi.Resolve[T](inj)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
