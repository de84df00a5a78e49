// Package gin provides refdi integration for the Gin web framework.
//
// The middleware creates a child injector for every request, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := refdi.ResolveAndCreate(appProviders)
//
//	g := gin.New()
//	g.Use(refdigin.InjectorMiddleware(root,
//	    refdigin.WithRequestProviders(func(*gin.Context) []any {
//	        return []any{refdi.TypeOf[*UserController]()}
//	    }),
//	))
//
//	g.GET("/users/:id", refdigin.Handle((*UserController).GetByID))
package gin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/refdi"
)

var contextType = refdi.TypeOf[*gin.Context]()

// Config holds the configuration for the injector middleware.
type Config struct {
	// ErrorHandler is called when the request injector cannot be created.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// CloseErrorHandler is called when closing the request injector fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// RequestProviders returns extra declarations for the request injector.
	RequestProviders func(*gin.Context) []any

	// Middlewares run after the request injector is created.
	// They can be used to initialize request state, set user claims, etc.
	Middlewares []func(*refdi.Injector, *gin.Context) error
}

// Option configures the injector middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for injector creation failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
func WithRequestProviders(fn func(*gin.Context) []any) Option {
	return func(c *Config) {
		c.RequestProviders = fn
	}
}

// WithMiddleware adds a function that runs after injector creation.
// Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	refdigin.InjectorMiddleware(root,
//	    refdigin.WithMiddleware(func(inj *refdi.Injector, c *gin.Context) error {
//	        session := refdi.MustResolve[*Session](inj)
//	        session.UserID = c.GetHeader("X-User")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(*refdi.Injector, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			abortInternal(c)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request injector", "error", err)
		},
	}
}

// InjectorMiddleware creates a gin.HandlerFunc that creates a child of root
// for each request. The child provides the *gin.Context, is attached to the
// request context, and is closed when the request completes.
//
// Example:
//
//	g := gin.New()
//	g.Use(refdigin.InjectorMiddleware(root))
func InjectorMiddleware(root *refdi.Injector, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		decls := []any{refdi.Value(contextType, c)}
		if cfg.RequestProviders != nil {
			decls = append(decls, cfg.RequestProviders(c)...)
		}

		inj, err := root.ResolveAndCreateChild(decls...)
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		defer func() {
			if err := inj.Close(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		c.Request = c.Request.WithContext(refdi.WithInjector(c.Request.Context(), inj))

		for _, mw := range cfg.Middlewares {
			if err := mw(inj, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	// If nil, a default handler returning 500 Internal Server Error is used.
	PanicHandler func(*gin.Context, any)

	// InjectorErrorHandler is called when the request has no injector.
	InjectorErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithInjectorErrorHandler sets the error handler for requests without an
// injector.
func WithInjectorErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.InjectorErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, r any) {
			slog.Error("panic in handler", "panic", r)
			abortInternal(c)
		},
		InjectorErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get injector from context", "error", err)
			abortInternal(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			abortInternal(c)
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the injector attached to the request context.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	g.GET("/users/:id", refdigin.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		inj, err := refdi.FromContext(c.Request.Context())
		if err != nil {
			cfg.InjectorErrorHandler(c, err)
			return
		}

		controller, err := refdi.Resolve[T](inj)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
