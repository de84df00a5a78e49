// Package echo provides refdi integration for the Echo web framework.
//
// The middleware creates a child injector for every request, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := refdi.ResolveAndCreate(appProviders)
//
//	e := echo.New()
//	e.Use(refdiecho.InjectorMiddleware(root,
//	    refdiecho.WithRequestProviders(func(echo.Context) []any {
//	        return []any{refdi.TypeOf[*UserController]()}
//	    }),
//	))
//
//	e.GET("/users/:id", refdiecho.Handle((*UserController).GetByID))
package echo

import (
	"log/slog"
	"net/http"

	"github.com/junioryono/refdi"
	"github.com/labstack/echo/v4"
)

var contextType = refdi.TypeOf[echo.Context]()

// Config holds the configuration for the injector middleware.
type Config struct {
	// ErrorHandler is called when the request injector cannot be created.
	// If nil, an echo.HTTPError with status 500 is returned.
	ErrorHandler func(echo.Context, error) error

	// CloseErrorHandler is called when closing the request injector fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// RequestProviders returns extra declarations for the request injector.
	RequestProviders func(echo.Context) []any

	// Middlewares run after the request injector is created.
	Middlewares []func(*refdi.Injector, echo.Context) error
}

// Option configures the injector middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for injector creation failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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
func WithRequestProviders(fn func(echo.Context) []any) Option {
	return func(c *Config) {
		c.RequestProviders = fn
	}
}

// WithMiddleware adds a function that runs after injector creation.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*refdi.Injector, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError() error {
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return internalError()
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request injector", "error", err)
		},
	}
}

// InjectorMiddleware creates an Echo middleware that creates a child of root
// for each request. The child provides the echo.Context, is attached to the
// request context, and is closed when the request completes.
//
// Example:
//
//	e := echo.New()
//	e.Use(refdiecho.InjectorMiddleware(root))
func InjectorMiddleware(root *refdi.Injector, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decls := []any{refdi.Value(contextType, c)}
			if cfg.RequestProviders != nil {
				decls = append(decls, cfg.RequestProviders(c)...)
			}

			inj, err := root.ResolveAndCreateChild(decls...)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			defer func() {
				if err := inj.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(refdi.WithInjector(c.Request().Context(), inj)))

			for _, mw := range cfg.Middlewares {
				if err := mw(inj, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// InjectorErrorHandler is called when the request has no injector.
	InjectorErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithInjectorErrorHandler sets the error handler for requests without an
// injector.
func WithInjectorErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.InjectorErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError()
		},
		InjectorErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get injector from context", "error", err)
			return internalError()
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError()
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the injector attached to the request context.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	e.GET("/users/:id", refdiecho.Handle((*UserController).GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		inj, injErr := refdi.FromContext(c.Request().Context())
		if injErr != nil {
			return cfg.InjectorErrorHandler(c, injErr)
		}

		controller, resolveErr := refdi.Resolve[T](inj)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
