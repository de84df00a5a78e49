// Package fiber provides refdi integration for the Fiber web framework.
//
// The middleware creates a child injector for every request, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := refdi.ResolveAndCreate(appProviders)
//
//	app := fiber.New()
//	app.Use(refdifiber.InjectorMiddleware(root,
//	    refdifiber.WithRequestProviders(func(*fiber.Ctx) []any {
//	        return []any{refdi.TypeOf[*UserController]()}
//	    }),
//	))
//
//	app.Get("/users/:id", refdifiber.Handle((*UserController).GetByID))
package fiber

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/refdi"
)

// injectorKey is the key used to store the injector in fiber.Ctx.Locals
const injectorKey = "refdi_injector"

var contextType = refdi.TypeOf[*fiber.Ctx]()

// Config holds the configuration for the injector middleware.
type Config struct {
	// ErrorHandler is called when the request injector cannot be created.
	// If nil, a JSON 500 response is sent.
	ErrorHandler func(*fiber.Ctx, error) error

	// CloseErrorHandler is called when closing the request injector fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// RequestProviders returns extra declarations for the request injector.
	RequestProviders func(*fiber.Ctx) []any

	// Middlewares run after the request injector is created.
	Middlewares []func(*refdi.Injector, *fiber.Ctx) error
}

// Option configures the injector middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for injector creation failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
func WithRequestProviders(fn func(*fiber.Ctx) []any) Option {
	return func(c *Config) {
		c.RequestProviders = fn
	}
}

// WithMiddleware adds a function that runs after injector creation.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*refdi.Injector, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return internalError(c)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request injector", "error", err)
		},
	}
}

// InjectorMiddleware creates a Fiber middleware that creates a child of root
// for each request. The child provides the *fiber.Ctx, is stored in
// fiber.Ctx.Locals and attached to the UserContext.
//
// The child is closed when the request completes. Instances must not be
// retained past the request since Fiber reuses its contexts.
//
// Example:
//
//	app := fiber.New()
//	app.Use(refdifiber.InjectorMiddleware(root))
func InjectorMiddleware(root *refdi.Injector, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		decls := []any{refdi.Value(contextType, c)}
		if cfg.RequestProviders != nil {
			decls = append(decls, cfg.RequestProviders(c)...)
		}

		inj, err := root.ResolveAndCreateChild(decls...)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		defer func() {
			c.Locals(injectorKey, nil)
			if closeErr := inj.Close(); closeErr != nil {
				cfg.CloseErrorHandler(closeErr)
			}
		}()

		c.SetUserContext(refdi.WithInjector(c.UserContext(), inj))
		c.Locals(injectorKey, inj)

		for _, mw := range cfg.Middlewares {
			if err := mw(inj, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// InjectorErrorHandler is called when the request has no injector.
	InjectorErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithInjectorErrorHandler sets the error handler for requests without an
// injector.
func WithInjectorErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.InjectorErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError(c)
		},
		InjectorErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get injector from context", "error", err)
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError(c)
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the injector stored in fiber.Ctx.Locals.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	app.Get("/users/:id", refdifiber.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		inj := FromContext(c)
		if inj == nil {
			return cfg.InjectorErrorHandler(c, refdi.ErrInjectorNotInContext)
		}

		controller, resolveErr := refdi.Resolve[T](inj)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext retrieves the request injector from fiber.Ctx.Locals.
// This is useful when you need to resolve services manually.
//
// Example:
//
//	inj := refdifiber.FromContext(c)
//	users := refdi.MustResolve[*UserService](inj)
func FromContext(c *fiber.Ctx) *refdi.Injector {
	inj, ok := c.Locals(injectorKey).(*refdi.Injector)
	if !ok {
		return nil
	}
	return inj
}
