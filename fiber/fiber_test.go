package fiber

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type testService struct {
	ID string
}

type testController struct {
	Service *testService `inject:""`
	Ctx     *fiber.Ctx   `inject:""`
}

func (c *testController) GetValue(ctx *fiber.Ctx) error {
	return ctx.SendString(c.Service.ID)
}

func (c *testController) GetParam(ctx *fiber.Ctx) error {
	return ctx.SendString(c.Ctx.Params("id"))
}

func (c *testController) Panic(ctx *fiber.Ctx) error {
	panic("test panic")
}

func newRoot(t *testing.T) *refdi.Injector {
	t.Helper()
	root, err := refdi.ResolveAndCreate([]any{
		refdi.Value(refdi.TypeOf[*testService](), &testService{ID: "root"}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })
	return root
}

func controllerProviders(*fiber.Ctx) []any {
	return []any{refdi.TypeOf[*testController]()}
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestInjectorMiddleware(t *testing.T) {
	t.Run("creates child injector and stores in locals", func(t *testing.T) {
		root := newRoot(t)

		var child *refdi.Injector
		var service *testService

		app := fiber.New()
		app.Use(InjectorMiddleware(root))
		app.Get("/test", func(c *fiber.Ctx) error {
			child = FromContext(c)
			assert.NotNil(t, child)

			var err error
			service, err = refdi.Resolve[*testService](child)
			assert.NoError(t, err)

			ctx, err := refdi.Resolve[*fiber.Ctx](child)
			assert.NoError(t, err)
			assert.Same(t, c, ctx)

			return c.SendStatus(http.StatusOK)
		})

		status, _ := get(t, app, "/test")

		assert.Equal(t, http.StatusOK, status)
		require.NotNil(t, child)
		assert.Same(t, root, child.Parent())
		assert.Equal(t, "root", service.ID)

		_, err := child.Get(contextType)
		assert.ErrorIs(t, err, refdi.ErrInjectorClosed)
	})

	t.Run("injector also available from user context", func(t *testing.T) {
		var found bool

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t)))
		app.Get("/test", func(c *fiber.Ctx) error {
			inj, err := refdi.FromContext(c.UserContext())
			assert.NoError(t, err)
			found = inj == FromContext(c)
			return c.SendStatus(http.StatusOK)
		})

		status, _ := get(t, app, "/test")

		assert.Equal(t, http.StatusOK, status)
		assert.True(t, found)
	})

	t.Run("calls error handler when the root is closed", func(t *testing.T) {
		errorHandlerCalled := false

		root := newRoot(t)
		root.Close()

		app := fiber.New()
		app.Use(InjectorMiddleware(root,
			WithErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				return c.SendStatus(http.StatusServiceUnavailable)
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		status, _ := get(t, app, "/test")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("runs middlewares in order", func(t *testing.T) {
		var mwOrder []int

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t),
			WithMiddleware(func(inj *refdi.Injector, c *fiber.Ctx) error {
				mwOrder = append(mwOrder, 1)
				return nil
			}),
			WithMiddleware(func(inj *refdi.Injector, c *fiber.Ctx) error {
				mwOrder = append(mwOrder, 2)
				return nil
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		get(t, app, "/test")

		assert.Equal(t, []int{1, 2}, mwOrder)
	})

	t.Run("calls error handler when middleware fails", func(t *testing.T) {
		expectedErr := errors.New("middleware failed")

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t),
			WithMiddleware(func(inj *refdi.Injector, c *fiber.Ctx) error {
				return expectedErr
			}),
			WithErrorHandler(func(c *fiber.Ctx, err error) error {
				assert.Equal(t, expectedErr, err)
				return c.SendStatus(http.StatusBadRequest)
			}),
		))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		status, _ := get(t, app, "/test")

		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller and calls method", func(t *testing.T) {
		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders)))
		app.Get("/value", Handle((*testController).GetValue))

		status, body := get(t, app, "/value")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "root", body)
	})

	t.Run("injects the fiber context", func(t *testing.T) {
		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders)))
		app.Get("/users/:id", Handle((*testController).GetParam))

		status, body := get(t, app, "/users/5")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "5", body)
	})

	t.Run("calls injector error handler when no injector", func(t *testing.T) {
		errorHandlerCalled := false

		app := fiber.New()
		app.Get("/value", Handle((*testController).GetValue,
			WithInjectorErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, refdi.ErrInjectorNotInContext)
				return c.SendStatus(http.StatusInternalServerError)
			}),
		))

		status, _ := get(t, app, "/value")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, status)
	})

	t.Run("calls resolution error handler when controller not found", func(t *testing.T) {
		errorHandlerCalled := false

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t)))
		app.Get("/value", Handle((*testController).GetValue,
			WithResolutionErrorHandler(func(c *fiber.Ctx, err error) error {
				errorHandlerCalled = true
				assert.True(t, refdi.IsNoProvider(err))
				return c.SendStatus(http.StatusNotFound)
			}),
		))

		status, _ := get(t, app, "/value")

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("recovers from panic when enabled", func(t *testing.T) {
		panicHandlerCalled := false

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders)))
		app.Get("/panic", Handle((*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(c *fiber.Ctx, v any) error {
				panicHandlerCalled = true
				assert.Equal(t, "test panic", v)
				return c.SendStatus(http.StatusInternalServerError)
			}),
		))

		status, _ := get(t, app, "/panic")

		assert.True(t, panicHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns nil when no injector", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			assert.Nil(t, FromContext(c))
			return c.SendStatus(http.StatusOK)
		})

		status, _ := get(t, app, "/test")

		assert.Equal(t, http.StatusOK, status)
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Run("default error handler returns JSON error", func(t *testing.T) {
		cfg := defaultConfig()

		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			return cfg.ErrorHandler(c, errors.New("test error"))
		})

		status, body := get(t, app, "/test")

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, body)
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	t.Run("panic recovery disabled by default", func(t *testing.T) {
		cfg := defaultHandlerConfig()
		assert.False(t, cfg.PanicRecovery)
	})
}

func TestIntegration(t *testing.T) {
	t.Run("full request lifecycle", func(t *testing.T) {
		requestValues := make(map[string]string)

		app := fiber.New()
		app.Use(InjectorMiddleware(newRoot(t),
			WithRequestProviders(controllerProviders),
			WithMiddleware(func(inj *refdi.Injector, c *fiber.Ctx) error {
				requestValues["initialized"] = "true"
				return nil
			}),
		))
		app.Get("/test", Handle(func(ctrl *testController, c *fiber.Ctx) error {
			requestValues["service_id"] = ctrl.Service.ID
			return c.SendString("OK")
		}))

		status, _ := get(t, app, "/test")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "true", requestValues["initialized"])
		assert.Equal(t, "root", requestValues["service_id"])
	})
}
