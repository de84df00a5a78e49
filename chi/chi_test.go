package chi

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type testService struct {
	ID string
}

type testController struct {
	Service *testService       `inject:""`
	Route   *chirouter.Context `inject:""`
	Request *http.Request      `inject:""`
}

func (c *testController) GetValue(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.Service.ID))
}

func (c *testController) GetParam(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.Route.URLParam("id") + " " + c.Request.Method))
}

func (c *testController) Panic(w http.ResponseWriter, r *http.Request) {
	panic("test panic")
}

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func newRoot(t *testing.T, decls ...any) *refdi.Injector {
	t.Helper()
	decls = append([]any{refdi.Value(refdi.TypeOf[*testService](), &testService{ID: "root"})}, decls...)
	root, err := refdi.ResolveAndCreate(decls)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })
	return root
}

func controllerProviders(*http.Request) []any {
	return []any{refdi.TypeOf[*testController]()}
}

func TestInjectorMiddleware(t *testing.T) {
	t.Run("creates child injector and attaches to context", func(t *testing.T) {
		root := newRoot(t)

		var child *refdi.Injector
		var service *testService

		handler := InjectorMiddleware(root)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			child, err = refdi.FromContext(r.Context())
			assert.NoError(t, err)

			service, err = refdi.Resolve[*testService](child)
			assert.NoError(t, err)

			req, err := refdi.Resolve[*http.Request](child)
			assert.NoError(t, err)
			assert.Same(t, r, req, "the request provider returns the request carrying the injector")

			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, child)
		assert.Same(t, root, child.Parent())
		assert.Equal(t, "root", service.ID)

		_, err := child.Get(refdi.TypeOf[*testService]())
		assert.ErrorIs(t, err, refdi.ErrInjectorClosed, "child is closed after the request")
	})

	t.Run("closes request instances", func(t *testing.T) {
		root := newRoot(t)
		c := &closer{}

		handler := InjectorMiddleware(root,
			WithRequestProviders(func(*http.Request) []any {
				return []any{refdi.Factory("closer", func() *closer { return c })}
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inj, _ := refdi.FromContext(r.Context())
			_, err := inj.Get("closer")
			assert.NoError(t, err)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.True(t, c.closed)
	})

	t.Run("reports close errors", func(t *testing.T) {
		root := newRoot(t)
		c := &closer{err: errors.New("close failed")}
		var closeErr error

		handler := InjectorMiddleware(root,
			WithRequestProviders(func(*http.Request) []any {
				return []any{refdi.Factory("closer", func() *closer { return c })}
			}),
			WithCloseErrorHandler(func(err error) { closeErr = err }),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inj, _ := refdi.FromContext(r.Context())
			inj.Get("closer")
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.EqualError(t, closeErr, "close failed")
	})

	t.Run("calls error handler when the root is closed", func(t *testing.T) {
		errorHandlerCalled := false

		root := newRoot(t)
		root.Close()

		handler := InjectorMiddleware(root,
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, refdi.ErrInjectorClosed)
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("calls error handler for invalid request providers", func(t *testing.T) {
		root := newRoot(t)

		handler := InjectorMiddleware(root,
			WithRequestProviders(func(*http.Request) []any { return []any{42} }),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("runs middlewares in order", func(t *testing.T) {
		var mwOrder []int

		handler := InjectorMiddleware(newRoot(t),
			WithMiddleware(func(inj *refdi.Injector, r *http.Request) error {
				mwOrder = append(mwOrder, 1)
				return nil
			}),
			WithMiddleware(func(inj *refdi.Injector, r *http.Request) error {
				mwOrder = append(mwOrder, 2)
				return nil
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, []int{1, 2}, mwOrder)
	})

	t.Run("calls error handler when middleware fails", func(t *testing.T) {
		expectedErr := errors.New("middleware failed")

		handler := InjectorMiddleware(newRoot(t),
			WithMiddleware(func(inj *refdi.Injector, r *http.Request) error {
				return expectedErr
			}),
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				assert.Equal(t, expectedErr, err)
				w.WriteHeader(http.StatusBadRequest)
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller and calls method", func(t *testing.T) {
		r := chirouter.NewRouter()
		r.Use(InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders)))
		r.Get("/value", Handle((*testController).GetValue))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "root", string(body))
	})

	t.Run("injects route context", func(t *testing.T) {
		r := chirouter.NewRouter()
		r.Use(InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders)))
		r.Get("/users/{id}", Handle((*testController).GetParam))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "42 GET", rec.Body.String())
	})

	t.Run("calls injector error handler when no injector", func(t *testing.T) {
		errorHandlerCalled := false

		handler := Handle((*testController).GetValue,
			WithInjectorErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				errorHandlerCalled = true
				assert.ErrorIs(t, err, refdi.ErrInjectorNotInContext)
				w.WriteHeader(http.StatusInternalServerError)
			}),
		)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.True(t, errorHandlerCalled)
	})

	t.Run("calls resolution error handler when controller not found", func(t *testing.T) {
		errorHandlerCalled := false

		handler := InjectorMiddleware(newRoot(t))(Handle((*testController).GetValue,
			WithResolutionErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				errorHandlerCalled = true
				assert.True(t, refdi.IsNoProvider(err))
				w.WriteHeader(http.StatusNotFound)
			}),
		))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recovers from panic when enabled", func(t *testing.T) {
		panicHandlerCalled := false

		handler := InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders))(Handle((*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(w http.ResponseWriter, r *http.Request, v any) {
				panicHandlerCalled = true
				assert.Equal(t, "test panic", v)
				w.WriteHeader(http.StatusInternalServerError)
			}),
		))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.True(t, panicHandlerCalled)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("does not recover from panic when disabled", func(t *testing.T) {
		handler := InjectorMiddleware(newRoot(t), WithRequestProviders(controllerProviders))(Handle((*testController).Panic))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	rec := httptest.NewRecorder()
	cfg.ErrorHandler(rec, httptest.NewRequest(http.MethodGet, "/test", nil), errors.New("test error"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDefaultHandlerConfig(t *testing.T) {
	t.Run("panic recovery disabled by default", func(t *testing.T) {
		assert.False(t, defaultHandlerConfig().PanicRecovery)
	})

	t.Run("default panic handler returns 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		defaultHandlerConfig().PanicHandler(rec, httptest.NewRequest(http.MethodGet, "/test", nil), "panic value")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
