package testutil

import (
	"testing"

	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DeclarationFixture is a named group of declarations.
type DeclarationFixture struct {
	Name         string
	Declarations []any
	Dependencies []string
}

// CommonFixtures provides common declarations for testing
var CommonFixtures = struct {
	Logger   DeclarationFixture
	Database DeclarationFixture
	Cache    DeclarationFixture
	Service  DeclarationFixture
	Handlers func(names ...string) DeclarationFixture
}{
	Logger: DeclarationFixture{
		Name: "Logger",
		Declarations: []any{
			refdi.Factory(refdi.TypeOf[TestLogger](), NewTestLogger),
		},
	},
	Database: DeclarationFixture{
		Name: "Database",
		Declarations: []any{
			refdi.Value(DSNToken, "postgres://test"),
			refdi.Factory(refdi.TypeOf[TestDatabase](), NewTestDatabase, refdi.Deps(DSNToken)),
		},
		Dependencies: []string{"Token dsn"},
	},
	Cache: DeclarationFixture{
		Name: "Cache",
		Declarations: []any{
			refdi.Factory(refdi.TypeOf[TestCache](), NewTestCache),
		},
	},
	Service: DeclarationFixture{
		Name: "Service",
		Declarations: []any{
			refdi.Factory(refdi.TypeOf[*TestServiceWithDeps](), NewTestServiceWithDeps),
		},
		Dependencies: []string{"TestLogger", "TestDatabase", "TestCache"},
	},
	Handlers: func(names ...string) DeclarationFixture {
		decls := make([]any, len(names))
		for i, name := range names {
			decls[i] = refdi.Value(HandlersToken, NewTestHandler(name), refdi.Multi())
		}
		return DeclarationFixture{Name: "Handlers", Declarations: decls}
	},
}

// BasicDeclarations returns the logger, database and cache fixtures.
func BasicDeclarations() []any {
	return []any{
		CommonFixtures.Logger.Declarations,
		CommonFixtures.Database.Declarations,
		CommonFixtures.Cache.Declarations,
	}
}

// CompleteDeclarations returns the basic fixtures plus the service that
// depends on them.
func CompleteDeclarations() []any {
	return append(BasicDeclarations(), CommonFixtures.Service.Declarations)
}

// CreateInjectorWithBasicServices creates an injector from BasicDeclarations.
func CreateInjectorWithBasicServices(t *testing.T) *refdi.Injector {
	t.Helper()
	return NewInjectorBuilder(t).With(BasicDeclarations()...).Build()
}

// CreateInjectorWithCompleteServices creates an injector from
// CompleteDeclarations.
func CreateInjectorWithCompleteServices(t *testing.T) *refdi.Injector {
	t.Helper()
	return NewInjectorBuilder(t).With(CompleteDeclarations()...).Build()
}

// ErrorTestCase represents a test case for error scenarios
type ErrorTestCase struct {
	Name         string
	Declarations []any
	Action       func(inj *refdi.Injector) error
	WantError    error
	CheckErr     func(t *testing.T, err error)
}

// RunErrorTestCases executes error test cases. When Action is nil the error
// comes from resolving the declarations.
func RunErrorTestCases(t *testing.T, cases []ErrorTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			inj, err := refdi.ResolveAndCreate(tc.Declarations)
			if tc.Action != nil {
				require.NoError(t, err)
				t.Cleanup(func() { _ = inj.Close() })
				err = tc.Action(inj)
			}

			require.Error(t, err)
			if tc.WantError != nil {
				assert.ErrorIs(t, err, tc.WantError)
			}
			if tc.CheckErr != nil {
				tc.CheckErr(t, err)
			}
		})
	}
}
