package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/refdi"
)

const sampleManifest = `
[[provider]]
token = "greeting"
value = "Hello"

[[provider]]
token = "name"
value = "Ada"

[[provider]]
token = "message"
factory = "concat"
deps = ["greeting"]

  [[provider.dep]]
  token = "name"
  optional = true
  visibility = ["skipself"]

[[group]]
name = "plugins"

  [[group.provider]]
  token = "plugins"
  value = "auth"
  multi = true

  [[group.provider]]
  token = "plugins"
  factory = "first"
  deps = ["greeting"]
  multi = true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	require.Len(t, m.Providers, 3)
	assert.Equal(t, "greeting", m.Providers[0].Token)
	assert.Equal(t, "Hello", m.Providers[0].Value)
	assert.Equal(t, []string{"greeting"}, m.Providers[2].Deps)
	require.Len(t, m.Providers[2].Dep, 1)
	assert.Equal(t, DepSpec{Token: "name", Optional: true, Visibility: []string{"skipself"}}, m.Providers[2].Dep[0])

	require.Len(t, m.Groups, 1)
	assert.Equal(t, "plugins", m.Groups[0].Name)
	assert.Len(t, m.Groups[0].Providers, 2)
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte("[[provider]\ntoken = "))
	assert.ErrorContains(t, err, "decode manifest")
}

func TestLoadManifest(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		m, err := LoadManifest(writeManifest(t, sampleManifest))
		require.NoError(t, err)
		assert.Len(t, m.Providers, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestManifest_Declarations(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	decls, err := m.Declarations()
	require.NoError(t, err)
	require.Len(t, decls, 4)
	assert.IsType(t, []any{}, decls[3], "groups become nested lists")

	r := refdi.NewResolver(refdi.WithKeyRegistry(refdi.NewKeyRegistry()))
	providers, err := r.ResolveAll(decls...)
	require.NoError(t, err)
	require.Len(t, providers, 4)

	message := providers[2]
	require.Len(t, message.Factory().Dependencies, 2)
	name := message.Factory().Dependencies[1]
	assert.Equal(t, "name", name.Key.Token)
	assert.True(t, name.Optional)
	assert.Equal(t, refdi.VisibilitySkipSelf, name.LowerBound)

	plugins := providers[3]
	assert.True(t, plugins.Multi)
	assert.Len(t, plugins.Factories, 2)

	inj, err := refdi.NewInjector(providers, refdi.WithResolver(r))
	require.NoError(t, err)
	defer inj.Close()

	v, err := inj.Get("message")
	require.NoError(t, err)
	assert.Equal(t, "Hello", v, "optional skipself dependency is nil at the root")

	v, err = inj.Get("plugins")
	require.NoError(t, err)
	assert.Equal(t, []any{"auth", "Hello"}, v)
}

func TestManifest_DeclarationErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  error
		contains string
	}{
		{
			name:     "missing token",
			manifest: "[[provider]]\nvalue = 1\n",
			wantErr:  errNoToken,
		},
		{
			name:     "no binding",
			manifest: "[[provider]]\ntoken = \"a\"\n",
			wantErr:  errBindingCount,
		},
		{
			name:     "two bindings",
			manifest: "[[provider]]\ntoken = \"a\"\nvalue = 1\nexisting = \"b\"\n",
			wantErr:  errBindingCount,
		},
		{
			name:     "unknown factory",
			manifest: "[[provider]]\ntoken = \"a\"\nfactory = \"sum\"\n",
			wantErr:  errUnknownFactory,
			contains: `"sum"`,
		},
		{
			name:     "dependency without token",
			manifest: "[[provider]]\ntoken = \"a\"\nfactory = \"list\"\n[[provider.dep]]\noptional = true\n",
			wantErr:  errNoToken,
		},
		{
			name:     "unknown visibility",
			manifest: "[[provider]]\ntoken = \"a\"\nfactory = \"list\"\n[[provider.dep]]\ntoken = \"b\"\nvisibility = [\"parent\"]\n",
			wantErr:  errVisibility,
			contains: `"parent"`,
		},
		{
			name:     "error inside named group",
			manifest: "[[group]]\nname = \"db\"\n[[group.provider]]\ntoken = \"a\"\n",
			wantErr:  errBindingCount,
			contains: `group "db"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.manifest))
			require.NoError(t, err)

			_, err = m.Declarations()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestManifest_Existing(t *testing.T) {
	m, err := ParseManifest([]byte(`
[[provider]]
token = "port"
value = 8080

[[provider]]
token = "listen"
existing = "port"
`))
	require.NoError(t, err)

	decls, err := m.Declarations()
	require.NoError(t, err)

	r := refdi.NewResolver(refdi.WithKeyRegistry(refdi.NewKeyRegistry()))
	inj, err := refdi.ResolveAndCreate(decls, refdi.WithResolver(r))
	require.NoError(t, err)
	defer inj.Close()

	v, err := inj.Get("listen")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), v)
}

func TestBuiltinFactories(t *testing.T) {
	t.Run("concat skips nil", func(t *testing.T) {
		v, err := builtinFactories["concat"]("a", nil, 2)
		require.NoError(t, err)
		assert.Equal(t, "a 2", v)
	})

	t.Run("list copies arguments", func(t *testing.T) {
		v, err := builtinFactories["list"]("a", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", nil}, v)
	})

	t.Run("list with no arguments", func(t *testing.T) {
		v, err := builtinFactories["list"]()
		require.NoError(t, err)
		assert.Equal(t, []any{}, v)
	})

	t.Run("first non-nil", func(t *testing.T) {
		v, err := builtinFactories["first"](nil, "b", "c")
		require.NoError(t, err)
		assert.Equal(t, "b", v)

		v, err = builtinFactories["first"](nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}
