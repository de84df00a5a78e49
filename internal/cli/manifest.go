package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/junioryono/refdi"
)

var (
	errNoToken        = errors.New("token is required")
	errBindingCount   = errors.New("exactly one of value, existing or factory is required")
	errUnknownFactory = errors.New("unknown factory")
	errVisibility     = errors.New("unknown visibility")
)

// Manifest is a TOML provider declaration file.
//
//	[[provider]]
//	token = "greeting"
//	value = "Hello"
//
//	[[provider]]
//	token = "message"
//	factory = "concat"
//	deps = ["greeting"]
//
//	  [[provider.dep]]
//	  token = "name"
//	  optional = true
//	  visibility = ["skipself"]
type Manifest struct {
	Providers []ProviderSpec `toml:"provider"`
	Groups    []Group        `toml:"group"`
}

// Group nests provider lists. Groups only affect declaration order.
type Group struct {
	Name      string         `toml:"name"`
	Providers []ProviderSpec `toml:"provider"`
	Groups    []Group        `toml:"group"`
}

// ProviderSpec declares one provider. Exactly one of Value, Existing and
// Factory must be set.
type ProviderSpec struct {
	Token    string    `toml:"token"`
	Value    any       `toml:"value"`
	Existing string    `toml:"existing"`
	Factory  string    `toml:"factory"`
	Deps     []string  `toml:"deps"`
	Dep      []DepSpec `toml:"dep"`
	Multi    bool      `toml:"multi"`
}

// DepSpec is an annotated factory dependency.
type DepSpec struct {
	Token      string   `toml:"token"`
	Optional   bool     `toml:"optional"`
	Visibility []string `toml:"visibility"`
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Declarations converts the manifest to refdi declarations. Groups become
// nested lists.
func (m *Manifest) Declarations() ([]any, error) {
	return declarations(m.Providers, m.Groups)
}

func declarations(providers []ProviderSpec, groups []Group) ([]any, error) {
	decls := make([]any, 0, len(providers)+len(groups))
	for i := range providers {
		p, err := providers[i].provider()
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", providers[i].Token, err)
		}
		decls = append(decls, p)
	}

	for _, g := range groups {
		nested, err := declarations(g.Providers, g.Groups)
		if err != nil {
			if g.Name != "" {
				return nil, fmt.Errorf("group %q: %w", g.Name, err)
			}
			return nil, err
		}
		decls = append(decls, nested)
	}
	return decls, nil
}

func (s *ProviderSpec) provider() (*refdi.Provider, error) {
	if s.Token == "" {
		return nil, errNoToken
	}

	set := 0
	if s.Value != nil {
		set++
	}
	if s.Existing != "" {
		set++
	}
	if s.Factory != "" {
		set++
	}
	if set != 1 {
		return nil, errBindingCount
	}

	var opts []refdi.ProviderOption
	if s.Multi {
		opts = append(opts, refdi.Multi())
	}

	switch {
	case s.Value != nil:
		return refdi.Value(s.Token, s.Value, opts...), nil
	case s.Existing != "":
		return refdi.Existing(s.Token, s.Existing, opts...), nil
	}

	fn, ok := builtinFactories[s.Factory]
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownFactory, s.Factory)
	}

	deps := make([]any, 0, len(s.Deps)+len(s.Dep))
	for _, d := range s.Deps {
		deps = append(deps, d)
	}
	for _, d := range s.Dep {
		anns, err := d.annotations()
		if err != nil {
			return nil, err
		}
		deps = append(deps, anns)
	}

	opts = append(opts, refdi.Deps(deps...))
	return refdi.Factory(s.Token, fn, opts...), nil
}

func (d DepSpec) annotations() ([]refdi.Annotation, error) {
	if d.Token == "" {
		return nil, fmt.Errorf("dependency: %w", errNoToken)
	}

	anns := []refdi.Annotation{refdi.Inject(d.Token)}
	if d.Optional {
		anns = append(anns, refdi.Optional())
	}
	for _, v := range d.Visibility {
		switch strings.ToLower(v) {
		case "self":
			anns = append(anns, refdi.Self())
		case "host":
			anns = append(anns, refdi.Host())
		case "skipself":
			anns = append(anns, refdi.SkipSelf())
		default:
			return nil, fmt.Errorf("dependency %q: %w %q", d.Token, errVisibility, v)
		}
	}
	return anns, nil
}

// builtinFactories are the factories a manifest can name.
var builtinFactories = map[string]refdi.FactoryFunc{
	// concat joins its non-nil arguments with spaces.
	"concat": func(args ...any) (any, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			if a != nil {
				parts = append(parts, fmt.Sprint(a))
			}
		}
		return strings.Join(parts, " "), nil
	},
	"list": func(args ...any) (any, error) {
		return append([]any{}, args...), nil
	},
	// first returns its first non-nil argument.
	"first": func(args ...any) (any, error) {
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	},
}
