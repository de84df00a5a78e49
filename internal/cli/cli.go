// Package cli implements the refdi command-line interface.
//
// The commands load a TOML provider manifest, resolve it and report on the
// result:
//   - resolve: print the resolved provider registry
//   - graph: render the dependency graph as text, DOT or SVG
//   - get: create an injector and print the instance for one token
//   - dependents: list the providers that depend directly on one token
//
// All commands support --verbose (-v) for debug logging and --no-color.
package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/junioryono/refdi"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Logs go to the logger's writer.
	Out io.Writer

	NoColor bool
}

// New creates a CLI writing output to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(logw, level),
		Out:    out,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "refdi",
		Short:         "refdi resolves provider manifests",
		Long:          `refdi loads a TOML provider manifest, resolves it into a provider registry and inspects the resulting dependency graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&c.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.dependentsCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// resolver returns a resolver that logs through the CLI logger.
func (c *CLI) resolver() *refdi.Resolver {
	return refdi.NewResolver(
		refdi.WithKeyRegistry(refdi.NewKeyRegistry()),
		refdi.WithLogger(slog.New(c.Logger)),
	)
}

// load reads the manifest at path and resolves it.
func (c *CLI) load(path string) (*refdi.Resolver, []*refdi.ResolvedProvider, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, nil, err
	}

	decls, err := m.Declarations()
	if err != nil {
		return nil, nil, err
	}

	r := c.resolver()
	providers, err := r.ResolveAll(decls...)
	if err != nil {
		return nil, nil, err
	}

	c.Logger.Debug("resolved manifest", "path", path, "providers", len(providers))
	return r, providers, nil
}

// palette holds the colors used by command output.
type palette struct {
	key   *color.Color
	multi *color.Color
	dep   *color.Color
	flag  *color.Color
	ok    *color.Color
}

func (c *CLI) palette() palette {
	p := palette{
		key:   color.New(color.FgCyan, color.Bold),
		multi: color.New(color.FgMagenta),
		dep:   color.New(color.FgWhite),
		flag:  color.New(color.FgYellow),
		ok:    color.New(color.FgGreen),
	}
	if c.NoColor {
		for _, col := range []*color.Color{p.key, p.multi, p.dep, p.flag, p.ok} {
			col.DisableColor()
		}
	}
	return p
}
