package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/junioryono/refdi"
)

// Graph output formats.
const (
	formatText = "text"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	format string
	output string // output file path (stdout if empty)
	focus  string // token whose dependency subgraph is rendered
}

func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "graph <manifest.toml>",
		Short: "Render the dependency graph of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, providers, err := c.load(args[0])
			if err != nil {
				return err
			}

			if opts.focus != "" {
				providers, err = refdi.Focus(providers, opts.focus)
				if err != nil {
					return err
				}
				c.Logger.Debug("focused graph", "token", opts.focus, "providers", len(providers))
			}

			out, err := renderGraph(cmd.Context(), providers, opts.format)
			if err != nil {
				return err
			}

			if opts.output == "" {
				_, err = c.Out.Write(out)
				return err
			}
			if err := os.WriteFile(opts.output, out, 0o644); err != nil {
				return err
			}
			c.Logger.Info("wrote graph", "format", opts.format, "path", opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format (text, dot, svg)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "only render this token and what it depends on")

	return cmd
}

func renderGraph(ctx context.Context, providers []*refdi.ResolvedProvider, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case formatText:
		if err := refdi.WriteText(&buf, providers); err != nil {
			return nil, err
		}
	case formatDOT:
		if err := refdi.WriteDOT(&buf, providers); err != nil {
			return nil, err
		}
	case formatSVG:
		if err := refdi.WriteDOT(&buf, providers); err != nil {
			return nil, err
		}
		return renderSVG(ctx, buf.Bytes())
	default:
		return nil, fmt.Errorf("unknown format %q (want text, dot or svg)", format)
	}
	return buf.Bytes(), nil
}

// renderSVG renders a DOT graph to SVG using Graphviz.
func renderSVG(ctx context.Context, dot []byte) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
