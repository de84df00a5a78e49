package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/junioryono/refdi"
)

func (c *CLI) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <manifest.toml>",
		Short: "Print the resolved provider registry of a manifest",
		Long: `Resolve loads a provider manifest, resolves it and prints one entry per key
in registration order together with the dependencies of each factory.

The registry is checked for dependency cycles after printing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, providers, err := c.load(args[0])
			if err != nil {
				return err
			}

			p := c.palette()
			printRegistry(c.Out, p, providers)

			if err := refdi.CheckGraph(providers); err != nil {
				return err
			}
			p.ok.Fprintf(c.Out, "%d providers, no cycles\n", len(providers))
			return nil
		},
	}
}

// printRegistry writes one block per resolved provider:
//
//	message
//	  <- greeting
//	  <- name [optional skipself]
//	plugins (multi, 2 factories)
//	  #0 <- auth
func printRegistry(w io.Writer, p palette, providers []*refdi.ResolvedProvider) {
	for _, rp := range providers {
		p.key.Fprint(w, rp.Key.DisplayName())
		if rp.Multi {
			p.multi.Fprintf(w, " (multi, %d factories)", len(rp.Factories))
		}
		fmt.Fprintln(w)

		for i, f := range rp.Factories {
			prefix := "  "
			if rp.Multi {
				prefix = fmt.Sprintf("  #%d ", i)
			}
			if rp.Multi && len(f.Dependencies) == 0 {
				fmt.Fprintln(w, prefix+"-")
			}
			for _, dep := range f.Dependencies {
				fmt.Fprint(w, prefix+"<- ")
				printDependency(w, p, dep)
			}
		}
	}
}

func printDependency(w io.Writer, p palette, dep *refdi.Dependency) {
	p.dep.Fprint(w, dep.Key.DisplayName())

	var flags []string
	if dep.Optional {
		flags = append(flags, "optional")
	}
	if dep.UpperBound != refdi.VisibilityNone {
		flags = append(flags, dep.UpperBound.String())
	}
	if dep.LowerBound != refdi.VisibilityNone {
		flags = append(flags, dep.LowerBound.String())
	}
	if len(flags) > 0 {
		p.flag.Fprint(w, " ", flags)
	}
	fmt.Fprintln(w)
}
