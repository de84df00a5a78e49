package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junioryono/refdi"
)

func (c *CLI) getCommand() *cobra.Command {
	var optional bool

	cmd := &cobra.Command{
		Use:   "get <manifest.toml> <token>",
		Short: "Instantiate a token from a manifest and print its value",
		Long: `Get creates an injector from a provider manifest and prints the instance
bound to token. Multi providers print the list of their contributions.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r, providers, err := c.load(args[0])
			if err != nil {
				return err
			}

			inj, err := refdi.NewInjector(providers, refdi.WithResolver(r))
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := inj.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			get := inj.Get
			if optional {
				get = inj.GetOptional
			}

			v, err := get(args[1])
			if err != nil {
				return err
			}
			if v == nil {
				c.Logger.Warn("no value", "token", args[1])
			}
			fmt.Fprintln(c.Out, v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&optional, "optional", false, "print <nil> instead of failing when token has no provider")

	return cmd
}
