package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junioryono/refdi"
)

func (c *CLI) dependentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dependents <manifest.toml> <token>",
		Short: "List the providers that depend directly on a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, providers, err := c.load(args[0])
			if err != nil {
				return err
			}

			keys, err := refdi.Dependents(providers, args[1])
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				c.Logger.Warn("nothing depends on token", "token", args[1])
				return nil
			}

			p := c.palette()
			for _, k := range keys {
				fmt.Fprintln(c.Out, p.key.Sprint(k.DisplayName()))
			}
			return nil
		},
	}
}
