package commands

import (
	"github.com/loykin/dagdeploy/pkg/routing"
	"github.com/spf13/cobra"
)

var RouteCmd = &cobra.Command{
	Use:   "route [branch]",
	Short: "Print the environment a source branch promotes to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		environment, approval, err := routing.Route(args[0])
		if err != nil {
			return err
		}
		cmd.Printf("branch %s -> %s (approval_required=%t)\n", args[0], environment, approval)
		return nil
	},
}
