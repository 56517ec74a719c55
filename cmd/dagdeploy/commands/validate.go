package commands

import (
	"strings"

	"github.com/loykin/dagdeploy"
	"github.com/loykin/dagdeploy/internal/config"
	"github.com/spf13/cobra"
)

var ValidateCmd = &cobra.Command{
	Use:   "validate [environment]",
	Short: "Validate the pipeline graph and environment configuration without touching the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := loadConfigDoc()
		if err := doc.SetupLogging(); err != nil {
			return err
		}

		g, err := dagdeploy.LoadPipeline(pipelinePath(doc))
		if err != nil {
			return err
		}
		cmd.Printf("pipeline %s: %d tasks, valid\n", g.Name, len(g.Tasks))
		cmd.Printf("  order: %s\n", strings.Join(g.TopologicalOrder(), " -> "))

		resolver, err := config.LoadResolver(environmentsPath(doc))
		if err != nil {
			return err
		}
		targets := config.EnvironmentNames()
		if len(args) == 1 {
			targets = []string{strings.ToUpper(strings.TrimSpace(args[0]))}
		}
		for _, name := range targets {
			cfg, err := resolver.Resolve(name)
			if err != nil {
				return err
			}
			cmd.Printf("environment %s: namespace=%s compute_pool=%s cadence=%dh approval=%t\n",
				cfg.Name, cfg.Namespace, cfg.ComputePool, cfg.ScheduleCadenceHours, cfg.ApprovalRequired)
		}
		return nil
	},
}
