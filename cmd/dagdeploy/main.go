package main

import (
	"github.com/loykin/dagdeploy/cmd/dagdeploy/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "dagdeploy",
	Short: "Deploy declarative task graphs across DEV, SIT, UAT and PRD",
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config/dagdeploy.yaml")
	v.SetDefault("limit", 20)

	// Environment variables support: DAGDEPLOY_CONFIG, DAGDEPLOY_PIPELINE, ...
	v.SetEnvPrefix("DAGDEPLOY")
	v.AutomaticEnv()
	// Bind flags via Cobra and then bind to Viper
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to the CLI config yaml")
	rootCmd.PersistentFlags().String("environments", "", "path to the environments yaml (overrides config)")
	rootCmd.PersistentFlags().String("pipeline", "", "path to the pipeline yaml (overrides config)")
	commands.DeployCmd.Flags().Bool("insecure", false, "skip TLS verification (local stub schedulers only)")
	commands.StatusCmd.Flags().Int("limit", v.GetInt("limit"), "maximum journal entries to show")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("environments", rootCmd.PersistentFlags().Lookup("environments"))
	_ = v.BindPFlag("pipeline", rootCmd.PersistentFlags().Lookup("pipeline"))
	_ = v.BindPFlag("insecure", commands.DeployCmd.Flags().Lookup("insecure"))
	_ = v.BindPFlag("limit", commands.StatusCmd.Flags().Lookup("limit"))

	rootCmd.AddCommand(commands.DeployCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.RouteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
