package commands

import (
	"sort"
	"strings"

	"github.com/loykin/dagdeploy"
	"github.com/loykin/dagdeploy/cmd/dagdeploy/config"
	"github.com/loykin/dagdeploy/internal/common"
	"github.com/loykin/dagdeploy/internal/journal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var DeployCmd = &cobra.Command{
	Use:   "deploy [environment]",
	Short: "Deploy the pipeline's task graph to the target environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := loadConfigDoc()
		if err := doc.SetupLogging(); err != nil {
			return err
		}
		logger := common.GetLogger().WithComponent("cli")

		envName := strings.ToUpper(strings.TrimSpace(args[0]))

		conn, err := dagdeploy.ConnContextFromEnv()
		if err != nil {
			return err
		}

		opts := dagdeploy.Options{
			Environment:      envName,
			EnvironmentsPath: environmentsPath(doc),
			PipelinePath:     pipelinePath(doc),
			Connection:       conn,
			Insecure:         doc.Client.Insecure || viper.GetViper().GetBool("insecure"),
		}
		result, err := opts.Deploy(cmd.Context())
		if result != nil {
			printResult(cmd, result)
			if jErr := recordToJournal(cmd, doc, result); jErr != nil {
				// Audit failure never fails the deployment itself.
				logger.Warn("journal record failed", "error", jErr)
			}
		}
		return err
	},
}

func printResult(cmd *cobra.Command, result *dagdeploy.DeploymentResult) {
	cmd.Printf("pipeline %s -> %s\n", result.Pipeline, result.Environment)
	names := make([]string, 0, len(result.PerTaskStatus))
	for name := range result.PerTaskStatus {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %-30s %s\n", name, result.PerTaskStatus[name])
	}
	cmd.Printf("root schedule: %s\n", result.RootScheduleState)
}

func recordToJournal(cmd *cobra.Command, doc config.ConfigDoc, result *dagdeploy.DeploymentResult) error {
	j, err := doc.OpenJournal()
	if err != nil {
		return err
	}
	if j == nil {
		return nil
	}
	defer func() { _ = j.Close() }()

	rec := journal.Record{
		Environment: result.Environment,
		Pipeline:    result.Pipeline,
		RootState:   string(result.RootScheduleState),
	}
	failures := make(map[string]string, len(result.Errors))
	for _, e := range result.Errors {
		failures[e.Task] = e.Error()
	}
	names := make([]string, 0, len(result.PerTaskStatus))
	for name := range result.PerTaskStatus {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec.Tasks = append(rec.Tasks, journal.TaskRecord{
			Task:   name,
			Status: string(result.PerTaskStatus[name]),
			Error:  failures[name],
		})
	}
	id, err := j.RecordDeployment(cmd.Context(), rec)
	if err != nil {
		return err
	}
	common.GetLogger().WithComponent("cli").Debug("journal record written",
		"id", id, "driver", j.Driver())
	return nil
}
