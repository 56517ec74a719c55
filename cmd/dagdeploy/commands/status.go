package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var StatusCmd = &cobra.Command{
	Use:   "status [environment]",
	Short: "Show recent deployment journal entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := loadConfigDoc()
		if err := doc.SetupLogging(); err != nil {
			return err
		}

		j, err := doc.OpenJournal()
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("journal is disabled; enable it in the config to use status")
		}
		defer func() { _ = j.Close() }()

		environment := ""
		if len(args) == 1 {
			environment = strings.ToUpper(strings.TrimSpace(args[0]))
		}
		limit := viper.GetViper().GetInt("limit")

		records, err := j.ListDeployments(cmd.Context(), environment, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.Println("no deployments recorded")
			return nil
		}
		for _, rec := range records {
			cmd.Printf("#%d %s %s/%s root=%s\n",
				rec.ID, rec.RecordedAt.Format("2006-01-02 15:04:05"),
				rec.Environment, rec.Pipeline, rec.RootState)
			for _, t := range rec.Tasks {
				line := fmt.Sprintf("  %-30s %s", t.Task, t.Status)
				if t.Error != "" {
					line += " (" + t.Error + ")"
				}
				cmd.Println(line)
			}
		}
		return nil
	},
}
