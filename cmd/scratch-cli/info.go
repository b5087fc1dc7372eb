package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var infoAccount string

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <project-id>",
	Short: "Show metadata of a single project",
	Example: `  scratch-cli info 104
  scratch-cli info 104 --account myusername`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&infoAccount, "account", "", "use a specific stored account")
}

func runInfo(cmd *cobra.Command, args []string) error {
	projectID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project id: %s", args[0])
	}

	client, _ := newClient(infoAccount, false)

	project, err := client.ProjectMeta(cmd.Context(), projectID)
	if err != nil {
		return fmt.Errorf("fetching project %d: %w", projectID, err)
	}

	ui.PrintHighlight(project.Title)
	ui.PrintInfo("ID", fmt.Sprintf("%d", project.ID))
	if project.Author != nil {
		ui.PrintInfo("Author", project.Author.Username)
	}
	if project.Public {
		ui.PrintInfo("Visibility", "shared")
	} else {
		ui.PrintInfo("Visibility", "unshared")
	}
	ui.PrintInfo("Views", fmt.Sprintf("%d", project.Stats.Views))
	ui.PrintInfo("Loves", fmt.Sprintf("%d", project.Stats.Loves))
	ui.PrintInfo("Favorites", fmt.Sprintf("%d", project.Stats.Favorites))
	ui.PrintInfo("Remixes", fmt.Sprintf("%d", project.Stats.Remixes))
	if project.History.Created != "" {
		ui.PrintInfo("Created", project.History.Created)
	}
	if project.History.Modified != "" {
		ui.PrintInfo("Modified", project.History.Modified)
	}
	if project.Description != "" {
		fmt.Println()
		fmt.Println(project.Description)
	}
	if project.Instructions != "" {
		fmt.Println()
		fmt.Println(ui.Dim(project.Instructions))
	}
	return nil
}
