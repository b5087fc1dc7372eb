package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var (
	listLimit   int
	listVerbose bool
	listAccount string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects, including unshared ones",
	Long: `List the projects of the logged-in account.

The site API is used so unshared projects appear too; when it is
unavailable the public listing of shared projects is shown instead.`,
	Example: `  # List all projects
  scratch-cli list

  # First ten projects with full details
  scratch-cli list -l 10 -v`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "maximum number of projects (0 for all)")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "show stats and timestamps")
	listCmd.Flags().StringVar(&listAccount, "account", "", "use a specific stored account")
}

func runList(cmd *cobra.Command, args []string) error {
	client, session := newClient(listAccount, true)

	limit := listLimit
	if limit == 0 {
		limit = cfg.Scratch.ListLimit
	}

	projects, err := client.ListProjects(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		ui.PrintInfo("No projects found for", session.Username)
		return nil
	}

	ui.PrintHighlight(fmt.Sprintf("Projects of %s (%d)", session.Username, len(projects)))
	fmt.Println()

	for _, p := range projects {
		visibility := ui.Dim("unshared")
		if p.Public {
			visibility = ui.Green("shared")
		}
		fmt.Printf("%12d  %-40s %s\n", p.ID, p.Title, visibility)

		if listVerbose {
			fmt.Printf("              views=%d loves=%d favorites=%d remixes=%d\n",
				p.Stats.Views, p.Stats.Loves, p.Stats.Favorites, p.Stats.Remixes)
			if p.History.Modified != "" {
				fmt.Printf("              modified %s\n", p.History.Modified)
			}
			if p.Description != "" {
				fmt.Printf("              %s\n", ui.Dim(p.Description))
			}
			fmt.Println()
		}
	}
	return nil
}
