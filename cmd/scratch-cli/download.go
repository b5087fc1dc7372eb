package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KidsLabDe/ScratchBackendCLI/internal/downloader"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/storage"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var (
	downloadOutput     string
	downloadAll        bool
	downloadJSONOnly   bool
	downloadConcurrent int
	downloadOverwrite  bool
	downloadAccount    string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download [project-id]",
	Short: "Download projects as .sb3 bundles or plain manifests",
	Long: `Download a project as a complete .sb3 bundle containing the
project.json manifest and every costume and sound it references, or
with --json as the bare manifest only.

With --all every project of the logged-in account is downloaded.
Files that already exist are skipped unless --overwrite is given.`,
	Example: `  # One project as .sb3
  scratch-cli download 104

  # Manifest only
  scratch-cli download 104 --json

  # Everything, into a directory
  scratch-cli download --all -o backups/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output directory (default from config)")
	downloadCmd.Flags().BoolVar(&downloadAll, "all", false, "download every project of the account")
	downloadCmd.Flags().BoolVar(&downloadJSONOnly, "json", false, "save only project.json, no assets")
	downloadCmd.Flags().IntVar(&downloadConcurrent, "concurrent", 0, "concurrent asset downloads (default from config)")
	downloadCmd.Flags().BoolVar(&downloadOverwrite, "overwrite", false, "overwrite existing files")
	downloadCmd.Flags().StringVar(&downloadAccount, "account", "", "use a specific stored account")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if downloadAll && len(args) == 1 {
		return fmt.Errorf("specify a project id or --all, not both")
	}
	if !downloadAll && len(args) == 0 {
		return fmt.Errorf("specify a project id, or --all for every project")
	}

	if downloadOutput != "" {
		cfg.Output.Directory = downloadOutput
	}
	if downloadConcurrent > 0 {
		cfg.Download.ConcurrentDownloads = downloadConcurrent
	}
	if downloadOverwrite {
		cfg.Output.OverwriteExisting = true
	}
	if cfg.Download.AssetsOnlyJSON {
		downloadJSONOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, _ := newClient(downloadAccount, downloadAll)

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.OverwriteExisting)
	if err != nil {
		return fmt.Errorf("preparing output directory: %w", err)
	}

	dl := downloader.New(client, store, cfg, logger.GetLogger())

	if downloadAll {
		summary, err := dl.DownloadAll(cmd.Context(), downloadJSONOnly)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		printSummary(summary)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d projects failed", summary.Failed, len(summary.Results))
		}
		return nil
	}

	projectID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project id: %s", args[0])
	}

	var path string
	if downloadJSONOnly {
		path, err = dl.DownloadJSON(cmd.Context(), projectID)
	} else {
		path, err = dl.DownloadSB3(cmd.Context(), projectID)
	}
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	ui.PrintSuccess("Saved " + path)
	return nil
}

func printSummary(summary *downloader.Summary) {
	for _, r := range summary.Results {
		switch {
		case r.Skipped:
			ui.Printf("%s %s\n", ui.Dim("skipped"), r.Project.Title)
		case r.Err != nil:
			ui.PrintError(fmt.Sprintf("failed  %s", r.Project.Title), r.Err.Error())
		default:
			ui.Printf("%s %s\n", ui.Green("saved  "), r.Path)
		}
	}

	fmt.Println()
	ui.PrintInfo("Downloaded", fmt.Sprintf("%d", summary.Succeeded))
	if summary.Skipped > 0 {
		ui.PrintInfo("Skipped", fmt.Sprintf("%d", summary.Skipped))
	}
	if summary.Failed > 0 {
		ui.PrintWarning(fmt.Sprintf("Failed: %d", summary.Failed))
	}
}
