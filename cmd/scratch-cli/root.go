package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/config"
	apierrors "github.com/KidsLabDe/ScratchBackendCLI/pkg/errors"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/scratch"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool

	// cfg is the merged configuration, loaded before any command runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scratch-cli",
	Short: "Download your Scratch projects from the command line",
	Long: `scratch-cli is a command-line client for the Scratch website.

It logs into your account, lists your projects including unshared
ones, and downloads them as plain project.json files or as complete
.sb3 bundles with every costume and sound.

Sessions are stored securely:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (SCRATCH_USERNAME, SCRATCH_TOKEN, SCRATCH_SESSION_ID)

Your password is only sent to scratch.mit.edu during login and is
never written to disk.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet {
			ui.SetQuiet(true)
			if logLevel == "" {
				logLevel = "error"
			}
		}
		if noColor {
			ui.SetColors(false)
		}

		flags := map[string]interface{}{}
		if logLevel != "" {
			flags["log-level"] = logLevel
		}

		var err error
		cfg, err = config.Load(configFile, flags)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		if err := logger.Initialize(&logger.Config{
			Level: cfg.Logging.Level,
			File:  cfg.Logging.File,
		}); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.scratch-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`scratch-cli {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// sessionManager creates the session store chain or exits.
func sessionManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize session store", err.Error())
		os.Exit(1)
	}
	return manager
}

// newClient builds an API client with the stored session for account
// attached. An empty account selects the default session, and
// requireSession controls whether a missing session is fatal.
func newClient(account string, requireSession bool) (*scratch.Client, *auth.Session) {
	client, err := scratch.NewClient(cfg, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to create client", err.Error())
		os.Exit(1)
	}

	manager := sessionManager()
	var session *auth.Session
	if account != "" {
		session, err = manager.Retrieve(account)
	} else {
		session, err = manager.RetrieveDefault()
	}
	if err != nil {
		if requireSession {
			ui.PrintError("Not logged in", "run 'scratch-cli login' first")
			os.Exit(1)
		}
		return client, nil
	}

	if err := client.SetSession(session); err != nil {
		ui.PrintError("Failed to attach session", err.Error())
		os.Exit(1)
	}

	if requireSession {
		if err := client.ValidateSession(context.Background()); err != nil {
			var apiErr *apierrors.Error
			if stderrors.As(err, &apiErr) && !apierrors.IsRetryable(apiErr.Type) {
				manager.Delete(session.Username)
				ui.PrintError("Session expired", "run 'scratch-cli login' again")
			} else {
				ui.PrintError("Could not verify session", err.Error())
			}
			os.Exit(1)
		}
	}
	return client, session
}
