package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var (
	loginUsername string
	loginPassword string
	logoutAll     bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into your Scratch account",
	Long: `Log into your Scratch account and store the session.

The password is sent once to scratch.mit.edu to obtain a session
token and is never stored. The resulting session goes into the system
keychain when available, otherwise into an encrypted file.

Alternatively run 'scratch-cli serve' and use the browser script in
web/ to forward a session from an existing browser login without
typing your password into the terminal at all.`,
	Example: `  # Interactive login
  scratch-cli login

  # Username given, password prompted
  scratch-cli login -u myusername`,
	Run: runLogin,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored session",
	Long: `Remove stored Scratch sessions.

Without a username the default session is removed. Use --all to
remove every stored account.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored sessions and whether they are still valid",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Scratch username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Scratch password (prompted when omitted)")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove all stored sessions")
}

func runLogin(cmd *cobra.Command, args []string) {
	reader := bufio.NewReader(os.Stdin)

	username := loginUsername
	if username == "" {
		fmt.Print("Scratch username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	password := loginPassword
	if password == "" {
		fmt.Print("Password: ")
		var err error
		password, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read password", err.Error())
			os.Exit(1)
		}
	}
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	client, _ := newClient("", false)
	session, err := client.Login(cmd.Context(), username, password)
	if err != nil {
		ui.PrintError("Login failed", err.Error())
		os.Exit(1)
	}

	if err := sessionManager().Store(session); err != nil {
		ui.PrintError("Failed to store session", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Logged in as " + session.Username)
	if auth.IsKeyringAvailable() {
		ui.PrintInfo("Session stored in", "system keychain")
	} else {
		ui.PrintInfo("Session stored in", "encrypted file")
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := sessionManager()

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove sessions", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All sessions removed")
		return
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		session, err := manager.RetrieveDefault()
		if err != nil {
			ui.PrintWarning("No stored sessions")
			return
		}
		username = session.Username
	}

	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove session", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Session removed: " + username)
}

func runStatus(cmd *cobra.Command, args []string) {
	manager := sessionManager()

	sessions, err := manager.List()
	if err != nil || len(sessions) == 0 {
		ui.PrintInfo("No stored sessions", "use 'scratch-cli login' to add one")
		return
	}

	ui.PrintHighlight("Stored sessions")
	fmt.Println()

	for i, session := range sessions {
		client, _ := newClient("", false)
		state := ui.Green("valid")
		if err := client.SetSession(session); err == nil {
			if err := client.ValidateSession(cmd.Context()); err != nil {
				state = ui.Red("expired")
			}
		} else {
			state = ui.Red("invalid")
		}

		sanitized := auth.Sanitize(session)
		fmt.Printf("%d. %s (%s)\n", i+1, sanitized.Username, state)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
