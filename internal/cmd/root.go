// Package cmd provides CLI commands for the braindump tool.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/braindump/internal/config"
)

var rootCmd = &cobra.Command{
	Use:     "braindump",
	Short:   "Brain Dump - capture Slack ideas into a shared canvas",
	Version: Version,
	Long: `Brain Dump collects ideas from Slack into one canvas.

React to a message with 💡, run /braindump <idea>, or add the capture_idea
step to a workflow, and the idea is appended to the team's Brain Dump canvas.
The canvas is created on first use.`,
	SilenceUsage: true,
}

// cfgFile is the --config flag shared by every command.
var cfgFile string

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		// Errors already printed by cobra
		return 1
	}
	return 0
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupServices = "services"
	GroupConfig   = "config"
	GroupDiag     = "diag"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupServices, Title: "Services:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)

	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default %s if present)", config.DefaultPath))
}

// buildCommandPath walks the command hierarchy to build the full command path.
// For example: "braindump config show".
func buildCommandPath(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

// requireSubcommand returns a RunE function for parent commands that require
// a subcommand. Without this, Cobra silently shows help and exits 0 for
// unknown subcommands like "braindump config foobar", masking errors.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\nRun '%s --help' for usage", buildCommandPath(cmd))
	}
	return fmt.Errorf("unknown command %q for %q\n\nRun '%s --help' for available commands",
		args[0], buildCommandPath(cmd), buildCommandPath(cmd))
}
