package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/braindump/internal/canvas"
	"github.com/steveyegge/braindump/internal/ui"
)

var (
	previewAuthor  string
	previewChannel string
	previewRaw     bool
)

var previewCmd = &cobra.Command{
	Use:     "preview <idea text>",
	GroupID: GroupDiag,
	Short:   "Render an idea the way it will appear in the canvas",
	Long: `Render the markdown fragment that capturing an idea would append to
the canvas. Nothing is sent to Slack.

Examples:
  braindump preview "Ship dark mode"
  braindump preview --author U123 --channel C456 --raw "Ship dark mode"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewAuthor, "author", "U0000000", "user ID to attribute the idea to")
	previewCmd.Flags().StringVar(&previewChannel, "channel", "C0000000", "channel ID the idea came from")
	previewCmd.Flags().BoolVar(&previewRaw, "raw", false, "print markdown without terminal styling")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	idea := canvas.Idea{
		Text:    strings.Join(args, " "),
		Author:  previewAuthor,
		Channel: previewChannel,
	}
	md := canvas.RenderFragment(idea, time.Now().In(loc))

	out, err := ui.RenderMarkdown(md, !previewRaw && ui.ShouldUseColor())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
