package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/parkdir/parkdir/internal/session"
	"github.com/parkdir/parkdir/internal/ui"
)

var nameCmd = &cobra.Command{
	Use:   "name [new-name]",
	Short: "Show or change your player name",
	Long: `Change the name other players see. Without an argument you are
prompted for it. Names are cut to 32 bytes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runName,
}

func init() {
	rootCmd.AddCommand(nameCmd)
}

func runName(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	name := sess.PlayerName()
	if len(args) == 1 {
		name = args[0]
	} else {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Player name").
					Description("The name other players see").
					CharLimit(session.MaxPlayerNameLength).
					Value(&name),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	if err := sess.SetPlayerName(name); err != nil {
		return err
	}

	fmt.Printf("Player name: %s\n", ui.Bold(sess.PlayerName()))
	if cfg.ConfigFile() != "" {
		fmt.Println(ui.Hint("saved to " + cfg.ConfigFile()))
	}
	return nil
}
