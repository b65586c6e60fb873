package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkdir/parkdir/internal/ui"
)

var favouriteTimeout time.Duration

var addCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Add a server to your favourites by address",
	Long: `Add a server by address. The address may carry a port
(host:port, [v6]:port); without one the default port is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove a server from your favourites",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var favouriteCmd = &cobra.Command{
	Use:   "favourite <address>",
	Short: "Toggle whether a listed server is a favourite",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavourite,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(favouriteCmd)

	favouriteCmd.Flags().DurationVar(&favouriteTimeout, "timeout", 15*time.Second, "how long to wait for the directory")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	s, err := sess.AddServer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("add %s: %w", args[0], err)
	}

	ui.Success(fmt.Sprintf("Added %s to favourites", s.Address))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	addr := args[0]

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	s, err := sess.SetFavourite(ctx, addr, false)
	if err != nil {
		return fmt.Errorf("%s: %w", addr, err)
	}

	ui.Success(fmt.Sprintf("Removed %s from favourites", s.Address))
	return nil
}

// runFavourite toggles an entry of the merged list, so public servers can
// be starred as well as saved ones unstarred.
func runFavourite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	if _, err := sess.Lookup(args[0]); err != nil {
		refreshAndWait(ctx, sess, favouriteTimeout)
	}

	s, err := sess.ToggleFavourite(ctx, args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if s.Favourite {
		ui.Success(fmt.Sprintf("Added %s to favourites", s.Name))
	} else {
		ui.Success(fmt.Sprintf("Removed %s from favourites", s.Name))
	}
	return nil
}
