package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/parkdir/parkdir/internal/session"
	"github.com/parkdir/parkdir/internal/ui"
)

var joinTimeout time.Duration

var joinCmd = &cobra.Command{
	Use:   "join [address]",
	Short: "Join a server",
	Long: `Join a server by address, or pick one from the list when no address
is given. Servers running a different version cannot be joined.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().DurationVar(&joinTimeout, "timeout", 15*time.Second, "how long to wait for the directory")
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	refreshAndWait(ctx, sess, joinTimeout)

	var target string
	if len(args) == 1 {
		err = sess.Join(ctx, args[0])
		target = args[0]
	} else {
		index, pickErr := pickServer(sess)
		if pickErr != nil {
			return pickErr
		}
		s, _ := sess.Server(index)
		target = s.Name
		err = sess.JoinIndex(ctx, index)
	}

	if err != nil {
		return reportJoinError(err)
	}

	ui.Success(fmt.Sprintf("Joined %s as %s", target, sess.PlayerName()))
	return nil
}

// pickServer asks for a list entry and returns its index
func pickServer(sess *session.Session) (int, error) {
	servers := sess.Servers()
	if len(servers) == 0 {
		return 0, errors.New("no servers to join: add one with 'parkdir add <address>'")
	}

	policy := sess.Policy()
	options := make([]huh.Option[int], 0, len(servers))
	for i, s := range servers {
		options = append(options, huh.NewOption(ui.Option(s, policy), i))
	}

	var index int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which server do you want to join?").
				Description(sess.Status().Text()).
				Options(options...).
				Value(&index),
		),
	)
	if err := form.Run(); err != nil {
		return 0, err
	}
	return index, nil
}

// reportJoinError prints the notice for a failed join
func reportJoinError(err error) error {
	var verr *session.VersionError
	switch {
	case errors.As(err, &verr):
		fmt.Fprint(os.Stderr, ui.FormatError(
			"Incorrect software version",
			fmt.Sprintf("%s is running %s, this client is %s", verr.Address, verr.Remote, verr.Local),
			"install the server's version to join it",
		))
	case errors.Is(err, session.ErrUnableToConnect):
		fmt.Fprint(os.Stderr, ui.FormatError("Unable to connect to server", err.Error(), "check that the server is running and reachable"))
	case errors.Is(err, session.ErrNoSuchServer):
		fmt.Fprint(os.Stderr, ui.FormatError("No such server", err.Error(), "run 'parkdir list' to see the available servers"))
	default:
		return err
	}
	return reported{err}
}
