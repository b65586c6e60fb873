package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/compat"
	"github.com/parkdir/parkdir/internal/config"
	"github.com/parkdir/parkdir/internal/connect"
	"github.com/parkdir/parkdir/internal/database"
	"github.com/parkdir/parkdir/internal/favourites"
	"github.com/parkdir/parkdir/internal/session"
	"github.com/parkdir/parkdir/internal/ui"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "parkdir",
	Short: "Browse, favourite and join multiplayer park servers",
	Long: `parkdir lists the public servers announced on the directory server,
keeps a list of favourite servers and joins them.

Settings are read from parkdir.yml and PARKDIR_* environment variables.`,
	Version:           compat.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// reported marks an error whose message was already printed
type reported struct {
	error
}

func (r reported) Unwrap() error { return r.error }

func Execute() error {
	err := rootCmd.Execute()
	var rep reported
	if err != nil && !errors.As(err, &rep) {
		fmt.Fprint(os.Stderr, ui.FormatError(err.Error(), "", ""))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: parkdir.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log directory and session activity to stderr")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if !verbose && cmd != serveCmd {
		log.SetOutput(io.Discard)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to load config", err.Error(), "check parkdir.yml and PARKDIR_* variables"))
		return reported{err}
	}
	return nil
}

// openStore returns the favourites store selected by the config and a
// function releasing it.
func openStore(ctx context.Context) (favourites.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return favourites.NewFileStore(cfg.FavouritesFile), func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Println("Database connected")
	return favourites.NewDBStore(db), db.Close, nil
}

// openSession creates a session over the configured store. The returned
// function closes both.
func openSession(ctx context.Context) (*session.Session, func(), error) {
	store, closeStore, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(ctx, session.Options{
		Parser:         address.NewParser(cfg.DefaultPort),
		Policy:         compat.NewPolicy(cfg.LocalVersion),
		Store:          store,
		Connector:      connect.NewTCPConnector(0),
		DirectoryURL:   cfg.DirectoryURL,
		FetchTimeout:   cfg.FetchTimeout,
		PlayerName:     cfg.PlayerName,
		SavePlayerName: cfg.SetPlayerName,
	})

	return sess, func() {
		sess.Close()
		closeStore()
	}, nil
}

// refreshAndWait fetches the directory and waits up to timeout for the
// result. A timeout leaves the favourites-only list in place.
func refreshAndWait(ctx context.Context, sess *session.Session, timeout time.Duration) {
	sess.Refresh()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sess.Wait(waitCtx); err != nil {
		ui.Warn(fmt.Sprintf("directory did not answer within %s", timeout))
	}
}
