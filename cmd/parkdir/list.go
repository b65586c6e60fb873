package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/parkdir/parkdir/internal/registry"
	"github.com/parkdir/parkdir/internal/ui"
)

var (
	listOutput  string
	listTimeout time.Duration
	listOffline bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show favourites and the servers announced on the directory",
	Long: `Fetch the public server list and print it merged with your favourites.

Favourites come first, then servers running this build, then servers
without a password, each group sorted by name.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "output format: table, json, yaml")
	listCmd.Flags().DurationVar(&listTimeout, "timeout", 15*time.Second, "how long to wait for the directory")
	listCmd.Flags().BoolVar(&listOffline, "favourites-only", false, "skip the directory and list saved favourites")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	if !listOffline {
		refreshAndWait(ctx, sess, listTimeout)
	}

	servers := sess.Servers()
	switch listOutput {
	case "json":
		return writeJSON(servers)
	case "yaml":
		return writeYAML(servers)
	case "table":
		fmt.Println(ui.ServerTable(servers, sess.Policy()))
		fmt.Println(ui.StatusLine(sess.Status().Text()))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", listOutput)
	}
}

func writeJSON(servers []registry.Server) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(servers)
}

func writeYAML(servers []registry.Server) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(servers); err != nil {
		return err
	}
	return enc.Close()
}
