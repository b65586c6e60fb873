package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/parkdir/parkdir/internal/api"
	"github.com/parkdir/parkdir/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the server list over a local HTTP API",
	Long: `Run a long-lived session and expose it under /api/v1. With
refresh_interval set the directory is re-fetched periodically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http_addr)")
}

var serveAddr string

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("parkdir starting...")

	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	ctx := context.Background()
	sess, closeSession, err := openSession(ctx)
	if err != nil {
		log.Printf("Failed to open session: %v", err)
		return err
	}
	defer closeSession()

	log.Printf("Session %s ready", sess.ID())
	sess.Refresh()

	// Initialize scheduler
	sched := scheduler.New(sess, cfg.RefreshInterval)

	// Start scheduler in background
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	go func() {
		if err := sched.Start(schedCtx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	// Initialize API
	apiHandler := api.New(sess, cfg.RefreshRate, cfg.RefreshBurst)

	// Setup router
	r := chi.NewRouter()
	r.Mount("/api/v1", apiHandler.Router())

	// Create HTTP server
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		schedCancel()
		server.Shutdown(context.Background())
	}()

	// Start server
	log.Printf("parkdir listening on %s", cfg.HTTPAddr)
	log.Printf("Directory: %s, refresh interval: %s", sess.DirectoryURL(), cfg.RefreshInterval)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Server error: %v", err)
		return err
	}

	log.Println("parkdir stopped")
	return nil
}
