package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/stratum/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	interval := time.Duration(rt.cfg.Optimizer.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	rt.engine.StartTimer(interval)
	defer rt.engine.Stop()

	srv := server.New(rt.db, rt.engine, rt.archiver, VersionString())
	addr := rt.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "stratum serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", rt.db.Path)
		fmt.Fprintf(os.Stderr, "  archive: %s\n", rt.archiver.Dir())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
