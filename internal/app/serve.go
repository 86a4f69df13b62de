package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frannie30/ip-add-identifier/internal/identity"
	"github.com/frannie30/ip-add-identifier/internal/localinfo"
	"github.com/frannie30/ip-add-identifier/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API on PORT (default 5000).

Endpoints:
  GET    /api/ip_info
  GET    /api/local_info
  POST   /api/save_entry
  GET    /api/saved_entries
  GET    /api/saved_entries/{id}
  DELETE /api/saved_entries/{id}
  GET    /api/status`,
	Example: `  ip-identifier serve --port 8080`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	agg := newAggregator(cfg)
	svc := identity.NewService(agg, store)

	srv := server.New(cfg.Port, svc, server.Options{
		RequestTimeout: cfg.RequestTimeout,
		Local:          localinfo.Collect,
		Providers:      providerNames(agg),
		Backend:        cfg.StoreBackend,
	})

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-done:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Goodbye")
	return nil
}
