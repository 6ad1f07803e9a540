package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/assessment"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/container"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the generation workers",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Run schema migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx)
	if err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := assessment.AutoMigrate(config.DB); err != nil {
			return err
		}
	}

	staleAfter := c.Settings.GenerationTimeout * time.Duration(c.Settings.GenerationRetries+1)
	if _, err := c.AssessmentContainer.Service.RecoverStaleGenerations(ctx, staleAfter); err != nil {
		return err
	}

	manager := c.GenerationContainer.Manager
	manager.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + c.Settings.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.WithContext(gctx).WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		manager.Stop()
		config.WithContext(shutdownCtx).Info("Server stopped")
		return err
	})
	return g.Wait()
}
