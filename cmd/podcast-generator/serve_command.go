package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podcast-generator/internal/config"
	"podcast-generator/internal/pipeline"
	"podcast-generator/internal/server"
	"podcast-generator/internal/watch"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve [SOURCE]",
		Short: "Serve the feed and audio files of SOURCE over HTTP",
		Long: "Serve the feed at /feed.xml and the audio files under /audio/.\n" +
			"The listen address must be on localhost.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.logger()

			root, err := config.ResolveAudioRoot(sourceArg(args))
			if err != nil {
				return fmt.Errorf("resolve audio root: %w", err)
			}

			if strings.TrimSpace(listenAddr) == "" {
				listenAddr = config.ListenAddr()
			}
			if err := config.ValidateListenAddr(listenAddr); err != nil {
				return fmt.Errorf("invalid listen address %q: %w", listenAddr, err)
			}

			meta, err := ctx.feedConfig()
			if err != nil {
				return err
			}
			if meta.EnclosureBaseURL == "" {
				meta.EnclosureBaseURL = config.DefaultBaseURL(listenAddr)
			}
			if meta.SelfURL == "" {
				meta.SelfURL = "http://" + listenAddr + "/feed.xml"
			}
			opts, err := ctx.pipelineOptions(root, meta, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cache := &server.Cache{}
			refresh := func() error {
				data, doc, err := pipeline.Render(runCtx, opts)
				if err != nil {
					return err
				}
				cache.Store(data, doc.Episodes())
				return nil
			}

			w, err := watch.New(root, opts.Types, config.RefreshDebounce(), refresh, logger)
			if err != nil {
				return fmt.Errorf("initialise feed: %w", err)
			}
			defer func() {
				if err := w.Close(); err != nil {
					logger.Printf("error closing watcher: %v", err)
				}
			}()

			httpServer := &http.Server{
				Addr:              listenAddr,
				Handler:           server.New(cache, root, opts.Types, logger),
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			go func() {
				<-runCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Printf("graceful shutdown error: %v", err)
				}
			}()

			logger.Printf("listening on %s (audio directory: %s)", listenAddr, root)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server error: %w", err)
			}
			logger.Println("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default PODCAST_LISTEN_ADDR or 127.0.0.1:8080)")

	return cmd
}
