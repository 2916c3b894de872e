package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"podcast-generator/internal/config"
	"podcast-generator/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "watch [SOURCE]",
		Short: "Regenerate the feed file whenever SOURCE changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.logger()

			root, err := config.ResolveAudioRoot(sourceArg(args))
			if err != nil {
				return fmt.Errorf("resolve audio root: %w", err)
			}
			meta, err := ctx.feedConfig()
			if err != nil {
				return err
			}
			opts, err := ctx.pipelineOptions(root, meta, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			refresh := func() error {
				if err := writeFeedFile(runCtx, opts, outputPath); err != nil {
					return err
				}
				logger.Printf("feed written to %s", outputPath)
				return nil
			}

			w, err := watch.New(root, opts.Types, config.RefreshDebounce(), refresh, logger)
			if err != nil {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			defer func() {
				if err := w.Close(); err != nil {
					logger.Printf("error closing watcher: %v", err)
				}
			}()

			logger.Printf("watching %s", root)
			<-runCtx.Done()
			logger.Println("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Feed file to keep up to date")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
