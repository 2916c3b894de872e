package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"podcast-generator/internal/config"
	"podcast-generator/internal/output"
	"podcast-generator/internal/pipeline"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "generate [SOURCE]",
		Short: "Write the feed for SOURCE to stdout or a file",
		Long: "Scan the audio files directly inside SOURCE and write the RSS feed.\n" +
			"SOURCE defaults to PODCAST_AUDIO_DIR, then ./audio.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, ctx, args, outputPath)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the feed to this file instead of stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, ctx *commandContext, args []string, outputPath string) error {
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

	if outputPath == "" {
		return pipeline.Generate(cmd.Context(), opts, cmd.OutOrStdout())
	}
	if err := writeFeedFile(cmd.Context(), opts, outputPath); err != nil {
		return err
	}
	logger.Printf("feed written to %s", outputPath)
	return nil
}

func writeFeedFile(ctx context.Context, opts pipeline.Options, path string) error {
	return output.WriteFile(path, func(w io.Writer) error {
		return pipeline.Generate(ctx, opts, w)
	})
}
