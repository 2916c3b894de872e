package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var outputPath string

	rootCmd := &cobra.Command{
		Use:           "podcast-generator [SOURCE]",
		Short:         "Generate a podcast RSS feed from a directory of audio files",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.loadEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, ctx, args, outputPath)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Feed configuration file (YAML)")
	flags.StringSliceVar(&ctx.envFiles, "env-file", nil, "Environment files to load (default .env)")
	flags.BoolVarP(&ctx.quiet, "quiet", "q", false, "Suppress diagnostic logging")
	flags.IntVarP(&ctx.workers, "workers", "j", 0, "Number of concurrent metadata resolvers")
	flags.StringVar(&ctx.baseURL, "base-url", "", "Base URL that enclosure paths are joined to")
	flags.StringVar(&ctx.title, "title", "", "Feed title")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the feed to this file instead of stdout")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
