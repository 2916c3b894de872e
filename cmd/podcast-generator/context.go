package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"podcast-generator/internal/config"
	"podcast-generator/internal/mediatype"
	"podcast-generator/internal/pipeline"
	"podcast-generator/internal/tags"
)

type commandContext struct {
	configPath string
	envFiles   []string
	quiet      bool
	workers    int
	baseURL    string
	title      string

	logOutput io.Writer
}

func (c *commandContext) loadEnv() error {
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

// logger writes to stderr since stdout may carry the feed.
func (c *commandContext) logger() *log.Logger {
	if c.quiet {
		return log.New(io.Discard, "", 0)
	}
	out := c.logOutput
	if out == nil {
		out = os.Stderr
	}
	return log.New(out, "podcast-generator ", log.LstdFlags|log.Lmsgprefix)
}

// feedConfig resolves the feed metadata and applies flag overrides. The
// result is not validated yet.
func (c *commandContext) feedConfig() (config.FeedMetadata, error) {
	meta, err := config.ResolveFeedMetadata(c.configPath)
	if err != nil {
		return config.FeedMetadata{}, fmt.Errorf("resolve feed metadata: %w", err)
	}
	if v := strings.TrimSpace(c.baseURL); v != "" {
		meta.EnclosureBaseURL = v
	}
	if v := strings.TrimSpace(c.title); v != "" {
		meta.Title = v
	}
	return meta, nil
}

func (c *commandContext) pipelineOptions(root string, meta config.FeedMetadata, logger *log.Logger) (pipeline.Options, error) {
	feedMeta, err := meta.ToFeed()
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid feed configuration: %w", err)
	}

	return pipeline.Options{
		Root:     root,
		Metadata: feedMeta,
		Types:    mediatype.Default(),
		Tags:     tags.FileReader{Logger: logger},
		Workers:  c.workerCount(),
		Logger:   logger,
	}, nil
}

func (c *commandContext) workerCount() int {
	if c.workers > 0 {
		return c.workers
	}
	return config.Workers()
}

func sourceArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
