// Package pipeline wires the scan, resolve, identify, assemble and serialize
// stages into a single call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"podcast-generator/internal/feed"
	"podcast-generator/internal/identity"
	"podcast-generator/internal/mediatype"
	"podcast-generator/internal/metadata"
	"podcast-generator/internal/models"
	"podcast-generator/internal/rss"
	"podcast-generator/internal/scanner"
)

const defaultWorkers = 4

// Options configures one synthesis run.
type Options struct {
	Root     string
	Metadata feed.Metadata
	Types    *mediatype.Table
	Tags     metadata.TagLookup
	Workers  int
	Assigner identity.Assigner
	Logger   *log.Logger
}

// Build scans opts.Root and assembles the feed document.
func Build(ctx context.Context, opts Options) (*feed.Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	types := opts.Types
	if types == nil {
		types = mediatype.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root %s: %w", opts.Root, err)
	}

	paths, err := scanner.Scan(root, types, logger)
	if err != nil {
		return nil, err
	}

	resolved := make([]*models.Episode, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ep, err := metadata.Resolve(path, root, types, opts.Tags)
			if err != nil {
				var unavailable *metadata.UnavailableError
				if errors.As(err, &unavailable) {
					logger.Printf("metadata error for %s: %v", path, err)
					return nil
				}
				return err
			}
			resolved[i] = &ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	episodes := make([]models.Episode, 0, len(resolved))
	for _, ep := range resolved {
		if ep != nil {
			episodes = append(episodes, *ep)
		}
	}
	if skipped := len(paths) - len(episodes); skipped > 0 {
		logger.Printf("skipped %d of %d audio files", skipped, len(paths))
	}

	identified, err := opts.Assigner.Assign(episodes)
	if err != nil {
		return nil, err
	}

	doc, err := feed.Assemble(opts.Metadata, identified)
	if err != nil {
		return nil, err
	}

	logger.Printf("assembled feed with %d episodes from %s", doc.Len(), root)
	return doc, nil
}

// Generate runs the full pipeline and writes the feed to w. Nothing is
// written when any stage fails.
func Generate(ctx context.Context, opts Options, w io.Writer) error {
	doc, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	return rss.Encode(w, doc)
}

// Render runs the full pipeline and returns the feed bytes alongside the
// document they were rendered from.
func Render(ctx context.Context, opts Options) ([]byte, *feed.Document, error) {
	doc, err := Build(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	data, err := rss.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}
