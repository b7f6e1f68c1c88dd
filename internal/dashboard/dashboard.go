// Package dashboard aggregates counts and revenue across every configured
// resource.
package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pazzo-admin/internal/resource"
)

// Lister fetches one resource collection.
type Lister interface {
	List(ctx context.Context) ([]resource.Record, error)
}

// Source pairs a resource with its endpoint.
type Source struct {
	Config resource.Config
	Lister Lister
}

// Line is one resource's contribution to the summary.
type Line struct {
	Key     string
	Label   string
	Count   int
	Revenue float64
}

// Summary is the dashboard view model. Lines follow the source order.
type Summary struct {
	Lines        []Line
	TotalCount   int
	TotalRevenue float64
}

// Summarize fetches all sources concurrently. Any failure fails the whole
// summary.
func Summarize(ctx context.Context, log *zap.Logger, sources ...Source) (*Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}

	lines := make([]Line, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			records, err := src.Lister.List(ctx)
			if err != nil {
				log.Warn("dashboard fetch failed", zap.String("resource", src.Config.Key), zap.Error(err))
				return fmt.Errorf("%s: %w", src.Config.Key, err)
			}
			line := Line{Key: src.Config.Key, Label: src.Config.Label, Count: len(records)}
			for _, r := range records {
				line.Revenue += r.Price
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Lines: lines}
	for _, l := range lines {
		sum.TotalCount += l.Count
		sum.TotalRevenue += l.Revenue
	}
	return sum, nil
}
