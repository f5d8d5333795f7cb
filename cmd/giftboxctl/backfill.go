package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/maps"
)

const indiaRegion = "IN"

type coordinateStore interface {
	ListMissingCoordinates(ctx context.Context, limit int) ([]models.Experience, error)
	ListWithCoordinates(ctx context.Context) ([]models.Experience, error)
	UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error
}

type geocoder interface {
	Geocode(ctx context.Context, query, regionCode string) (*maps.PlaceDetails, error)
}

type backfillSummary struct {
	Scanned  int
	Updated  int
	NotFound int
	Failed   int
}

type backfiller struct {
	store       coordinateStore
	geocoder    geocoder
	limiter     *rate.Limiter
	concurrency int
	dryRun      bool
	logg        *logger.Logger
}

// run geocodes up to limit listings that carry a location but no coordinates.
// A failed lookup is logged and counted; it never aborts the batch.
func (b *backfiller) run(ctx context.Context, limit int) (backfillSummary, error) {
	rows, err := b.store.ListMissingCoordinates(ctx, limit)
	if err != nil {
		return backfillSummary{}, fmt.Errorf("list missing coordinates: %w", err)
	}

	var updated, notFound, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.concurrency, 1))
	for _, row := range rows {
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			rowCtx := b.logg.WithFields(gctx, map[string]any{"experience_id": row.ID, "location": row.Location})

			place, err := b.geocoder.Geocode(gctx, row.Location, indiaRegion)
			if err != nil {
				failed.Add(1)
				b.logg.Error(rowCtx, "geocode failed", err)
				return nil
			}
			if place == nil || !(geo.Point{Lat: place.Location.Latitude, Lng: place.Location.Longitude}).Valid() {
				notFound.Add(1)
				b.logg.Warn(rowCtx, "no geocode match")
				return nil
			}
			if b.dryRun {
				updated.Add(1)
				return nil
			}
			if err := b.store.UpdateCoordinates(gctx, row.ID, place.Location.Latitude, place.Location.Longitude); err != nil {
				failed.Add(1)
				b.logg.Error(rowCtx, "store coordinates", err)
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	err = g.Wait()

	summary := backfillSummary{
		Scanned:  len(rows),
		Updated:  int(updated.Load()),
		NotFound: int(notFound.Load()),
		Failed:   int(failed.Load()),
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}
	return summary, ctx.Err()
}

func newBackfillCmd() *cobra.Command {
	var (
		limit       int
		concurrency int
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "backfill-coords",
		Short: "Geocode experiences that have a location but no coordinates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := maps.NewClient(a.cfg.GoogleMaps.APIKey)
			if err != nil {
				return fmt.Errorf("places client: %w", err)
			}
			qps := a.cfg.GoogleMaps.RequestsPerSec
			if qps <= 0 {
				qps = 5
			}
			b := &backfiller{
				store:       a.catalog,
				geocoder:    client,
				limiter:     rate.NewLimiter(rate.Limit(qps), 1),
				concurrency: concurrency,
				dryRun:      dryRun,
				logg:        a.logg,
			}
			summary, err := b.run(ctx, limit)
			a.logg.Info(a.logg.WithFields(ctx, map[string]any{
				"scanned":   summary.Scanned,
				"updated":   summary.Updated,
				"not_found": summary.NotFound,
				"failed":    summary.Failed,
				"dry_run":   dryRun,
			}), "coordinate backfill finished")
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum experiences to geocode")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel geocode requests")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "look up coordinates without writing them")
	return cmd
}
