package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// Bounding box of mainland India plus the island territories.
const (
	indiaMinLat = 6.0
	indiaMaxLat = 37.6
	indiaMinLng = 68.0
	indiaMaxLng = 97.5
)

func inIndia(lat, lng float64) bool {
	return lat >= indiaMinLat && lat <= indiaMaxLat && lng >= indiaMinLng && lng <= indiaMaxLng
}

type repairSummary struct {
	Scanned int
	Swapped int
	Skipped int
}

type repairer struct {
	store  coordinateStore
	dryRun bool
	logg   *logger.Logger
}

// run swaps coordinates that were stored as lng/lat. Pairs that fall outside
// India either way are reported and left alone.
func (r *repairer) run(ctx context.Context) (repairSummary, error) {
	rows, err := r.store.ListWithCoordinates(ctx)
	if err != nil {
		return repairSummary{}, fmt.Errorf("list coordinates: %w", err)
	}

	summary := repairSummary{Scanned: len(rows)}
	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		lat, lng := *row.Latitude, *row.Longitude
		if inIndia(lat, lng) {
			continue
		}
		rowCtx := r.logg.WithFields(ctx, map[string]any{"experience_id": row.ID, "lat": lat, "lng": lng})
		if !inIndia(lng, lat) {
			summary.Skipped++
			r.logg.Warn(rowCtx, "coordinates outside india, needs manual review")
			continue
		}
		if !r.dryRun {
			if err := r.store.UpdateCoordinates(ctx, row.ID, lng, lat); err != nil {
				return summary, fmt.Errorf("swap %s: %w", row.ID, err)
			}
		}
		summary.Swapped++
		r.logg.Info(rowCtx, "swapped lat/lng")
	}
	return summary, nil
}

func newRepairCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "repair-coords",
		Short: "Swap experience coordinates stored as longitude/latitude",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			r := &repairer{store: a.catalog, dryRun: dryRun, logg: a.logg}
			summary, err := r.run(ctx)
			a.logg.Info(a.logg.WithFields(ctx, map[string]any{
				"scanned": summary.Scanned,
				"swapped": summary.Swapped,
				"skipped": summary.Skipped,
				"dry_run": dryRun,
			}), "coordinate repair finished")
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report swaps without writing them")
	return cmd
}
