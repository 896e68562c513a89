package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/snapname"
)

// SweepReport tallies the outcome of one retention sweep.
type SweepReport struct {
	Kept    int
	Deleted int
	Failed  int
	Skipped int
}

// Sweep deletes remote snapshots under base whose age exceeds the retention
// horizon. A horizon of zero or less disables pruning entirely. Siblings whose
// name does not parse as a snapshot are skipped, the base path may hold
// unrelated objects. A snapshot exactly at the horizon is kept; the cutoff is
// a strict greater-than. One failed deletion does not stop the sweep of the
// remaining entries.
func Sweep(ctx context.Context, t Transport, base string, horizonDays int, now time.Time) (SweepReport, error) {
	var report SweepReport
	if horizonDays <= 0 {
		log.Debug().Int("keep_days", horizonDays).Msg("retention disabled, skipping sweep")
		return report, nil
	}

	entries, err := t.List(ctx, base)
	if err != nil {
		return report, fmt.Errorf("listing remote snapshots: %w", err)
	}

	horizon := time.Duration(horizonDays) * 24 * time.Hour
	for _, entry := range entries {
		timestamp, err := snapname.Parse(entry.Name)
		if err != nil {
			log.Debug().Str("name", entry.Name).Msg("not a snapshot name, skipping")
			report.Skipped++
			continue
		}
		if now.Sub(timestamp) <= horizon {
			report.Kept++
			continue
		}
		if err := t.RemoveAll(ctx, Join(base, entry.Name)); err != nil {
			log.Warn().Err(err).Str("name", entry.Name).Msg("failed to delete expired snapshot")
			report.Failed++
			continue
		}
		log.Info().Str("name", entry.Name).Msg("deleted expired snapshot")
		report.Deleted++
	}

	log.Info().
		Int("kept", report.Kept).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("retention sweep finished")
	return report, nil
}
