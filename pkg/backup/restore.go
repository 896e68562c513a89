package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/catalog"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
	"github.com/gentoomaniac/snapshot-tool/pkg/lock"
	"github.com/gentoomaniac/snapshot-tool/pkg/slot"
)

// RestoreParams drives one restore run.
type RestoreParams struct {
	// Root is the working directory holding the lock marker and the snapshot
	// slot.
	Root string

	// SnapshotDir, when set, is read instead of the fixed slot.
	SnapshotDir string

	// Load configures the dump consumer. SourceDir is set by the run.
	Load dump.LoadOptions
}

// Restore applies the current local snapshot to the target database. The
// snapshot directory is only ever read: clearing the slot is the backup
// flow's job, a restore must not be able to lose the one local copy.
func (o *Orchestrator) Restore(ctx context.Context, params RestoreParams) (err error) {
	stage := StageLock

	runID := o.startRun("restore", "")
	defer func() { o.closeRun(runID, stage, err) }()

	if err = os.MkdirAll(params.Root, 0755); err != nil {
		return fmt.Errorf("%s: creating working root: %w", stage, err)
	}
	handle, err := lock.Acquire(params.Root)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	defer handle.Release()

	stage = StageResolve
	source, err := slot.Resolve(slot.Path(params.Root), params.SnapshotDir)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	if o.Confirm != nil {
		confirmed, confirmErr := o.Confirm(params.Load.Host, source)
		if confirmErr != nil {
			err = fmt.Errorf("%s: %w", stage, confirmErr)
			return err
		}
		if !confirmed {
			log.Info().Msg("restore aborted")
			o.finishRun(runID, stage, catalog.StatusAborted, "")
			runID = -1
			return nil
		}
	}

	stage = StageLoad
	opts := params.Load
	opts.SourceDir = source
	if err = o.Loader.Load(ctx, opts); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageDone
	log.Info().Str("snapshot", source).Msg("restore finished")
	return nil
}
