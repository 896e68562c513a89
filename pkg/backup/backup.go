package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
	"github.com/gentoomaniac/snapshot-tool/pkg/lock"
	"github.com/gentoomaniac/snapshot-tool/pkg/remote"
	"github.com/gentoomaniac/snapshot-tool/pkg/slot"
	"github.com/gentoomaniac/snapshot-tool/pkg/snapname"
)

// BackupParams drives one backup run.
type BackupParams struct {
	// Root is the working directory holding the lock marker and the snapshot
	// slot.
	Root string

	// RemoteBase is the remote path snapshots are uploaded under.
	RemoteBase string

	// KeepDays is the retention horizon for the inline sweep; zero or less
	// disables pruning.
	KeepDays int

	// Dump configures the dump producer. OutputDir is set by the run.
	Dump dump.DumpOptions
}

// Backup runs the full backup flow. Each new run recreates the single local
// snapshot slot, so a failed run's leftovers are cleaned up by the next run's
// prepare step, never here. The remote destination is derived from the run's
// UTC start instant, so every run creates exactly one new remote snapshot and
// never overwrites an earlier one.
func (o *Orchestrator) Backup(ctx context.Context, params BackupParams) (err error) {
	name := snapname.Format(o.now())
	stage := StageLock

	runID := o.startRun("backup", name)
	defer func() { o.closeRun(runID, stage, err) }()

	if err = os.MkdirAll(params.Root, 0755); err != nil {
		return fmt.Errorf("%s: creating working root: %w", stage, err)
	}
	handle, err := lock.Acquire(params.Root)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	defer handle.Release()

	stage = StagePrepare
	slotPath := slot.Path(params.Root)
	if err = slot.Prepare(slotPath); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageDump
	opts := params.Dump
	opts.OutputDir = slotPath
	if err = o.Dumper.Dump(ctx, opts); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageManifest
	if _, err = slot.WriteManifest(slotPath); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageUpload
	dest := remote.Join(params.RemoteBase, name)
	log.Info().Str("snapshot", name).Str("dest", dest).Msg("uploading snapshot")
	if err = o.Transport.UploadDir(ctx, slotPath, dest); err != nil {
		// the local slot stays intact, a re-run can upload without re-dumping
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageMetadata
	payload, err := json.Marshal(Metadata{
		Timestamp:  name,
		SourceHost: params.Dump.Host,
		Threads:    params.Dump.Threads,
		ChunkMB:    params.Dump.ChunkMB,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if err = o.Transport.PutObject(ctx, remote.Join(dest, MetadataName), payload); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageSweep
	// Sweep trouble is reported but does not fail the run: the exit code is
	// tied to the backup path only.
	if _, sweepErr := remote.Sweep(ctx, o.Transport, params.RemoteBase, params.KeepDays, o.now()); sweepErr != nil {
		log.Warn().Err(sweepErr).Msg("retention sweep failed")
	}

	stage = StageDone
	log.Info().Str("snapshot", name).Msg("backup finished")
	return nil
}
