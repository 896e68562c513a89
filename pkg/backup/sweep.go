package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/gentoomaniac/snapshot-tool/pkg/lock"
	"github.com/gentoomaniac/snapshot-tool/pkg/remote"
)

// SweepParams drives one standalone retention sweep.
type SweepParams struct {
	Root       string
	RemoteBase string
	KeepDays   int
}

// Sweep prunes expired remote snapshots outside a backup run. It takes the
// same lock as backup and restore: holding it is the precondition for any
// remote mutation. Individual deletion failures are reported in the result,
// only a failed listing fails the run.
func (o *Orchestrator) Sweep(ctx context.Context, params SweepParams) (report remote.SweepReport, err error) {
	stage := StageLock

	runID := o.startRun("sweep", "")
	defer func() { o.closeRun(runID, stage, err) }()

	if err = os.MkdirAll(params.Root, 0755); err != nil {
		return report, fmt.Errorf("%s: creating working root: %w", stage, err)
	}
	handle, err := lock.Acquire(params.Root)
	if err != nil {
		return report, fmt.Errorf("%s: %w", stage, err)
	}
	defer handle.Release()

	stage = StageSweep
	report, err = remote.Sweep(ctx, o.Transport, params.RemoteBase, params.KeepDays, o.now())
	if err != nil {
		return report, fmt.Errorf("%s: %w", stage, err)
	}

	stage = StageDone
	return report, nil
}
