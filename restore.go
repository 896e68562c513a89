package main

import (
	"context"

	"github.com/gentoomaniac/snapshot-tool/pkg/backup"
	clitools "github.com/gentoomaniac/snapshot-tool/pkg/cli"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
)

type RestoreCmd struct {
	DatabaseFlags `embed:""`
	WorkdirFlags  `embed:""`

	SnapshotDir string `name:"snapshot-dir" help:"Restore from this directory instead of the slot" type:"path"`
	Threads     int    `help:"Load parallelism" default:"4"`
	Overwrite   bool   `help:"Drop and recreate tables that already exist"`
	Yes         bool   `short:"y" help:"Skip the confirmation prompt"`
}

func (r *RestoreCmd) Run() error {
	orch := &backup.Orchestrator{
		Loader:  dump.NewMyLoader(),
		Catalog: r.openCatalog(),
	}
	if !r.Yes {
		orch.Confirm = clitools.ConfirmRestore
	}
	return orch.Restore(context.Background(), backup.RestoreParams{
		Root:        r.Root,
		SnapshotDir: r.SnapshotDir,
		Load: dump.LoadOptions{
			Connection:      r.connection(),
			Threads:         r.Threads,
			OverwriteTables: r.Overwrite,
		},
	})
}
