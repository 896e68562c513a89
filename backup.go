package main

import (
	"context"
	"fmt"

	"github.com/gentoomaniac/snapshot-tool/pkg/backup"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
)

type BackupCmd struct {
	DatabaseFlags `embed:""`
	RemoteFlags   `embed:""`
	WorkdirFlags  `embed:""`

	Threads  int    `help:"Dump parallelism" default:"4"`
	ChunkMB  int    `name:"chunk-mb" help:"Split tables into chunks of this many MB" default:"64"`
	Regex    string `help:"Regex limiting which schemas and tables are dumped"`
	KeepDays int    `name:"keep-days" help:"Days to keep remote snapshots, 0 disables pruning" default:"0"`
}

func (b *BackupCmd) Run() error {
	transport, err := b.transport()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := transport.Login(ctx); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	defer transport.Logout(ctx)

	orch := &backup.Orchestrator{
		Dumper:    dump.NewMyDumper(),
		Transport: transport,
		Catalog:   b.openCatalog(),
	}
	return orch.Backup(ctx, backup.BackupParams{
		Root:       b.Root,
		RemoteBase: b.Remote,
		KeepDays:   b.KeepDays,
		Dump: dump.DumpOptions{
			Connection: b.connection(),
			Threads:    b.Threads,
			ChunkMB:    b.ChunkMB,
			Regex:      b.Regex,
		},
	})
}
