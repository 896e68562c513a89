package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/backup"
)

type SweepCmd struct {
	RemoteFlags  `embed:""`
	WorkdirFlags `embed:""`

	KeepDays int `name:"keep-days" help:"Days to keep remote snapshots" required:""`
}

func (s *SweepCmd) Run() error {
	transport, err := s.transport()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := transport.Login(ctx); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	defer transport.Logout(ctx)

	orch := &backup.Orchestrator{
		Transport: transport,
		Catalog:   s.openCatalog(),
	}
	report, err := orch.Sweep(ctx, backup.SweepParams{
		Root:       s.Root,
		RemoteBase: s.Remote,
		KeepDays:   s.KeepDays,
	})
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		log.Warn().Int("failed", report.Failed).Msg("some expired snapshots could not be deleted")
	}
	return nil
}
