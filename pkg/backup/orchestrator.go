// Package backup sequences the snapshot lifecycle: lock, slot, dump, manifest,
// upload, metadata, sweep for backups, and lock, slot, load for restores. The
// lock release is the one cleanup guaranteed on every exit path.
package backup

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/catalog"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
	"github.com/gentoomaniac/snapshot-tool/pkg/remote"
)

// Stage names mark how far a run got. They show up in error messages, logs
// and the run catalog.
const (
	StageLock     = "lock"
	StagePrepare  = "prepare"
	StageDump     = "dump"
	StageManifest = "manifest"
	StageUpload   = "upload"
	StageMetadata = "metadata"
	StageSweep    = "sweep"
	StageResolve  = "resolve"
	StageLoad     = "load"
	StageDone     = "done"
)

// MetadataName is the small JSON object published alongside each uploaded
// snapshot's contents.
const MetadataName = "backup.json"

// Metadata records where a snapshot came from and how it was produced.
type Metadata struct {
	Timestamp  string `json:"timestamp"`
	SourceHost string `json:"source_host"`
	Threads    int    `json:"threads"`
	ChunkMB    int    `json:"chunk_mb"`
}

// Orchestrator wires the external collaborators into the snapshot lifecycle.
type Orchestrator struct {
	Dumper    dump.Dumper
	Loader    dump.Loader
	Transport remote.Transport
	Catalog   catalog.Catalog

	// Confirm guards destructive restores. A nil Confirm means proceed.
	Confirm func(host, snapshot string) (bool, error)

	// Now exists so tests can pin the clock; nil falls back to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// startRun records the run in the catalog. Catalog trouble is logged, never
// fatal: observability must not break the backup path.
func (o *Orchestrator) startRun(kind, snapshot string) int64 {
	if o.Catalog == nil {
		return -1
	}
	id, err := o.Catalog.StartRun(kind, snapshot)
	if err != nil {
		log.Warn().Err(err).Msg("could not record run in catalog")
		return -1
	}
	return id
}

func (o *Orchestrator) finishRun(id int64, stage, status, errText string) {
	if o.Catalog == nil || id < 0 {
		return
	}
	if err := o.Catalog.FinishRun(id, stage, status, errText); err != nil {
		log.Warn().Err(err).Msg("could not update run in catalog")
	}
}

func (o *Orchestrator) closeRun(id int64, stage string, err error) {
	if err != nil {
		o.finishRun(id, stage, catalog.StatusFailure, err.Error())
		return
	}
	o.finishRun(id, stage, catalog.StatusSuccess, "")
}
