package main

import (
	"github.com/alecthomas/kong"
	"github.com/gentoomaniac/logging"
	"github.com/rs/zerolog/log"
)

var (
	version = "unset"
	commit  = "unset"
	binName = "snapshot-tool"
	builtBy = "manual"
	date    = "unset"
)

var cli struct {
	logging.LoggingConfig

	Backup  BackupCmd  `cmd:"" help:"Dump the source database and upload a new snapshot."`
	Restore RestoreCmd `cmd:"" help:"Load the local snapshot into a database."`
	Sweep   SweepCmd   `cmd:"" help:"Delete remote snapshots past the retention horizon."`

	Version kong.VersionFlag `short:"v" help:"Display version."`
}

func main() {
	ctx := kong.Parse(&cli, kong.UsageOnError(), kong.Vars{
		"version": version,
		"commit":  commit,
		"binName": binName,
		"builtBy": builtBy,
		"date":    date,
	})
	logging.Setup(&cli.LoggingConfig)

	var err error
	switch ctx.Command() {
	case "backup":
		err = cli.Backup.Run()
	case "restore":
		err = cli.Restore.Run()
	case "sweep":
		err = cli.Sweep.Run()
	}
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		ctx.Exit(1)
	}
	ctx.Exit(0)
}
