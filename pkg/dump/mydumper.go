package dump

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// LogName is the producer log written into the snapshot alongside the data
// files.
const LogName = "mydumper.log"

// MyDumper runs mydumper as the dump producer.
type MyDumper struct {
	Binary string
}

func NewMyDumper() *MyDumper {
	return &MyDumper{Binary: "mydumper"}
}

func (m *MyDumper) Dump(ctx context.Context, opts DumpOptions) error {
	args := dumpArgs(opts)
	log.Info().Str("host", opts.Host).Str("outputdir", opts.OutputDir).Int("threads", opts.Threads).Msg("starting dump")
	return runTool(ctx, m.Binary, args)
}

func dumpArgs(opts DumpOptions) []string {
	args := []string{
		"--host", opts.Host,
		"--port", strconv.Itoa(opts.Port),
		"--user", opts.User,
		"--outputdir", opts.OutputDir,
		"--threads", strconv.Itoa(opts.Threads),
		"--chunk-filesize", strconv.Itoa(opts.ChunkMB),
		"--compress",
		"--logfile", filepath.Join(opts.OutputDir, LogName),
	}
	if opts.Password != "" {
		args = append(args, "--password", opts.Password)
	}
	if opts.Regex != "" {
		args = append(args, "--regex", opts.Regex)
	}
	if opts.SSLMode != "" {
		args = append(args, "--ssl-mode", opts.SSLMode)
	}
	return args
}

// MyLoader runs myloader as the dump consumer.
type MyLoader struct {
	Binary string
}

func NewMyLoader() *MyLoader {
	return &MyLoader{Binary: "myloader"}
}

func (m *MyLoader) Load(ctx context.Context, opts LoadOptions) error {
	args := loadArgs(opts)
	log.Info().Str("host", opts.Host).Str("directory", opts.SourceDir).Int("threads", opts.Threads).Msg("starting load")
	return runTool(ctx, m.Binary, args)
}

func loadArgs(opts LoadOptions) []string {
	args := []string{
		"--host", opts.Host,
		"--port", strconv.Itoa(opts.Port),
		"--user", opts.User,
		"--directory", opts.SourceDir,
		"--threads", strconv.Itoa(opts.Threads),
	}
	if opts.Password != "" {
		args = append(args, "--password", opts.Password)
	}
	if opts.OverwriteTables {
		args = append(args, "--overwrite-tables")
	}
	if opts.SSLMode != "" {
		args = append(args, "--ssl-mode", opts.SSLMode)
	}
	return args
}

func runTool(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if idx := strings.LastIndexByte(detail, '\n'); idx >= 0 {
			detail = detail[idx+1:]
		}
		return fmt.Errorf("%s: %w: %s", binary, err, detail)
	}
	return nil
}
