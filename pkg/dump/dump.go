// Package dump wraps the external logical dump tools. The tools are treated
// as opaque collaborators: they either populate/consume a directory and exit
// zero, or they fail and the run aborts.
package dump

import "context"

// Connection identifies the database a dump or load talks to. Credentials are
// passed through untouched.
type Connection struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// DumpOptions drives one dump producer invocation.
type DumpOptions struct {
	Connection
	OutputDir string
	Threads   int
	ChunkMB   int
	Regex     string
}

// LoadOptions drives one dump consumer invocation.
type LoadOptions struct {
	Connection
	SourceDir       string
	Threads         int
	OverwriteTables bool
}

// Dumper produces a logical dump into a directory.
type Dumper interface {
	Dump(ctx context.Context, opts DumpOptions) error
}

// Loader applies a logical dump from a directory to the target database.
type Loader interface {
	Load(ctx context.Context, opts LoadOptions) error
}
