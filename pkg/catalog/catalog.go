// Package catalog keeps a local record of every run: which stage it reached
// and how it ended. External observability tooling reads this file instead of
// scraping log output.
package catalog

// Run is one recorded backup, restore or sweep invocation.
type Run struct {
	ID         int64
	Kind       string
	Snapshot   string
	Stage      string
	Status     string
	Error      string
	StartedAt  int64
	FinishedAt int64
}

// Run status values.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusAborted = "aborted"
)

type Catalog interface {
	Init() error
	StartRun(kind string, snapshot string) (int64, error)
	FinishRun(id int64, stage string, status string, errText string) error
	Runs() ([]*Run, error)
}
