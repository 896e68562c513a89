package remote

import (
	"context"
	"strings"
)

// Entry is one immediate child under a remote path.
type Entry struct {
	Name string
	Dir  bool
}

// Transport is the narrow contract the snapshot lifecycle needs from the blob
// storage layer: recursive directory upload, single small object writes,
// one-level listing and recursive deletion.
type Transport interface {
	UploadDir(ctx context.Context, localDir, remoteURL string) error
	PutObject(ctx context.Context, remoteURL string, payload []byte) error
	List(ctx context.Context, remoteURL string) ([]Entry, error)
	RemoveAll(ctx context.Context, remoteURL string) error
}

// Join appends a child element to a remote base URL.
func Join(base, elem string) string {
	return strings.TrimRight(base, "/") + "/" + elem
}
