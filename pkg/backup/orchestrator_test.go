package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gentoomaniac/snapshot-tool/pkg/catalog"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
	"github.com/gentoomaniac/snapshot-tool/pkg/lock"
	"github.com/gentoomaniac/snapshot-tool/pkg/remote"
	"github.com/gentoomaniac/snapshot-tool/pkg/slot"
	"github.com/gentoomaniac/snapshot-tool/pkg/snapname"
)

type fakeDumper struct {
	files        map[string][]byte
	err          error
	called       bool
	sawEmptySlot bool
}

func (f *fakeDumper) Dump(ctx context.Context, opts dump.DumpOptions) error {
	f.called = true
	entries, err := os.ReadDir(opts.OutputDir)
	if err != nil {
		return err
	}
	f.sawEmptySlot = len(entries) == 0
	if f.err != nil {
		return f.err
	}
	for rel, data := range f.files {
		if err := os.WriteFile(filepath.Join(opts.OutputDir, rel), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

type fakeLoader struct {
	err     error
	called  bool
	gotOpts dump.LoadOptions
}

func (f *fakeLoader) Load(ctx context.Context, opts dump.LoadOptions) error {
	f.called = true
	f.gotOpts = opts
	return f.err
}

type memTransport struct {
	uploads   map[string]map[string][]byte
	objects   map[string][]byte
	entries   []remote.Entry
	removed   []string
	uploadErr error
	putErr    error
}

func newMemTransport() *memTransport {
	return &memTransport{
		uploads: make(map[string]map[string][]byte),
		objects: make(map[string][]byte),
	}
}

func (m *memTransport) UploadDir(ctx context.Context, localDir, remoteURL string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	tree := make(map[string][]byte)
	err := filepath.Walk(localDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return err
	}
	m.uploads[remoteURL] = tree
	return nil
}

func (m *memTransport) PutObject(ctx context.Context, remoteURL string, payload []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[remoteURL] = payload
	return nil
}

func (m *memTransport) List(ctx context.Context, remoteURL string) ([]remote.Entry, error) {
	return m.entries, nil
}

func (m *memTransport) RemoveAll(ctx context.Context, remoteURL string) error {
	m.removed = append(m.removed, remoteURL)
	return nil
}

type memCatalog struct {
	runs   []*catalog.Run
	nextID int64
}

func (m *memCatalog) Init() error { return nil }

func (m *memCatalog) StartRun(kind, snapshot string) (int64, error) {
	m.nextID++
	m.runs = append(m.runs, &catalog.Run{ID: m.nextID, Kind: kind, Snapshot: snapshot, Status: catalog.StatusRunning})
	return m.nextID, nil
}

func (m *memCatalog) FinishRun(id int64, stage, status, errText string) error {
	for _, run := range m.runs {
		if run.ID == id {
			run.Stage = stage
			run.Status = status
			run.Error = errText
		}
	}
	return nil
}

func (m *memCatalog) Runs() ([]*catalog.Run, error) { return m.runs, nil }

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testOrchestrator(dumper *fakeDumper, loader *fakeLoader, transport *memTransport) (*Orchestrator, *memCatalog) {
	cat := &memCatalog{}
	return &Orchestrator{
		Dumper:    dumper,
		Loader:    loader,
		Transport: transport,
		Catalog:   cat,
		Now:       func() time.Time { return testNow },
	}, cat
}

func testBackupParams(root string) BackupParams {
	return BackupParams{
		Root:       root,
		RemoteBase: "https://store/base",
		KeepDays:   7,
		Dump: dump.DumpOptions{
			Connection: dump.Connection{Host: "db.example.com", Port: 3306, User: "dumper"},
			Threads:    4,
			ChunkMB:    64,
		},
	}
}

func TestBackupEndToEnd(t *testing.T) {
	root := t.TempDir()

	// stale leftovers from an earlier run must be gone before the dump starts
	slotPath := slot.Path(root)
	require.NoError(t, os.MkdirAll(slotPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(slotPath, "stale.sql.gz"), []byte("old"), 0644))

	dumper := &fakeDumper{files: map[string][]byte{
		"orders.00001.sql.gz": make([]byte, 10),
		"orders-schema.sql":   make([]byte, 20),
		"metadata":            make([]byte, 30),
	}}
	transport := newMemTransport()
	expired := snapname.Format(testNow.AddDate(0, 0, -10))
	transport.entries = []remote.Entry{
		{Name: expired, Dir: true},
		{Name: snapname.Format(testNow.AddDate(0, 0, -7)), Dir: true},
	}
	orch, cat := testOrchestrator(dumper, nil, transport)

	require.NoError(t, orch.Backup(context.Background(), testBackupParams(root)))

	assert.True(t, dumper.sawEmptySlot, "slot must be empty when the dump producer starts")

	name := snapname.Format(testNow)
	dest := "https://store/base/" + name
	tree, ok := transport.uploads[dest]
	require.True(t, ok, "snapshot must be uploaded under the formatted run instant")

	manifest, ok := tree[slot.ManifestName]
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf(
		"%s  metadata\n%s  orders-schema.sql\n%s  orders.00001.sql.gz\n",
		digestOf(make([]byte, 30)), digestOf(make([]byte, 20)), digestOf(make([]byte, 10)),
	), string(manifest))

	meta, ok := transport.objects[dest+"/"+MetadataName]
	require.True(t, ok)
	assert.JSONEq(t, `{"timestamp":"`+name+`","source_host":"db.example.com","threads":4,"chunk_mb":64}`, string(meta))

	// inline sweep pruned only the expired snapshot, the boundary one stays
	assert.Equal(t, []string{"https://store/base/" + expired}, transport.removed)

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusSuccess, cat.runs[0].Status)
	assert.Equal(t, StageDone, cat.runs[0].Stage)
	assert.Equal(t, name, cat.runs[0].Snapshot)

	// the lock is free again
	handle, err := lock.Acquire(root)
	require.NoError(t, err)
	handle.Release()
}

func TestBackupDumpFailureReleasesLock(t *testing.T) {
	root := t.TempDir()
	dumper := &fakeDumper{err: errors.New("exit status 1")}
	transport := newMemTransport()
	orch, cat := testOrchestrator(dumper, nil, transport)

	err := orch.Backup(context.Background(), testBackupParams(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageDump)

	assert.Empty(t, transport.uploads)
	_, statErr := os.Stat(filepath.Join(slot.Path(root), slot.ManifestName))
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusFailure, cat.runs[0].Status)
	assert.Equal(t, StageDump, cat.runs[0].Stage)

	handle, err := lock.Acquire(root)
	require.NoError(t, err)
	handle.Release()
}

func TestBackupUploadFailureKeepsSlot(t *testing.T) {
	root := t.TempDir()
	dumper := &fakeDumper{files: map[string][]byte{"orders.sql": []byte("data")}}
	transport := newMemTransport()
	transport.uploadErr = errors.New("network unreachable")
	orch, _ := testOrchestrator(dumper, nil, transport)

	err := orch.Backup(context.Background(), testBackupParams(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageUpload)

	// the dump and its manifest survive for a re-run
	_, statErr := os.Stat(filepath.Join(slot.Path(root), "orders.sql"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(slot.Path(root), slot.ManifestName))
	assert.NoError(t, statErr)
}

func TestBackupFailsWhenLockHeld(t *testing.T) {
	root := t.TempDir()
	handle, err := lock.Acquire(root)
	require.NoError(t, err)
	defer handle.Release()

	dumper := &fakeDumper{}
	orch, _ := testOrchestrator(dumper, nil, newMemTransport())

	err = orch.Backup(context.Background(), testBackupParams(root))
	assert.True(t, errors.Is(err, lock.ErrLockHeld))
	assert.False(t, dumper.called)
}

func TestRestoreEndToEnd(t *testing.T) {
	root := t.TempDir()
	slotPath := slot.Path(root)
	require.NoError(t, os.MkdirAll(slotPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(slotPath, "orders.sql"), []byte("data"), 0644))

	loader := &fakeLoader{}
	orch, cat := testOrchestrator(nil, loader, newMemTransport())

	var confirmedPath string
	orch.Confirm = func(host, snapshot string) (bool, error) {
		confirmedPath = snapshot
		return true, nil
	}

	params := RestoreParams{
		Root: root,
		Load: dump.LoadOptions{
			Connection: dump.Connection{Host: "db.example.com", Port: 3306, User: "loader"},
			Threads:    4,
		},
	}
	require.NoError(t, orch.Restore(context.Background(), params))

	assert.True(t, loader.called)
	assert.Equal(t, slotPath, loader.gotOpts.SourceDir)
	assert.Equal(t, slotPath, confirmedPath)

	// restore reads the slot, it never clears it
	_, statErr := os.Stat(filepath.Join(slotPath, "orders.sql"))
	assert.NoError(t, statErr)

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusSuccess, cat.runs[0].Status)
}

func TestRestoreUsesOverridePath(t *testing.T) {
	root := t.TempDir()
	override := t.TempDir()

	loader := &fakeLoader{}
	orch, _ := testOrchestrator(nil, loader, newMemTransport())

	params := RestoreParams{Root: root, SnapshotDir: override}
	require.NoError(t, orch.Restore(context.Background(), params))
	assert.Equal(t, override, loader.gotOpts.SourceDir)
}

func TestRestoreMissingSlot(t *testing.T) {
	root := t.TempDir()
	loader := &fakeLoader{}
	orch, cat := testOrchestrator(nil, loader, newMemTransport())

	err := orch.Restore(context.Background(), RestoreParams{Root: root})
	assert.True(t, errors.Is(err, slot.ErrSnapshotNotFound))
	assert.False(t, loader.called)

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusFailure, cat.runs[0].Status)

	// nothing beyond lock acquire/release happened, the lock is free again
	handle, err := lock.Acquire(root)
	require.NoError(t, err)
	handle.Release()
}

func TestRestoreDeclinedConfirmation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(slot.Path(root), 0755))

	loader := &fakeLoader{}
	orch, cat := testOrchestrator(nil, loader, newMemTransport())
	orch.Confirm = func(host, snapshot string) (bool, error) { return false, nil }

	require.NoError(t, orch.Restore(context.Background(), RestoreParams{Root: root}))
	assert.False(t, loader.called)

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusAborted, cat.runs[0].Status)
}

func TestSweepFailsWhenLockHeld(t *testing.T) {
	root := t.TempDir()
	handle, err := lock.Acquire(root)
	require.NoError(t, err)
	defer handle.Release()

	orch, _ := testOrchestrator(nil, nil, newMemTransport())

	_, err = orch.Sweep(context.Background(), SweepParams{Root: root, RemoteBase: "https://store/base", KeepDays: 7})
	assert.True(t, errors.Is(err, lock.ErrLockHeld))
}

func TestSweepStandalone(t *testing.T) {
	root := t.TempDir()
	transport := newMemTransport()
	expired := snapname.Format(testNow.AddDate(0, 0, -30))
	transport.entries = []remote.Entry{
		{Name: expired, Dir: true},
		{Name: snapname.Format(testNow.AddDate(0, 0, -1)), Dir: true},
	}
	orch, cat := testOrchestrator(nil, nil, transport)

	report, err := orch.Sweep(context.Background(), SweepParams{Root: root, RemoteBase: "https://store/base", KeepDays: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, []string{"https://store/base/" + expired}, transport.removed)

	require.Len(t, cat.runs, 1)
	assert.Equal(t, catalog.StatusSuccess, cat.runs[0].Status)
}
