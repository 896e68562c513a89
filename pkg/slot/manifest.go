package slot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ManifestName is the checksum manifest written into the slot after a dump.
const ManifestName = "checksums.sha256"

// dataExtensions covers the files a dump produces: compressed table dumps,
// raw SQL, structured metadata, and plain-text logs/reports.
var dataExtensions = map[string]bool{
	".gz":   true,
	".sql":  true,
	".json": true,
	".txt":  true,
	".log":  true,
}

func isDataFile(name string) bool {
	if name == ManifestName {
		return false
	}
	// mydumper writes its run metadata to a bare "metadata" file
	if name == "metadata" {
		return true
	}
	return dataExtensions[filepath.Ext(name)]
}

// WriteManifest enumerates the data files under dir, sorts their relative
// paths bytewise so the output is reproducible across runs and platforms,
// digests each with SHA-256 and writes the result to ManifestName inside dir
// in sha256sum format. The manifest never lists itself. On any error nothing
// is left behind; a partial manifest is never published.
func WriteManifest(dir string) (string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isDataFile(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enumerating snapshot files: %w", err)
	}

	sort.Strings(files)

	var buf bytes.Buffer
	for _, rel := range files {
		digest, err := hashFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", rel, err)
		}
		fmt.Fprintf(&buf, "%s  %s\n", digest, rel)
	}

	manifest := filepath.Join(dir, ManifestName)
	tmp := manifest + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, manifest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publishing manifest: %w", err)
	}
	return manifest, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
