package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	snapshotDir  = "snapshots"
	snapshotExt  = ".db"
	currentFile  = "CURRENT"
	versionStamp = "20060102T150405Z"
)

// Catalog manages versioned snapshot databases under a data directory:
//
//	<dir>/snapshots/<version>.db
//	<dir>/CURRENT
//
// A new ingestion writes a new version and then publishes it by rewriting
// CURRENT. Published snapshots are never modified.
type Catalog struct {
	dir string
}

func NewCatalog(dataDir string) *Catalog {
	return &Catalog{dir: dataDir}
}

// NewVersion returns a fresh version name. Versions sort by creation time.
func (c *Catalog) NewVersion() string {
	return time.Now().UTC().Format(versionStamp) + "-" + uuid.NewString()[:8]
}

// Path returns the database file for version.
func (c *Catalog) Path(version string) string {
	return filepath.Join(c.dir, snapshotDir, version+snapshotExt)
}

// Create creates the writable database for a new version.
func (c *Catalog) Create(version string) (*Store, error) {
	return Create(c.Path(version))
}

// Open opens a published version read-only.
func (c *Catalog) Open(version string) (*Store, error) {
	return OpenReadOnly(c.Path(version))
}

// Publish atomically points CURRENT at version.
func (c *Catalog) Publish(version string) error {
	if _, err := os.Stat(c.Path(version)); err != nil {
		return fmt.Errorf("publishing %s: %w", version, err)
	}
	tmp, err := os.CreateTemp(c.dir, currentFile+".*")
	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStoreUnavailable, currentFile, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(version + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", currentFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", currentFile, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, currentFile)); err != nil {
		return fmt.Errorf("publishing %s: %w", version, err)
	}
	return nil
}

// Current returns the published version, or ErrNotFound if nothing has been
// published yet.
func (c *Catalog) Current() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, currentFile))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", currentFile, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Versions lists every snapshot on disk, oldest first.
func (c *Catalog) Versions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, snapshotDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), snapshotExt))
	}
	sort.Strings(versions)
	return versions, nil
}

// Discard deletes an unpublished version, e.g. after a failed ingestion.
func (c *Catalog) Discard(version string) error {
	p := c.Path(version)
	for _, f := range []string{p, p + "-journal", p + "-wal", p + "-shm"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("discarding snapshot %s: %w", version, err)
		}
	}
	return nil
}

// Prune removes all but the newest keep snapshots. The published version is
// always kept. It returns the removed versions.
func (c *Catalog) Prune(keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	versions, err := c.Versions()
	if err != nil {
		return nil, err
	}
	current, err := c.Current()
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	var removed []string
	for i := 0; i < len(versions)-keep; i++ {
		v := versions[i]
		if v == current {
			continue
		}
		if err := c.Discard(v); err != nil {
			return removed, err
		}
		removed = append(removed, v)
	}
	return removed, nil
}
