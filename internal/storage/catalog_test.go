package storage

import (
	"errors"
	"os"
	"testing"
)

func createVersion(t *testing.T, c *Catalog, version string) {
	t.Helper()
	s, err := c.Create(version)
	if err != nil {
		t.Fatalf("Create(%s): %v", version, err)
	}
	s.Close()
}

func TestCatalogPublishAndCurrent(t *testing.T) {
	c := NewCatalog(t.TempDir())

	if _, err := c.Current(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current() err = %v, want ErrNotFound", err)
	}

	v := c.NewVersion()
	createVersion(t, c, v)
	if err := c.Publish(v); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := c.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != v {
		t.Errorf("Current() = %q, want %q", got, v)
	}

	s, err := c.Open(v)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
}

func TestCatalogPublishMissingVersion(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if err := c.Publish("does-not-exist"); err == nil {
		t.Fatal("expected error publishing a missing version")
	}
}

func TestCatalogPruneKeepsCurrent(t *testing.T) {
	c := NewCatalog(t.TempDir())
	versions := []string{"20240101T000000Z-a", "20240102T000000Z-b", "20240103T000000Z-c", "20240104T000000Z-d"}
	for _, v := range versions {
		createVersion(t, c, v)
	}
	// Publish an old version: it must survive pruning.
	if err := c.Publish(versions[0]); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	removed, err := c.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != versions[1] {
		t.Errorf("removed = %v, want [%s]", removed, versions[1])
	}

	left, err := c.Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	want := []string{versions[0], versions[2], versions[3]}
	if len(left) != len(want) {
		t.Fatalf("Versions() = %v, want %v", left, want)
	}
	for i := range want {
		if left[i] != want[i] {
			t.Errorf("Versions()[%d] = %q, want %q", i, left[i], want[i])
		}
	}
	if _, err := os.Stat(c.Path(versions[1])); !os.IsNotExist(err) {
		t.Errorf("pruned snapshot still on disk: %v", err)
	}
}

func TestNewVersionUnique(t *testing.T) {
	c := NewCatalog(t.TempDir())
	a, b := c.NewVersion(), c.NewVersion()
	if a == b {
		t.Errorf("NewVersion returned %q twice", a)
	}
}
