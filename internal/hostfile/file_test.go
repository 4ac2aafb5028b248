package hostfile_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
	"github.com/rcore-os/rCore-Tutorial/internal/hostfile"
)

func TestReadWriteAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := hostfile.Create(path, 4096)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	var inode fsnode.INode = f

	want := []byte("hello, kernel")
	if _, err := inode.WriteAt(10, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := inode.ReadAt(10, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	root, err := hostfile.Create(filepath.Join(dir, "root"), 0)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	defer root.Close()

	sibling, err := hostfile.Create(filepath.Join(dir, "sibling"), 16)
	if err != nil {
		t.Fatalf("create sibling: %v", err)
	}
	sibling.Close()

	found, err := root.Find("sibling")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	defer found.(*hostfile.File).Close()
}
