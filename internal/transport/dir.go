package transport

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Dir serves the remote tree from a local directory. It is used for
// development setups and for tests.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) local(remote string) string {
	return filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+remote)))
}

// List returns the sorted names of regular files in dir. A missing
// directory has no files.
func (d *Dir) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.local(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Download copies the file at remotePath to localPath.
func (d *Dir) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(d.local(remotePath))
	if err != nil {
		return fmt.Errorf("opening %s: %w", remotePath, err)
	}
	defer f.Close()

	return copyToFile(localPath, f)
}

// Remove deletes the file at remotePath.
func (d *Dir) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(d.local(remotePath)); err != nil {
		return fmt.Errorf("removing %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies localPath to remotePath, creating parent directories.
func (d *Dir) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	return copyToFile(d.local(remotePath), f)
}

// Close is a no-op.
func (d *Dir) Close() error {
	return nil
}
