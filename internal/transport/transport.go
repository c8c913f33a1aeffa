// Package transport moves import files between the remote drop area and
// local storage. Remote paths are slash-separated.
package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Transport is the set of remote file operations the import run needs.
type Transport interface {
	// List returns the names of the regular files in dir.
	List(ctx context.Context, dir string) ([]string, error)
	// Download copies the remote file to localPath.
	Download(ctx context.Context, remotePath, localPath string) error
	// Remove deletes the remote file.
	Remove(ctx context.Context, remotePath string) error
	// Upload copies localPath to the remote file.
	Upload(ctx context.Context, localPath, remotePath string) error
	Close() error
}

var (
	_ Transport = (*Dir)(nil)
	_ Transport = (*SFTP)(nil)
)

// copyToFile writes r to path through a temporary file in the same
// directory, so a partial download never appears under the final name.
func copyToFile(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving %s into place: %w", path, err)
	}
	return nil
}
