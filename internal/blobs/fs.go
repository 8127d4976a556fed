package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FSTarget writes into <Root>/<namespace>/<rel> on the local filesystem.
type FSTarget struct {
	Root string
}

func (t FSTarget) Name() string { return t.Root }

func (t FSTarget) path(ns, rel string) string {
	return filepath.Join(t.Root, ns, rel)
}

func (t FSTarget) Has(_ context.Context, ns, rel string, size int64) (bool, error) {
	info, err := os.Stat(t.path(ns, rel))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() == size, nil
}

// Put writes through a temporary file so readers never see a partial copy.
// Mode and modification time follow the source.
func (t FSTarget) Put(_ context.Context, ns, rel, src string) error {
	dst := t.path(ns, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fdsync-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmp.Name(), info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
