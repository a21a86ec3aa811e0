// Package fileutil holds small filesystem helpers.
package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// maxSymlinkHops bounds dangling symlink chains, matching the kernel's ELOOP limit.
const maxSymlinkHops = 40

// WriteAtomic streams fn's output to dst and returns the number of bytes
// fn wrote.
//
// Regular files (and paths that do not exist yet) are written to a
// temporary file next to the destination that is renamed over it only when
// fn, the flush and the close all succeed; on failure dst is left untouched.
// A symlink at dst is followed so its target is replaced and the link kept.
// Existing destinations that are not regular files, such as named pipes or
// devices, cannot be renamed over and are opened and written in place.
func WriteAtomic(dst string, mode os.FileMode, fn func(io.Writer) error) (int64, error) {
	target, err := resolveTarget(dst)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(target)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return writeInPlace(target, fn)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return 0, err
	}

	n, err := replace(target, mode, fn)
	if errors.Is(err, fs.ErrPermission) && info != nil {
		// The directory refuses new entries but the file itself may still be writable.
		return writeInPlace(target, fn)
	}
	return n, err
}

// resolveTarget follows symlinks at dst. A dangling link resolves to the
// path it points at so the write creates the link target.
func resolveTarget(dst string) (string, error) {
	path := dst
	for range maxSymlinkHops {
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&fs.ModeSymlink == 0 {
			return path, nil
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return resolved, nil
		}
		link, err := os.Readlink(path)
		if err != nil {
			return "", fmt.Errorf("read link %s: %w", path, err)
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(path), link)
		}
		path = link
	}
	return "", fmt.Errorf("resolve %s: too many levels of symbolic links", dst)
}

func replace(dst string, mode os.FileMode, fn func(io.Writer) error) (written int64, err error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	counter := &countingWriter{w: tmp}
	buffered := bufio.NewWriter(counter)
	if err = fn(buffered); err != nil {
		return counter.n, err
	}
	if err = buffered.Flush(); err != nil {
		return counter.n, fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return counter.n, fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return counter.n, fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return counter.n, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}

func writeInPlace(dst string, fn func(io.Writer) error) (int64, error) {
	file, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return 0, err
	}
	counter := &countingWriter{w: file}
	buffered := bufio.NewWriter(counter)
	if err := fn(buffered); err != nil {
		_ = file.Close()
		return counter.n, err
	}
	if err := buffered.Flush(); err != nil {
		_ = file.Close()
		return counter.n, fmt.Errorf("flush %s: %w", dst, err)
	}
	if err := file.Close(); err != nil {
		return counter.n, fmt.Errorf("close %s: %w", dst, err)
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
