package io

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileModeURWGRWO is the bitmask for the Unix permission flags
// `u=rw,g=rw,o=`.
var FileModeURWGRWO os.FileMode = 0660

// FileModeURWXGRWXO is the bitmask for the Unix permission flags
// `u=rwx,g=rwx,o=`.
var FileModeURWXGRWXO os.FileMode = 0770

// DirExists returns if a directory exists at the given path, following symlinks.
func DirExists(name string) (bool, error) {
	stat, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return stat.IsDir(), nil
}

// FileExists returns if a file exists at the given path, following symlinks.
func FileExists(name string) (bool, error) {
	stat, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !stat.IsDir(), nil
}

// CopyFile copies the `src` file to `dst`, replacing `dst` if it
// exists. The permissions of `src` are kept.
func CopyFile(src, dst string) error {
	fileInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyDirFile(src, dst, fileInfo)
}

// CopyOption customizes CopyDir.
type CopyOption func(*copyOptions)

type copyOptions struct {
	skip func(relPath string, d fs.DirEntry) bool
}

// SkipNames makes CopyDir leave out every entry whose base name is
// one of the given names. Skipped directories are not descended into.
func SkipNames(names ...string) CopyOption {
	return func(o *copyOptions) {
		prev := o.skip
		o.skip = func(relPath string, d fs.DirEntry) bool {
			if prev != nil && prev(relPath, d) {
				return true
			}
			for _, name := range names {
				if d.Name() == name {
					return true
				}
			}
			return false
		}
	}
}

// CopyDir copies all files in the `src` directory into `dst`,
// preserving permissions. Symlinks are recreated, not followed.
func CopyDir(src, dst string, opts ...CopyOption) error {
	var o copyOptions
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if relPath != "." && o.skip != nil && o.skip(relPath, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		dstPath := filepath.Join(dst, relPath)
		fileInfo, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(dstPath, fileInfo.Mode().Perm()|0700)
		case fileInfo.Mode()&fs.ModeSymlink != 0:
			return copySymlink(path, dstPath)
		case fileInfo.Mode().IsRegular():
			return copyDirFile(path, dstPath, fileInfo)
		default:
			// sockets, pipes and devices have no meaning in a copy
			return nil
		}
	})
}

func copySymlink(path, dst string) error {
	target, err := os.Readlink(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(target, dst)
}

func copyDirFile(path, dst string, fileInfo fs.FileInfo) error {
	srcFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
