package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

// PackageExtension is the file extension of packed extensions.
const PackageExtension = ".xpi"

// Extension describes an installed extension.
type Extension struct {
	ID       string
	Name     string
	Version  string
	Unpack   bool
	IsNative bool

	// Source is the package the extension was installed from.
	Source string
	// Path is where the extension was installed to.
	Path string
}

// InstallResult is the outcome of installing one package of a batch.
type InstallResult struct {
	Source    string
	Extension Extension
	Err       error
}

// InstallExtension copies the extension package at source into the
// profile's extensions directory. Directories are installed as
// extensions/<id>, archives as extensions/<id>.xpi; an earlier install
// of the same ID in either form is replaced.
func (p *Profile) InstallExtension(ctx context.Context, source string) (Extension, error) {
	if err := ctx.Err(); err != nil {
		return Extension{}, uerror.WithStackTrace(err)
	}

	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Extension{}, newError(ErrNotFound, "install extension", source, err)
		}
		return Extension{}, newError(ErrIO, "install extension", source, err)
	}
	isDir := info.IsDir()
	if !isDir && !strings.EqualFold(filepath.Ext(source), PackageExtension) {
		return Extension{}, newError(ErrValidation, "install extension", source, fmt.Errorf("not a directory or %s package", PackageExtension))
	}

	ext, err := p.readManifest(source)
	if err != nil {
		return Extension{}, newError(ErrManifest, "install extension", source, err)
	}
	if err := validateID(ext.ID); err != nil {
		return Extension{}, newError(ErrManifest, "install extension", source, err)
	}

	name := ext.ID
	if !isDir {
		name += PackageExtension
	}
	ext.Source = source
	ext.Path = filepath.Join(p.extensionsDir, name)

	unlock := p.installLocks.lock(ext.ID)
	defer unlock()

	if err := p.placeExtension(source, isDir, ext); err != nil {
		return Extension{}, newError(ErrDirectory, "install extension", source, err)
	}

	p.logger.Debug("Installed extension",
		zap.String("id", ext.ID),
		zap.String("version", ext.Version),
		zap.String("path", ext.Path),
	)
	return ext, nil
}

// placeExtension copies the package into a staging directory next to
// its destination first, so a failed copy never leaves a partial
// extension behind.
func (p *Profile) placeExtension(source string, isDir bool, ext Extension) error {
	if err := os.MkdirAll(p.extensionsDir, uio.FileModeURWXGRWXO); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(p.extensionsDir, ".install-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, filepath.Base(ext.Path))
	if isDir {
		err = uio.CopyDir(source, staged)
	} else {
		err = uio.CopyFile(source, staged)
	}
	if err != nil {
		return err
	}

	for _, previous := range []string{
		filepath.Join(p.extensionsDir, ext.ID),
		filepath.Join(p.extensionsDir, ext.ID+PackageExtension),
	} {
		if err := os.RemoveAll(previous); err != nil {
			return err
		}
	}
	return os.Rename(staged, ext.Path)
}

// validateID keeps the destination inside the extensions directory.
func validateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.New("extension ID is empty")
	case id == "." || id == "..", strings.ContainsAny(id, `/\`), strings.ContainsRune(id, 0):
		return fmt.Errorf("extension ID %q is not a valid file name", id)
	}
	return nil
}

// InstallExtensions installs all packages concurrently. A failing
// package does not stop the others; the result for sources[i] is at
// index i.
func (p *Profile) InstallExtensions(ctx context.Context, sources []string) []InstallResult {
	results := make([]InstallResult, len(sources))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, source := range sources {
		g.Go(func() error {
			ext, err := p.InstallExtension(ctx, source)
			results[i] = InstallResult{Source: source, Extension: ext, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// InstallErrors joins the errors of all failed installs, or returns
// nil if every install succeeded.
func InstallErrors(results []InstallResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
