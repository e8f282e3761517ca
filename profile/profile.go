// Package profile creates and manages throwaway Firefox profiles for
// automated testing.
//
// A Profile owns a directory containing a user.js preference file and
// an extensions directory. Profiles created without an explicit
// destination live in a fresh temporary directory that is removed when
// the profile is deleted, when the process exits through
// shutdown.Run, or when the process is interrupted.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"t0ast.cc/ffprofile/internal/manifest"
	"t0ast.cc/ffprofile/internal/shutdown"
	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

const (
	// UserPrefsFileName is the preference file Firefox merges into
	// prefs.js on every start.
	UserPrefsFileName = "user.js"
	// ExtensionsDirName is the directory Firefox sideloads extensions
	// from.
	ExtensionsDirName = "extensions"

	freshTempPattern = "firefox-profile*"
	copyTempPattern  = "copy-*"
)

// lockFiles are held by a running Firefox and must not be copied into
// a new profile.
var lockFiles = []string{"lock", "parent.lock", ".parentlock"}

// ManifestReader returns the identity of the extension package at
// path. Only the ID, Name, Version, Unpack and IsNative fields are
// used.
type ManifestReader func(path string) (Extension, error)

// ReadManifest is the default ManifestReader.
func ReadManifest(path string) (Extension, error) {
	d, err := manifest.Read(path)
	if err != nil {
		return Extension{}, err
	}
	return Extension{
		ID:       d.ID,
		Name:     d.Name,
		Version:  d.Version,
		Unpack:   d.Unpack,
		IsNative: d.IsNative,
	}, nil
}

// Options configures New and Copy.
type Options struct {
	// SourceDirectory is an existing profile whose contents are
	// copied into the new one.
	SourceDirectory string
	// DestinationDirectory is used as the profile directory instead
	// of a fresh temporary directory. Profiles with an explicit
	// destination are not deleted on exit.
	DestinationDirectory string

	Logger       *zap.Logger
	Hooks        *shutdown.Registry
	ReadManifest ManifestReader
}

// Profile is a profile directory and its preference store. A Profile
// must not be used concurrently, except for InstallExtensions.
type Profile struct {
	dir           string
	extensionsDir string
	userPrefsPath string
	deleteOnExit  atomic.Bool

	prefs        *Preferences
	logger       *zap.Logger
	hooks        *shutdown.Registry
	hook         shutdown.Handle
	readManifest ManifestReader
	installLocks keyedMutex
}

// New creates a profile. Without a SourceDirectory the profile starts
// empty apart from an existing user.js at the destination, which is
// loaded.
func New(opts Options) (*Profile, error) {
	p := &Profile{
		prefs:        NewPreferences(),
		logger:       opts.Logger,
		hooks:        opts.Hooks,
		readManifest: opts.ReadManifest,
	}
	if p.logger == nil {
		p.logger = zap.L().Named("profile")
	}
	if p.hooks == nil {
		p.hooks = shutdown.Default
	}
	if p.readManifest == nil {
		p.readManifest = ReadManifest
	}

	dir, isTemp, err := prepareDir(opts)
	if err != nil {
		return nil, err
	}
	discard := func() {
		if !isTemp {
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("Failed to remove temporary directory of unusable profile", zap.String("dir", dir), zap.Error(err))
		}
	}

	if opts.SourceDirectory != "" {
		if err := copySource(opts.SourceDirectory, dir); err != nil {
			discard()
			return nil, err
		}
	}

	p.dir = dir
	p.extensionsDir = filepath.Join(dir, ExtensionsDirName)
	p.userPrefsPath = filepath.Join(dir, UserPrefsFileName)
	p.deleteOnExit.Store(opts.DestinationDirectory == "")

	userPrefsExist, err := uio.FileExists(p.userPrefsPath)
	if err != nil {
		discard()
		return nil, newError(ErrIO, "inspect", p.userPrefsPath, err)
	}
	if userPrefsExist {
		if err := p.prefs.Load(p.userPrefsPath); err != nil {
			discard()
			return nil, err
		}
	}

	p.hook = p.hooks.Register("profile "+dir, p.cleanUpOnExit)
	p.logger.Debug("Created profile",
		zap.String("dir", dir),
		zap.String("source", opts.SourceDirectory),
		zap.Bool("deleteOnExit", p.DeleteOnExit()),
		zap.Bool("loadedUserPrefs", userPrefsExist),
	)
	return p, nil
}

// Copy creates a profile from the contents of opts.SourceDirectory,
// which is required.
func Copy(opts Options) (*Profile, error) {
	if opts.SourceDirectory == "" {
		return nil, newError(ErrValidation, "copy profile", "", errors.New("missing source directory"))
	}
	return New(opts)
}

func prepareDir(opts Options) (dir string, isTemp bool, err error) {
	if opts.DestinationDirectory != "" {
		dir, err := filepath.Abs(opts.DestinationDirectory)
		if err != nil {
			return "", false, newError(ErrDirectory, "resolve", opts.DestinationDirectory, err)
		}
		if opts.SourceDirectory != "" {
			if err := checkNotNested(opts.SourceDirectory, dir); err != nil {
				return "", false, err
			}
		}
		if err := os.MkdirAll(dir, uio.FileModeURWXGRWXO); err != nil {
			return "", false, newError(ErrDirectory, "create", dir, err)
		}
		return dir, false, nil
	}

	pattern := freshTempPattern
	if opts.SourceDirectory != "" {
		pattern = copyTempPattern
	}
	dir, err = os.MkdirTemp("", pattern)
	if err != nil {
		return "", false, newError(ErrDirectory, "create temporary directory", os.TempDir(), err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir, true, nil
}

// checkNotNested rejects copying a profile onto itself or into one of
// its own subdirectories.
func checkNotNested(src, dst string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return newError(ErrDirectory, "resolve", src, err)
	}
	rel, err := filepath.Rel(absSrc, dst)
	if err == nil && (rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))) {
		return newError(ErrValidation, "copy profile", src, fmt.Errorf("destination %s is inside the source directory", dst))
	}
	return nil
}

func copySource(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return newError(ErrDirectory, "copy profile from", src, err)
	}
	if !info.IsDir() {
		return newError(ErrDirectory, "copy profile from", src, fmt.Errorf("not a directory"))
	}
	if err := uio.CopyDir(src, dst, uio.SkipNames(lockFiles...)); err != nil {
		return newError(ErrDirectory, "copy profile from", src, err)
	}
	return nil
}

// Path returns the absolute profile directory.
func (p *Profile) Path() string {
	return p.dir
}

// ExtensionsDir returns the directory extensions are installed into.
func (p *Profile) ExtensionsDir() string {
	return p.extensionsDir
}

// UserPrefsPath returns the path of the profile's user.js.
func (p *Profile) UserPrefsPath() string {
	return p.userPrefsPath
}

// DeleteOnExit reports whether the directory is removed when the
// process exits or is interrupted.
func (p *Profile) DeleteOnExit() bool {
	return p.deleteOnExit.Load()
}

// SetDeleteOnExit overrides whether the directory is removed when the
// process exits or is interrupted.
func (p *Profile) SetDeleteOnExit(deleteOnExit bool) {
	p.deleteOnExit.Store(deleteOnExit)
}

// Delete removes the profile directory. It can be called any number
// of times and regardless of DeleteOnExit. If removal fails, the exit
// hook stays registered.
func (p *Profile) Delete() error {
	if err := os.RemoveAll(p.dir); err != nil {
		return newError(ErrDirectory, "remove", p.dir, err)
	}
	p.hooks.Deregister(p.hook)
	p.logger.Debug("Deleted profile", zap.String("dir", p.dir))
	return nil
}

func (p *Profile) cleanUpOnExit() error {
	if !p.DeleteOnExit() {
		return nil
	}
	if err := os.RemoveAll(p.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return uerror.WithStackTrace(err)
	}
	p.logger.Debug("Removed profile on exit", zap.String("dir", p.dir))
	return nil
}

// Preferences returns the profile's preference store.
func (p *Profile) Preferences() *Preferences {
	return p.prefs
}

// SetPreference sets a preference. It is written to user.js by the
// next UpdatePreferences.
func (p *Profile) SetPreference(key string, value Value) error {
	return p.prefs.Set(key, value)
}

// UpdatePreferences writes the preference store to user.js if it was
// modified.
func (p *Profile) UpdatePreferences() error {
	return p.prefs.Flush(p.userPrefsPath)
}

// SetProxy translates a proxy configuration into preferences.
func (p *Profile) SetProxy(settings ProxySettings) error {
	return p.prefs.SetProxy(settings)
}

func (p *Profile) boolPref(key string) bool {
	v, _ := p.prefs.Get(key)
	b, _ := v.AsBool()
	return b
}

func (p *Profile) SetNativeEventsEnabled(enabled bool) error {
	return p.prefs.Set(PrefNativeEvents, Bool(enabled))
}

func (p *Profile) NativeEventsEnabled() bool {
	return p.boolPref(PrefNativeEvents)
}

func (p *Profile) SetAcceptUntrustedCerts(accept bool) error {
	return p.prefs.Set(PrefAcceptUntrustedCerts, Bool(accept))
}

func (p *Profile) AcceptUntrustedCerts() bool {
	return p.boolPref(PrefAcceptUntrustedCerts)
}

func (p *Profile) SetAssumeUntrustedIssuer(assume bool) error {
	return p.prefs.Set(PrefAssumeUntrustedIssuer, Bool(assume))
}

func (p *Profile) AssumeUntrustedIssuer() bool {
	return p.boolPref(PrefAssumeUntrustedIssuer)
}
