// Package platform knows where Firefox keeps its profiles on each
// operating system.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Env is the subset of the process environment the lookup depends on.
type Env struct {
	Home    string
	AppData string
	// XDGConfigHome overrides ~/.config on Linux.
	XDGConfigHome string
}

// CurrentEnv reads Env from the running process.
func CurrentEnv() Env {
	home, _ := os.UserHomeDir()
	return Env{
		Home:          home,
		AppData:       os.Getenv("APPDATA"),
		XDGConfigHome: os.Getenv("XDG_CONFIG_HOME"),
	}
}

// UserDirectory returns the directory containing profiles.ini for the
// running OS.
func UserDirectory() (string, error) {
	return UserDirectoryFor(runtime.GOOS, CurrentEnv())
}

// UserDirectoryFor returns the directory containing profiles.ini for
// the given GOOS value.
func UserDirectoryFor(goos string, env Env) (string, error) {
	switch goos {
	case "darwin":
		if env.Home == "" {
			return "", uerror.StackTracef("Cannot determine home directory")
		}
		return filepath.Join(env.Home, "Library", "Application Support", "Firefox"), nil
	case "windows":
		if env.AppData == "" {
			return "", uerror.StackTracef("APPDATA is not set")
		}
		return filepath.Join(env.AppData, "Mozilla", "Firefox"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return linuxDirectory(env)
	default:
		return "", uerror.WithStackTrace(fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos))
	}
}

// linuxDirectory prefers sandboxed installs (snap, flatpak) over the
// classic ~/.mozilla location, and falls back to the XDG location used
// by recent Firefox releases.
func linuxDirectory(env Env) (string, error) {
	if env.Home == "" {
		return "", uerror.StackTracef("Cannot determine home directory")
	}

	candidates := []string{
		filepath.Join(env.Home, "snap/firefox/common/.mozilla/firefox"),
		filepath.Join(env.Home, "snap/firefox/common/.config/mozilla/firefox"),
		filepath.Join(env.Home, ".var/app/org.mozilla.firefox/.mozilla/firefox"),
		filepath.Join(env.Home, ".var/app/org.mozilla.firefox/.config/mozilla/firefox"),
		filepath.Join(env.Home, ".mozilla/firefox"),
	}
	for _, candidate := range candidates {
		exists, err := uio.DirExists(candidate)
		if err != nil {
			return "", uerror.WithStackTrace(err)
		}
		if exists {
			return candidate, nil
		}
	}

	configHome := env.XDGConfigHome
	if configHome == "" {
		configHome = filepath.Join(env.Home, ".config")
	}
	return filepath.Join(configHome, "mozilla/firefox"), nil
}
