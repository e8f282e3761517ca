// Package config reads the ffprofile configuration file and applies it
// to a profile.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

// Configuration is applied to every profile the CLI creates.
type Configuration struct {
	// Preferences maps preference keys to booleans, integers or
	// strings.
	Preferences map[string]any `yaml:"preferences"`
	// Extensions are package paths, relative to the configuration
	// file's directory unless absolute.
	Extensions []string               `yaml:"extensions"`
	Proxy      *profile.ProxySettings `yaml:"proxy"`
	// UserChrome is a stylesheet copied to chrome/userChrome.css,
	// resolved like Extensions.
	UserChrome string `yaml:"userChrome"`

	NativeEvents          *bool `yaml:"nativeEvents"`
	AcceptUntrustedCerts  *bool `yaml:"acceptUntrustedCerts"`
	AssumeUntrustedIssuer *bool `yaml:"assumeUntrustedIssuer"`
}

// DefaultPaths returns the configuration files consulted when none is
// given explicitly, in order of precedence.
func DefaultPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, uerror.WithStackTrace(err)
	}
	return []string{
		filepath.Join(home, ".config/ffprofile/config.yaml"),
		"/etc/ffprofile/config.yaml",
	}, nil
}

// Load reads the explicit configuration file, or the first existing
// one of fallbacks. It returns the configuration and the directory it
// was read from. Without any file the configuration is empty and dir
// is the working directory.
func Load(explicit string, fallbacks []string) (config Configuration, dir string, err error) {
	if explicit != "" {
		return ReadConfiguration(explicit)
	}

	for _, path := range fallbacks {
		exists, err := uio.FileExists(path)
		if err != nil {
			return Configuration{}, "", uerror.WithStackTrace(err)
		}
		if exists {
			return ReadConfiguration(path)
		}
	}

	dir, err = os.Getwd()
	if err != nil {
		return Configuration{}, "", uerror.WithStackTrace(err)
	}
	return Configuration{}, dir, nil
}

// ReadConfiguration parses a YAML (or JSON) configuration file.
// Unknown keys are rejected so that typos do not go unnoticed.
func ReadConfiguration(configFile string) (config Configuration, configDir string, err error) {
	configBytes, err := os.ReadFile(configFile)
	if err != nil {
		return Configuration{}, "", uerror.WithStackTrace(err)
	}
	configDir, err = filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return Configuration{}, "", uerror.WithStackTrace(err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(configBytes))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Configuration{}, "", uerror.StackTracef("Failed to parse configuration file %s: %w", configFile, err)
	}
	return config, configDir, nil
}

// Apply writes the configuration's preferences to p and installs its
// extensions. Preference errors abort; extension failures are
// reported per package in the returned results.
func Apply(ctx context.Context, p *profile.Profile, config Configuration, configDir string) ([]profile.InstallResult, error) {
	for _, key := range slices.Sorted(maps.Keys(config.Preferences)) {
		value, err := profile.ValueOf(config.Preferences[key])
		if err != nil {
			return nil, uerror.StackTracef("Preference %s: %w", key, err)
		}
		if err := p.SetPreference(key, value); err != nil {
			return nil, err
		}
	}

	if config.Proxy != nil {
		if err := p.SetProxy(*config.Proxy); err != nil {
			return nil, err
		}
	}

	for _, flag := range []struct {
		value *bool
		set   func(bool) error
	}{
		{config.NativeEvents, p.SetNativeEventsEnabled},
		{config.AcceptUntrustedCerts, p.SetAcceptUntrustedCerts},
		{config.AssumeUntrustedIssuer, p.SetAssumeUntrustedIssuer},
	} {
		if flag.value == nil {
			continue
		}
		if err := flag.set(*flag.value); err != nil {
			return nil, err
		}
	}

	if config.UserChrome != "" {
		if err := installUserChrome(p, resolvePath(configDir, config.UserChrome)); err != nil {
			return nil, err
		}
	}

	if len(config.Extensions) == 0 {
		return nil, nil
	}
	sources := make([]string, 0, len(config.Extensions))
	for _, ext := range config.Extensions {
		sources = append(sources, resolvePath(configDir, ext))
	}
	return p.InstallExtensions(ctx, sources), nil
}

// UserChromePath is where Firefox reads the user stylesheet from,
// relative to the profile directory.
const UserChromePath = "chrome/userChrome.css"

func installUserChrome(p *profile.Profile, source string) error {
	dst := filepath.Join(p.Path(), filepath.FromSlash(UserChromePath))
	if err := os.MkdirAll(filepath.Dir(dst), uio.FileModeURWXGRWXO); err != nil {
		return uerror.WithStackTrace(err)
	}
	if err := uio.CopyFile(source, dst); err != nil {
		return uerror.StackTracef("Failed to install %s: %w", source, err)
	}
	// Firefox ignores userChrome.css unless this is set.
	return p.SetPreference("toolkit.legacyUserProfileCustomizations.stylesheets", profile.Bool(true))
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// ParseAssignment parses a "key=value" preference assignment as given
// on the command line. The value is read like a user.js literal; a
// value that is not one is taken as a plain string, so both
// key="text" and key=text set a string.
func ParseAssignment(assignment string) (string, profile.Value, error) {
	key, raw, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", profile.Value{}, uerror.StackTracef("Preference assignment %q is not of the form key=value", assignment)
	}
	if value, err := profile.ParseLiteral(raw); err == nil {
		return key, value, nil
	}
	return key, profile.String(raw), nil
}

// String renders the configuration for debug logging.
func (c Configuration) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%#v", c)
	}
	return string(out)
}
