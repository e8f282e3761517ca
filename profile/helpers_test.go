package profile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"t0ast.cc/ffprofile/internal/shutdown"
	"t0ast.cc/ffprofile/profile"
)

// testEnv points temporary directories at a per-test directory and
// gives every profile a private hook registry that ignores signals.
type testEnv struct {
	tempDir string
	hooks   *shutdown.Registry
	logs    *observer.ObservedLogs
	logger  *zap.Logger
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("TMPDIR", tempDir)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return testEnv{
		tempDir: tempDir,
		hooks:   shutdown.New(shutdown.WithSignals(), shutdown.WithLogger(logger)),
		logs:    logs,
		logger:  logger,
	}
}

func (e testEnv) options() profile.Options {
	return profile.Options{Logger: e.logger, Hooks: e.hooks}
}

func (e testEnv) newProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.New(e.options())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Delete() })
	return p
}

func webExtensionManifest(id string) string {
	return fmt.Sprintf(`{
  "manifest_version": 2,
  "name": "Test extension",
  "version": "1.0",
  "browser_specific_settings": {"gecko": {"id": %q}}
}`, id)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeExtensionDir creates an unpacked extension and returns its path.
func writeExtensionDir(t *testing.T, parent, name, id string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	writeFile(t, filepath.Join(dir, "manifest.json"), webExtensionManifest(id))
	writeFile(t, filepath.Join(dir, "background.js"), "console.log('hi');\n")
	return dir
}

// writeXPI creates a packed extension and returns its path.
func writeXPI(t *testing.T, parent, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(parent, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
