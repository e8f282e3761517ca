package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"t0ast.cc/ffprofile/internal/config"
	"t0ast.cc/ffprofile/internal/shutdown"
	"t0ast.cc/ffprofile/profile"
	ustring "t0ast.cc/ffprofile/util/string"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", ustring.TrimIndentation(`
		preferences:
		  urlclassifier.updateinterval: 172800
		  browser.startup.homepage: "about:blank"
		  devtools.debugger.remote-enabled: true
		extensions:
		  - extensions/foobar@t0ast.cc.xpi
		proxy:
		  proxyType: manual
		  httpProxy: proxy.example:8080
		nativeEvents: false
	`))

	cfg, cfgDir, err := config.ReadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfgDir)
	assert.Equal(t, map[string]any{
		"urlclassifier.updateinterval":     172800,
		"browser.startup.homepage":         "about:blank",
		"devtools.debugger.remote-enabled": true,
	}, cfg.Preferences)
	assert.Equal(t, []string{"extensions/foobar@t0ast.cc.xpi"}, cfg.Extensions)
	require.NotNil(t, cfg.Proxy)
	assert.Equal(t, profile.ProxyManual, cfg.Proxy.Type)
	assert.Equal(t, "proxy.example:8080", cfg.Proxy.HTTPProxy)
	require.NotNil(t, cfg.NativeEvents)
	assert.False(t, *cfg.NativeEvents)
	assert.Nil(t, cfg.AcceptUntrustedCerts)
}

func TestReadConfigurationJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.json", `{"preferences": {"a.b": 1}, "extensions": []}`)

	cfg, _, err := config.ReadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a.b": 1}, cfg.Preferences)
}

func TestReadConfigurationErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		desc string
		path string
	}{
		{desc: "missing file", path: filepath.Join(dir, "missing.yaml")},
		{desc: "unknown key", path: writeConfig(t, dir, "typo.yaml", "preference:\n  a.b: 1\n")},
		{desc: "malformed", path: writeConfig(t, dir, "bad.yaml", "preferences: [unclosed\n")},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, _, err := config.ReadConfiguration(test.path)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	empty := writeConfig(t, dir, "empty.yaml", "")
	home := writeConfig(t, dir, "home.yaml", "extensions: [home.xpi]\n")
	etc := writeConfig(t, dir, "etc.yaml", "extensions: [etc.xpi]\n")
	missing := filepath.Join(dir, "missing.yaml")

	t.Run("explicit file wins", func(t *testing.T) {
		cfg, _, err := config.Load(empty, []string{home, etc})
		require.NoError(t, err)
		assert.Empty(t, cfg.Extensions)
	})

	t.Run("first existing fallback", func(t *testing.T) {
		cfg, cfgDir, err := config.Load("", []string{missing, home, etc})
		require.NoError(t, err)
		assert.Equal(t, []string{"home.xpi"}, cfg.Extensions)
		assert.Equal(t, dir, cfgDir)
	})

	t.Run("no file at all", func(t *testing.T) {
		cfg, cfgDir, err := config.Load("", []string{missing})
		require.NoError(t, err)
		assert.Equal(t, config.Configuration{}, cfg)
		assert.NotEmpty(t, cfgDir)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := config.Load(missing, []string{home})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestApply(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	hooks := shutdown.New(shutdown.WithSignals())
	p, err := profile.New(profile.Options{Logger: zap.NewNop(), Hooks: hooks})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Delete() })

	cfgDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cfgDir, "extensions", "ext"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfgDir, "extensions", "ext", "manifest.json"),
		[]byte(`{"browser_specific_settings": {"gecko": {"id": "ext@example.com"}}}`),
		0o644,
	))

	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "userChrome.css"), []byte("#TabsToolbar {}"), 0o644))

	accept := true
	results, err := config.Apply(context.Background(), p, config.Configuration{
		UserChrome:           "userChrome.css",
		Preferences:          map[string]any{"a.int": 5, "a.string": "s", "a.float": 2.0},
		Extensions:           []string{"extensions/ext", "extensions/missing.xpi"},
		Proxy:                &profile.ProxySettings{Type: profile.ProxySystem},
		AcceptUntrustedCerts: &accept,
	}, cfgDir)
	require.NoError(t, err)

	v, _ := p.Preferences().Get("a.int")
	assert.Equal(t, profile.Int(5), v)
	v, _ = p.Preferences().Get("a.float")
	assert.Equal(t, profile.Int(2), v)
	v, _ = p.Preferences().Get("network.proxy.type")
	assert.Equal(t, profile.Int(3), v)
	assert.True(t, p.AcceptUntrustedCerts())
	v, _ = p.Preferences().Get("toolkit.legacyUserProfileCustomizations.stylesheets")
	assert.Equal(t, profile.Bool(true), v)
	css, err := os.ReadFile(filepath.Join(p.Path(), "chrome", "userChrome.css"))
	require.NoError(t, err)
	assert.Equal(t, "#TabsToolbar {}", string(css))

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, filepath.Join(cfgDir, "extensions", "ext"), results[0].Source)
	assert.ErrorIs(t, results[1].Err, profile.ErrNotFound)
	assert.DirExists(t, filepath.Join(p.ExtensionsDir(), "ext@example.com"))
}

func TestApplyRejectsUnsupportedPreference(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	p, err := profile.New(profile.Options{Logger: zap.NewNop(), Hooks: shutdown.New(shutdown.WithSignals())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Delete() })

	_, err = config.Apply(context.Background(), p, config.Configuration{
		Preferences: map[string]any{"a.list": []any{1, 2}},
	}, "")
	assert.ErrorIs(t, err, profile.ErrValidation)
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		desc      string
		in        string
		wantKey   string
		wantValue profile.Value
		wantErr   bool
	}{
		{desc: "integer", in: "a.b=1", wantKey: "a.b", wantValue: profile.Int(1)},
		{desc: "boolean", in: "a.b=false", wantKey: "a.b", wantValue: profile.Bool(false)},
		{desc: "quoted string", in: `a.b="1"`, wantKey: "a.b", wantValue: profile.String("1")},
		{desc: "bare string", in: "a.b=about:blank", wantKey: "a.b", wantValue: profile.String("about:blank")},
		{desc: "value with equals sign", in: "a.b=x=y", wantKey: "a.b", wantValue: profile.String("x=y")},
		{desc: "empty value", in: "a.b=", wantKey: "a.b", wantValue: profile.String("")},
		{desc: "missing equals sign", in: "a.b", wantErr: true},
		{desc: "missing key", in: "=1", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			key, value, err := config.ParseAssignment(test.in)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantKey, key)
			assert.Equal(t, test.wantValue, value)
		})
	}
}
