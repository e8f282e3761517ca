package io_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uio "t0ast.cc/ffprofile/util/io"
)

type testDirFileInfo struct {
	IsDir bool
	Perms os.FileMode
}

func fromFileInfo(fileInfo os.FileInfo) testDirFileInfo {
	return testDirFileInfo{
		IsDir: fileInfo.IsDir(),
		Perms: fileInfo.Mode().Perm(),
	}
}

type testDir struct {
	baseInfo testDirFileInfo

	aContent []byte
	aInfo    testDirFileInfo

	bInfo testDirFileInfo

	cContent []byte
	cInfo    testDirFileInfo
}

func writeTestDir(t *testing.T, basePath string) {
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, "b"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "a.txt"), []byte("Hello from a"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "b", "c.json"), []byte(`{"c": true}`), 0600))
}

func readTestDir(t *testing.T, basePath string) testDir {
	assert.DirExists(t, basePath)
	baseInfo, err := os.Stat(basePath)
	require.NoError(t, err)

	aPath := filepath.Join(basePath, "a.txt")
	aContent, err := os.ReadFile(aPath)
	require.NoError(t, err)
	assert.NotEmpty(t, aContent)
	aInfo, err := os.Stat(aPath)
	require.NoError(t, err)

	bPath := filepath.Join(basePath, "b")
	assert.DirExists(t, bPath)
	bInfo, err := os.Stat(bPath)
	require.NoError(t, err)

	cPath := filepath.Join(bPath, "c.json")
	cContent, err := os.ReadFile(cPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cContent)
	cInfo, err := os.Stat(cPath)
	require.NoError(t, err)

	return testDir{
		baseInfo: fromFileInfo(baseInfo),

		aContent: aContent,
		aInfo:    fromFileInfo(aInfo),

		bInfo: fromFileInfo(bInfo),

		cContent: cContent,
		cInfo:    fromFileInfo(cInfo),
	}
}

func TestCopyDir(t *testing.T) {
	tmpDir := t.TempDir()
	dir1 := filepath.Join(tmpDir, "dir-1")
	dir2 := filepath.Join(tmpDir, "dir-2")
	writeTestDir(t, dir1)
	require.NoError(t, os.Chmod(dir1, 0750))

	dir1Before := readTestDir(t, dir1)

	require.NoError(t, uio.CopyDir(dir1, dir2))

	dir1After := readTestDir(t, dir1)
	assert.Equal(t, dir1Before, dir1After)

	assert.Equal(t, dir1Before, readTestDir(t, dir2))
}

func TestCopyDirSkipNames(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src")
	dst := filepath.Join(tmpDir, "dst")
	writeTestDir(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(src, "parent.lock"), []byte{}, 0600))
	require.NoError(t, os.Symlink("127.0.0.1:+1234", filepath.Join(src, "lock")))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(src, "a-link")))

	require.NoError(t, uio.CopyDir(src, dst, uio.SkipNames("lock", "parent.lock")))

	readTestDir(t, dst)
	assert.NoFileExists(t, filepath.Join(dst, "parent.lock"))
	_, err := os.Lstat(filepath.Join(dst, "lock"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	target, err := os.Readlink(filepath.Join(dst, "a-link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", target)
}

func TestCopyDirNonexistent(t *testing.T) {
	err := uio.CopyDir(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyFile(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.xpi")
	dst := filepath.Join(tmpDir, "dst.xpi")
	require.NoError(t, os.WriteFile(src, []byte("PK\x03\x04"), 0640))
	require.NoError(t, os.WriteFile(dst, []byte("older and longer content"), 0600))

	require.NoError(t, uio.CopyFile(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), content)
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	exists, err := uio.FileExists(file)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = uio.FileExists(tmpDir)
	assert.NoError(t, err)
	assert.False(t, exists)

	exists, err = uio.DirExists(tmpDir)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = uio.DirExists(filepath.Join(tmpDir, "missing"))
	assert.NoError(t, err)
	assert.False(t, exists)
}
