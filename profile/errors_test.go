package profile_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
)

func TestErrorKinds(t *testing.T) {
	prefs := profile.NewEmptyPreferences()
	err := prefs.Load(filepath.Join(t.TempDir(), "user.js"))
	require.Error(t, err)

	assert.ErrorIs(t, err, profile.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	for _, other := range []error{profile.ErrDirectory, profile.ErrValidation, profile.ErrNotFound, profile.ErrManifest} {
		assert.NotErrorIs(t, err, other)
	}

	var perr *profile.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load preferences from", perr.Op)
	assert.True(t, errors.Is(perr.Err, os.ErrNotExist))
	assert.True(t, uerror.HasStackTrace(err))
}

func TestErrorMessage(t *testing.T) {
	err := &profile.Error{
		Kind: profile.ErrValidation,
		Op:   "set preference",
		Path: "a.b",
		Err:  uerror.StackTracef("invalid value"),
	}
	assert.Equal(t, "set preference a.b: invalid input: invalid value", err.Error())

	err = &profile.Error{Kind: profile.ErrNotFound, Op: "find profile"}
	assert.Equal(t, "find profile: not found", err.Error())
}
