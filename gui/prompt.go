// Package gui asks the user to pick from a list through a
// dmenu-compatible launcher.
package gui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	uerror "t0ast.cc/ffprofile/util/error"
)

// Prompter is the launcher program. It must accept rofi's -dmenu
// arguments.
var Prompter = "rofi"

var ErrNoPrompter = errors.New("no prompt program available")

// Prompt shows items and returns the chosen line, or nil if the user
// dismissed the prompt. With matchExact, only listed items can be
// chosen.
func Prompt(ctx context.Context, items []string, prompt string, matchExact bool) (*string, error) {
	prompter, err := exec.LookPath(Prompter)
	if err != nil {
		return nil, uerror.WithStackTrace(fmt.Errorf("%w: %v", ErrNoPrompter, err))
	}

	rofiArgs := []string{"-dmenu", "-p", prompt}
	if matchExact {
		rofiArgs = append(rofiArgs, "-no-custom")
	}

	input := strings.Join(items, "\n")

	rofiCmd := exec.CommandContext(ctx, prompter, rofiArgs...)
	rofiCmd.Stdin = strings.NewReader(input)
	out, err := rofiCmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		return nil, uerror.WithStackTrace(err)
	}

	outStr := strings.TrimSuffix(string(out), "\n")
	if outStr == "" {
		return nil, nil
	}
	return &outStr, nil
}
