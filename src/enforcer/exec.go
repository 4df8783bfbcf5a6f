// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// executable runs an external program, feeding it stdin, and returns
// its standard output.
type executable interface {
	exec(ctx context.Context, name string, stdin string, arg ...string) ([]byte, error)
}

type funcExecutable func(ctx context.Context, name string, stdin string, arg ...string) ([]byte, error)

func (f funcExecutable) exec(ctx context.Context, name string, stdin string, arg ...string) ([]byte, error) {
	return f(ctx, name, stdin, arg...)
}

// osExecutable runs programs on the host.
var osExecutable = funcExecutable(func(ctx context.Context, name string, stdin string, arg ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Output()
})

// commandError wraps a failed invocation in [ErrCommandFailed], keeping
// the tool's stderr when there is one.
func commandError(name string, args []string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s %s: %s", ErrCommandFailed, name, strings.Join(args, " "),
			strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("%w: %s %s: %v", ErrCommandFailed, name, strings.Join(args, " "), err)
}
