package server

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

type RunResult struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// Runner runs the download command for a single symbol.
type Runner interface {
	Run(ctx context.Context, symbol string) (*RunResult, error)
}

// ExecRunner starts Path with Args followed by "--symbol <symbol>".
type ExecRunner struct {
	Path string
	Args []string
}

func (r *ExecRunner) Run(
	ctx context.Context,
	symbol string,
) (*RunResult, error) {
	args := append(append([]string{}, r.Args...), "--symbol", symbol)
	cmd := exec.CommandContext(ctx, r.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ReturnCode = exitErr.ExitCode()
	default:
		return nil, err
	}
	return res, nil
}
