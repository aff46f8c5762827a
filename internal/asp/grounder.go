package asp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"groundc/internal/taskerr"
)

// Grounder turns an encoded program into solution text.
type Grounder interface {
	Ground(ctx context.Context, program string) (string, error)
}

// GrounderFunc adapts a function to the Grounder interface.
type GrounderFunc func(ctx context.Context, program string) (string, error)

// Ground calls f.
func (f GrounderFunc) Ground(ctx context.Context, program string) (string, error) {
	return f(ctx, program)
}

// ProcessGrounder runs an external grounder binary. The program is written to
// a file in WorkDir (a fresh temporary directory when empty) and the
// binary's standard output is redirected to a solution file next to it.
type ProcessGrounder struct {
	Binary  string
	Args    []string
	WorkDir string
	Logger  *slog.Logger
}

const (
	programFile  = "reachability.lp"
	solutionFile = "solution.txt"
)

// Ground runs the binary to completion. It has no timeout of its own; ctx
// owns cancellation.
func (g *ProcessGrounder) Ground(ctx context.Context, program string) (string, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := g.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "groundc-")
		if err != nil {
			return "", infraErr(g.Binary, "creating work directory", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return "", infraErr(g.Binary, "creating work directory", err)
	}

	programPath := filepath.Join(dir, programFile)
	if err := os.WriteFile(programPath, []byte(program), 0644); err != nil {
		return "", infraErr(g.Binary, "writing program", err)
	}

	solutionPath := filepath.Join(dir, solutionFile)
	out, err := os.Create(solutionPath)
	if err != nil {
		return "", infraErr(g.Binary, "creating solution file", err)
	}

	args := append(append([]string(nil), g.Args...), programPath)
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("running grounder", "binary", g.Binary, "args", strings.Join(args, " "))
	runErr := cmd.Run()
	closeErr := out.Close()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", taskerr.GroundingInfrastructure(taskerr.StageGrounding, g.Binary,
				"exited with status %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String())).WithCause(runErr)
		}
		return "", infraErr(g.Binary, "running grounder", runErr)
	}
	if closeErr != nil {
		return "", infraErr(g.Binary, "closing solution file", closeErr)
	}

	data, err := os.ReadFile(solutionPath)
	if err != nil {
		return "", infraErr(g.Binary, "reading solution", err)
	}
	logger.Debug("grounder finished", "binary", g.Binary, "bytes", len(data))
	return string(data), nil
}

func infraErr(binary, doing string, err error) error {
	return taskerr.GroundingInfrastructure(taskerr.StageGrounding, binary, "%s: %v", doing, err).WithCause(err)
}
