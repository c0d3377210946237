// Package subprocess runs the external synthesizer tools (piper, gtts-cli,
// ffmpeg) with stdin wired before start, bounded by a timeout.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
)

// ErrNotFound is returned by Find when no executable matches.
var ErrNotFound = errors.New("executable not found")

// Runner runs a command to completion and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

// Error describes a failed command.
type Error struct {
	Name     string
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", e.Name)
	case e.Stderr != "":
		return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Stderr)
	default:
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Exec runs commands with os/exec.
type Exec struct {
	// Timeout bounds each command when ctx has no deadline.
	Timeout time.Duration
}

// Run executes name with args. stdin may be nil.
func (x Exec) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	// stdin must be set before Start.
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug("subprocess: finished", "cmd", filepath.Base(name), "took", time.Since(start), "bytes", stdout.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &Error{
			Name:     name,
			TimedOut: errors.Is(ctxErr, context.DeadlineExceeded),
			Err:      ctxErr,
		}
	}
	if err != nil {
		return nil, &Error{Name: name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// Find resolves an executable. Names containing a path separator are
// checked as given (after ~ expansion); bare names are looked up in PATH
// and then in the usual user install locations.
func Find(name string) (string, error) {
	expanded, err := homedir.Expand(name)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(expanded, filepath.Separator) {
		if isExecutable(expanded) {
			return expanded, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, expanded)
	}

	if path, err := exec.LookPath(expanded); err == nil {
		return path, nil
	}

	var candidates []string
	if home, err := homedir.Dir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".local", "bin", expanded),
			filepath.Join(home, "bin", expanded),
		)
	}
	candidates = append(candidates,
		filepath.Join("/usr/local/bin", expanded),
		filepath.Join("/opt/homebrew/bin", expanded),
		filepath.Join("/opt", expanded, expanded),
	)
	for _, c := range candidates {
		if isExecutable(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, expanded)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}
